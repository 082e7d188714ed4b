package analyze

import "strings"

// Token is one segmented word of an analyzed sentence.
type Token struct {
	Text        string `json:"text"`
	Pinyin      string `json:"pinyin"`
	HanViet     string `json:"han_viet"`
	Meaning     string `json:"meaning"`
	GrammarRole string `json:"grammar_role"`
}

// Analysis is the LLM result for one sentence.
type Analysis struct {
	Original    string  `json:"original"`
	Tokens      []Token `json:"tokens"`
	Translation string  `json:"translation"`
}

// Cache holds a chapter's analyses keyed by sentence number; 0 is the title.
type Cache map[int]Analysis

var validRoles = map[string]bool{
	"subject":     true,
	"predicate":   true,
	"object":      true,
	"attributive": true,
	"adverbial":   true,
	"complement":  true,
	"particle":    true,
	"punctuation": true,
	"other":       true,
}

// ValidateAnalysis normalizes an analysis in place. Returns true if it is usable.
func ValidateAnalysis(a *Analysis) bool {
	if a == nil {
		return false
	}
	a.Original = strings.TrimSpace(a.Original)
	a.Translation = strings.TrimSpace(a.Translation)

	tokens := a.Tokens[:0]
	for _, t := range a.Tokens {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		t.Pinyin = strings.TrimSpace(t.Pinyin)
		t.HanViet = strings.ToLower(strings.TrimSpace(t.HanViet))
		t.Meaning = strings.TrimSpace(t.Meaning)
		t.GrammarRole = strings.ToLower(strings.TrimSpace(t.GrammarRole))
		if !validRoles[t.GrammarRole] {
			t.GrammarRole = "other"
		}
		tokens = append(tokens, t)
	}
	a.Tokens = tokens

	return a.Original != "" && len(a.Tokens) > 0
}
