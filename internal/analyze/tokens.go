package analyze

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough input token count. Han characters count as
// one token each; other text uses ~1.33 tokens per word.
func EstimateTokens(text string) int {
	han := 0
	var rest strings.Builder
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
			rest.WriteRune(' ')
			continue
		}
		rest.WriteRune(r)
	}
	words := len(strings.Fields(rest.String()))
	tokens := han + int(float64(words)*1.33)
	if tokens < 1 && strings.TrimSpace(text) != "" {
		tokens = 1
	}
	return tokens
}

// Output budget: every input token becomes a token object with readings and
// a meaning, and every sentence gets a translation.
const (
	outputPerToken    = 40
	outputPerSentence = 150
	minOutputTokens   = 1024
	maxOutputTokens   = 16000
)

// maxTokensFor budgets output tokens for a batch.
func maxTokensFor(sentences []string) int {
	budget := minOutputTokens
	for _, s := range sentences {
		budget += EstimateTokens(s)*outputPerToken + outputPerSentence
	}
	return min(budget, maxOutputTokens)
}
