package analyze

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const SystemPrompt = `You are a Chinese linguistics assistant helping Vietnamese readers study Chinese novels.

For each input sentence, segment it into words and return a JSON object with these fields:

- "original": the input sentence, unchanged
- "tokens": list of word objects in sentence order, each with:
  - "text": the word exactly as it appears (Chinese characters or punctuation)
  - "pinyin": Hanyu Pinyin with tone marks, syllables separated by spaces
  - "han_viet": Sino-Vietnamese (Hán-Việt) reading, one syllable per character, lowercase
  - "meaning": short Vietnamese meaning in this context
  - "grammar_role": one of "subject", "predicate", "object", "attributive", "adverbial", "complement", "particle", "punctuation", "other"
- "translation": natural Vietnamese translation of the whole sentence

Rules:
- Concatenating every token "text" must reproduce the original sentence
- Punctuation marks are their own tokens with grammar_role "punctuation" and empty readings
- Keep proper names as single tokens
- When a forced reading is listed for a word, use it verbatim as "han_viet"

Respond with ONLY a JSON array containing one object per input sentence, in input order, no other text.`

// BuildBatchPrompt creates the user message for a batch of sentences.
func BuildBatchPrompt(sentences []string, readings Readings) string {
	var sb strings.Builder
	if len(readings) > 0 {
		sb.WriteString("Forced Hán-Việt readings:\n")
		keys := make([]string, 0, len(readings))
		for k := range readings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s => %s\n", k, readings[k]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Sentences (%d):\n", len(sentences)))
	encoded, _ := json.Marshal(sentences)
	sb.Write(encoded)
	return sb.String()
}
