package segment

import (
	"strings"
	"unicode"

	"github.com/dgallion1/zhreader/internal/book"
)

// punctuation lists the characters a line may consist of and still be
// discarded as punctuation-only.
const punctuation = "\"'“”‘’„‟«»「」『』《》〈〉【】〔〕〖〗（）()[]{}<>" +
	"…⋯‥—–―-－~～·・" +
	".,!?;:，。！？；：、．" +
	"#$%&*+/=@\\^_`|"

func isPunctuationOnly(line string) bool {
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		if !strings.ContainsRune(punctuation, r) {
			return false
		}
	}
	return true
}

// ExtractSentences turns chapter content into a title sentence followed by
// one numbered sentence per non-empty, non-punctuation line.
func ExtractSentences(title, content string) []book.Sentence {
	sentences := []book.Sentence{{Original: title, IsTitle: true}}

	n := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isPunctuationOnly(line) {
			continue
		}
		n++
		sentences = append(sentences, book.Sentence{Original: line, Number: n})
	}
	return sentences
}
