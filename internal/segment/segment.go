// Package segment splits raw novel text into chapters and sentences.
package segment

import (
	"strings"

	"github.com/dgallion1/zhreader/internal/book"
	"golang.org/x/text/unicode/norm"
)

// Defaults used when Options fields are left zero.
const (
	DefaultMaxChapterLength = 5000
	DefaultTitle            = "Nội dung"
	DefaultPreambleTitle    = "Lời mở đầu"
)

// Options controls segmentation.
type Options struct {
	MaxChapterLength int    // Chapters longer than this many runes are split into parts.
	DefaultTitle     string // Title used when no heading is found at all.
	PreambleTitle    string // Title of the chapter holding text before the first heading.
}

// DefaultOptions returns the standard segmentation settings.
func DefaultOptions() Options {
	return Options{
		MaxChapterLength: DefaultMaxChapterLength,
		DefaultTitle:     DefaultTitle,
		PreambleTitle:    DefaultPreambleTitle,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxChapterLength <= 0 {
		o.MaxChapterLength = DefaultMaxChapterLength
	}
	if o.DefaultTitle == "" {
		o.DefaultTitle = DefaultTitle
	}
	if o.PreambleTitle == "" {
		o.PreambleTitle = DefaultPreambleTitle
	}
	return o
}

// Normalize converts text to NFC with LF line endings.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// Segment converts raw text into ordered chapters. It returns nil when the
// text holds no content.
func Segment(text string, opts Options) []book.Chapter {
	opts = opts.withDefaults()

	var chapters []book.Chapter
	for _, raw := range DetectChapters(Normalize(text), opts) {
		value, _ := ChineseToArabic(raw.ChapterNumber)
		parts := SplitLong(raw.Title, raw.Content, opts.MaxChapterLength)
		for _, p := range parts {
			ch := book.Chapter{
				Title:         p.Title,
				ChapterNumber: raw.ChapterNumber,
				NumberValue:   value,
				Sentences:     ExtractSentences(p.Title, p.Content),
			}
			if len(parts) > 1 {
				ch.PartNumber = p.PartNumber
				ch.TotalParts = len(parts)
			}
			chapters = append(chapters, ch)
		}
	}
	return chapters
}
