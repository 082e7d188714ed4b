package segment

import (
	"regexp"
	"strings"
)

// headingRe matches a chapter heading line: a marker word, a numeral token,
// then a CJK suffix word, a colon, or the end of the line.
var headingRe = regexp.MustCompile(
	`(?im)^[ \t\x{3000}]*(?:Chương|Hồi|Quyển|Chapter|卷|第)[ \t\x{3000}]*` +
		`([0-9]+|[一二三四五六七八九十百千万亿〇零两]+)` +
		`(?:[ \t\x{3000}]*(?:章|回|节|話|篇|卷之)[^\n]*|[ \t\x{3000}]*[:：][^\n]*|[ \t\x{3000}]*$)`,
)

// RawChapter is a heading and the text that follows it, before sentence
// extraction and splitting.
type RawChapter struct {
	Title         string
	Content       string
	ChapterNumber string
}

// DetectChapters partitions text into chapters at heading lines. Text before
// the first heading becomes a preamble chapter. Headings with no content are
// dropped.
func DetectChapters(text string, opts Options) []RawChapter {
	opts = opts.withDefaults()

	matches := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		content := strings.TrimSpace(text)
		if content == "" {
			return nil
		}
		return []RawChapter{{Title: opts.DefaultTitle, Content: content}}
	}

	var chapters []RawChapter
	if preamble := strings.TrimSpace(text[:matches[0][0]]); preamble != "" {
		chapters = append(chapters, RawChapter{Title: opts.PreambleTitle, Content: preamble})
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[m[1]:end])
		if content == "" {
			continue
		}
		chapters = append(chapters, RawChapter{
			Title:         normalizeTitle(text[m[0]:m[1]]),
			Content:       content,
			ChapterNumber: text[m[2]:m[3]],
		})
	}
	return chapters
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
