package segment

import (
	"fmt"
	"strings"
)

const (
	// tailTolerance lets the last part run over the threshold rather than
	// leave a tiny remainder.
	tailTolerance = 1.2
	// minSplitRatio is how far back a natural boundary may be before it is
	// considered too early.
	minSplitRatio = 0.5
)

var splitMarkers = []rune{'\n', '。', '！', '？'}

// Part is one piece of a chapter after long-chapter splitting.
type Part struct {
	Title      string
	Content    string
	PartNumber int
}

// SplitLong splits content longer than maxLen runes into parts, preferring
// paragraph and sentence boundaries. Concatenating the parts' content yields
// the original content. Parts after the first are titled "{title} (Phần n)".
func SplitLong(title, content string, maxLen int) []Part {
	if maxLen <= 0 {
		maxLen = DefaultMaxChapterLength
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return []Part{{Title: title, Content: content, PartNumber: 1}}
	}

	var pieces []string
	remaining := runes
	for len(remaining) > 0 {
		if float64(len(remaining)) <= float64(maxLen)*tailTolerance {
			pieces = append(pieces, string(remaining))
			break
		}
		cut := splitPoint(remaining, maxLen)
		pieces = append(pieces, string(remaining[:cut+1]))
		remaining = remaining[cut+1:]
	}

	parts := make([]Part, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		n := len(parts) + 1
		t := title
		if n > 1 {
			t = fmt.Sprintf("%s (Phần %d)", title, n)
		}
		parts = append(parts, Part{Title: t, Content: p, PartNumber: n})
	}
	return parts
}

// splitPoint returns the index of the last rune of the next part.
func splitPoint(runes []rune, maxLen int) int {
	best := -1
	for _, m := range splitMarkers {
		if i := lastIndexBefore(runes, m, maxLen); i > best {
			best = i
		}
	}
	if float64(best) >= float64(maxLen)*minSplitRatio {
		return best
	}
	if i := lastIndexBefore(runes, ' ', maxLen); i > 0 {
		return i
	}
	return maxLen - 1
}

func lastIndexBefore(runes []rune, r rune, limit int) int {
	if limit > len(runes) {
		limit = len(runes)
	}
	for i := limit - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
