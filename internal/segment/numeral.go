package segment

import "strconv"

var cjkDigits = map[rune]int{
	'〇': 0, '零': 0,
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var cjkUnits = map[rune]int{
	'十': 10,
	'百': 100,
	'千': 1000,
}

var cjkMagnitudes = map[rune]int{
	'万': 10000,
	'亿': 100000000,
}

// ChineseToArabic converts a chapter numeral token, Arabic or Chinese, to an
// integer. It reports false when the token is empty or evaluates to zero.
// Unrecognized characters are ignored.
func ChineseToArabic(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if isASCIIDigits(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	runes := []rune(s)
	total, section, unit, magnitude := 0, 0, 1, 1

	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if d, ok := cjkDigits[r]; ok {
			section += d * unit
			continue
		}
		if u, ok := cjkUnits[r]; ok {
			unit = u
			// A unit with no non-zero digit before it reads as one of that unit: 十二 = 12.
			if i == 0 || cjkDigits[runes[i-1]] == 0 {
				section += u
			}
			continue
		}
		if m, ok := cjkMagnitudes[r]; ok {
			total += section * magnitude
			section, unit = 0, 1
			if m > magnitude {
				magnitude = m
			} else {
				// 万亿: a smaller magnitude left of a larger one compounds.
				magnitude *= m
			}
		}
	}
	total += section * magnitude

	if len(runes) == 1 && runes[0] == '十' {
		total = 10
	} else if len(runes) == 2 && runes[0] == '十' {
		if d, ok := cjkDigits[runes[1]]; ok {
			total = 10 + d
		}
	}

	if total == 0 {
		return 0, false
	}
	return total, true
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
