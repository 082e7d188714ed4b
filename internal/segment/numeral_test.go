package segment

import "testing"

func TestChineseToArabic(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"十二", 12, true},
		{"十", 10, true},
		{"十一", 11, true},
		{"一百二十三", 123, true},
		{"九十九", 99, true},
		{"2", 2, true},
		{"007", 7, true},
		{"", 0, false},
		{"零", 0, false},
		{"〇", 0, false},
		{"abc", 0, false},
		{"两百", 200, true},
		{"一千零十", 1010, true},
		{"三百零五", 305, true},
		{"一万零五百", 10500, true},
		{"十万", 100000, true},
		{"二十一万", 210000, true},
		{"二十一万三千", 213000, true},
		{"三亿五千万", 350000000, true},
		{"一万亿", 1000000000000, true},
		{"99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ChineseToArabic(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ChineseToArabic(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestChineseToArabic_IgnoresUnknownRunes(t *testing.T) {
	got, ok := ChineseToArabic("十x二")
	if !ok || got != 12 {
		t.Errorf("expected 12, got (%d, %v)", got, ok)
	}
}
