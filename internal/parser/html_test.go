package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_BlocksAndBreaks(t *testing.T) {
	input := `<html><head><title>书名</title><style>p{}</style></head>
<body>
<h1>第一章 开始</h1>
<p>第一句。<br>第二句。</p>
<div>第三句</div>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "书名" {
		t.Errorf("expected title %q, got %q", "书名", doc.Title)
	}
	want := "第一章 开始\n第一句。\n第二句。\n第三句"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
}

func TestHTMLParser_FallbackTitle(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>x</p>"), "chap.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "chap" {
		t.Errorf("expected title %q, got %q", "chap", doc.Title)
	}
}
