package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBParser handles .epub files by reading spine documents in order.
type EPUBParser struct{}

func (p *EPUBParser) Parse(r io.Reader, filename string) (*Document, error) {
	// goreader opens archives by path.
	tmp, err := os.CreateTemp("", "zhreader-epub-*.epub")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	rc, err := epub.OpenReader(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	var lines []string
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		item, err := ref.Item.Open()
		if err != nil {
			continue
		}
		doc, err := html.Parse(item)
		item.Close()
		if err != nil {
			continue
		}
		lines = append(lines, htmlLines(doc)...)
	}

	out := &Document{
		Title: titleFromFilename(filename),
		Text:  strings.Join(lines, "\n"),
	}
	if title := strings.TrimSpace(book.Metadata.Title); title != "" {
		out.Title = title
	}
	return out, nil
}
