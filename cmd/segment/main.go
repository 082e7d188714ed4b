// Command segment splits a novel file into chapters and sentences and prints
// an outline, or the full result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/zhreader/internal/book"
	"github.com/dgallion1/zhreader/internal/parser"
	"github.com/dgallion1/zhreader/internal/segment"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	partStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	sentenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			PaddingLeft(4)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

func main() {
	maxLen := flag.Int("max", segment.DefaultMaxChapterLength, "Split chapters longer than this many characters")
	asJSON := flag.Bool("json", false, "Print chapters as JSON")
	showSentences := flag.Bool("s", false, "Print every sentence under its chapter")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: segment [options] FILE\n\n")
		fmt.Fprintf(os.Stderr, "Supported formats: .txt .md .html .pdf .docx .epub\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	chapters, err := segmentFile(flag.Arg(0), *maxLen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(chapters) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no readable content found")
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(chapters); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printOutline(os.Stdout, chapters, *showSentences)
}

func segmentFile(path string, maxLen int) ([]book.Chapter, error) {
	p, err := parser.ForFileWithOptions(path, parser.Options{PDFFallbackPdftotext: true})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	opts := segment.DefaultOptions()
	opts.MaxChapterLength = maxLen
	return segment.Segment(doc.Text, opts), nil
}

func printOutline(w io.Writer, chapters []book.Chapter, showSentences bool) {
	total := 0
	for i, ch := range chapters {
		body := len(ch.Sentences) - 1
		total += body

		line := fmt.Sprintf("%4d  %s", i, titleStyle.Render(ch.Title))
		if ch.TotalParts > 0 {
			line += " " + partStyle.Render(fmt.Sprintf("[%d/%d]", ch.PartNumber, ch.TotalParts))
		}
		line += " " + countStyle.Render(fmt.Sprintf("(%d sentences)", body))
		fmt.Fprintln(w, line)

		if showSentences {
			for _, s := range ch.BodySentences() {
				fmt.Fprintln(w, sentenceStyle.Render(fmt.Sprintf("%d. %s", s.Number, s.Original)))
			}
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 40))
	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("%d chapters, %d sentences", len(chapters), total)))
}
