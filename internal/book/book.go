package book

import "time"

// Sentence is one analyzable line of a chapter.
type Sentence struct {
	Original string `json:"original"`
	IsTitle  bool   `json:"is_title,omitempty"`
	// Number is 1-based for body sentences and 0 for the title sentence.
	Number int `json:"sentence_number,omitempty"`
}

// Chapter is a segmented chapter, or one part of an overlong chapter.
type Chapter struct {
	Title         string     `json:"title"`
	ChapterNumber string     `json:"chapter_number,omitempty"` // Raw numeral token from the heading
	NumberValue   int        `json:"number_value,omitempty"`   // Numeral token as an integer, 0 if unknown
	PartNumber    int        `json:"part_number,omitempty"`    // 1-based, set only for split chapters
	TotalParts    int        `json:"total_parts,omitempty"`
	Sentences     []Sentence `json:"sentences"`
}

// BodySentences returns the sentences excluding the title sentence.
func (c *Chapter) BodySentences() []Sentence {
	out := make([]Sentence, 0, len(c.Sentences))
	for _, s := range c.Sentences {
		if !s.IsTitle {
			out = append(out, s)
		}
	}
	return out
}

// ChapterRef is the outline entry stored in a book's metadata.
type ChapterRef struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	ChapterNumber string `json:"chapter_number,omitempty"`
	NumberValue   int    `json:"number_value,omitempty"`
	PartNumber    int    `json:"part_number,omitempty"`
	TotalParts    int    `json:"total_parts,omitempty"`
	SentenceCount int    `json:"sentence_count"`
}

// Ref builds the outline entry for the chapter at index.
func (c *Chapter) Ref(index int) ChapterRef {
	return ChapterRef{
		Index:         index,
		Title:         c.Title,
		ChapterNumber: c.ChapterNumber,
		NumberValue:   c.NumberValue,
		PartNumber:    c.PartNumber,
		TotalParts:    c.TotalParts,
		SentenceCount: len(c.Sentences),
	}
}

// Book is the stored metadata of one ingested text.
type Book struct {
	ID          string       `json:"book_id"`
	Title       string       `json:"title"`
	Filename    string       `json:"filename,omitempty"`
	ContentHash string       `json:"content_hash"`
	CreatedAt   time.Time    `json:"created_at"`
	Chapters    []ChapterRef `json:"chapters"`
}
