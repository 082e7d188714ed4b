package api

import (
	"net/http"
	"strings"

	"github.com/dgallion1/zhreader/internal/book"
	"github.com/dgallion1/zhreader/internal/segment"
)

type segmentRequest struct {
	Text             string `json:"text"`
	MaxChapterLength int    `json:"max_chapter_length"`
}

// handleSegment previews segmentation of pasted text without storing it.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req segmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.MaxChapterLength < 0 {
		jsonError(w, "max_chapter_length must not be negative", http.StatusBadRequest)
		return
	}

	chapters := segment.Segment(req.Text, s.segmentOptions(req.MaxChapterLength))
	if len(chapters) == 0 {
		jsonError(w, "no readable content found", http.StatusUnprocessableEntity)
		return
	}

	sentences := 0
	for _, ch := range chapters {
		sentences += len(ch.Sentences)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chapters":       chapters,
		"chapter_count":  len(chapters),
		"sentence_count": sentences,
		"outline":        outline(chapters),
	})
}

func outline(chapters []book.Chapter) []book.ChapterRef {
	refs := make([]book.ChapterRef, len(chapters))
	for i := range chapters {
		refs[i] = chapters[i].Ref(i)
	}
	return refs
}
