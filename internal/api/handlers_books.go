package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/zhreader/internal/library"
	"github.com/dgallion1/zhreader/internal/parser"
)

// handleCreateBook ingests a multipart "file" upload or a pasted "text" field.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()
	} else if err := r.ParseForm(); err != nil {
		jsonError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		filename string
		data     []byte
	)
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		filename = sanitizeFilename(header.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusUnsupportedMediaType)
			return
		}
		data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
		text := r.FormValue("text")
		if strings.TrimSpace(text) == "" {
			jsonError(w, "file or text is required", http.StatusBadRequest)
			return
		}
		filename = "pasted.txt"
		data = []byte(text)
	default:
		jsonError(w, "invalid file: "+err.Error(), http.StatusBadRequest)
		return
	}

	maxLen := 0
	if v := r.FormValue("max_chapter_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "max_chapter_length must be a positive integer", http.StatusBadRequest)
			return
		}
		maxLen = n
	}

	title := r.FormValue("title")
	if title == "" && filename == "pasted.txt" {
		title = "Văn bản dán"
	}

	res, err := s.library.Ingest(r.Context(), library.IngestRequest{
		Filename:         filename,
		Data:             data,
		Title:            title,
		MaxChapterLength: maxLen,
		Force:            r.FormValue("force") == "true",
	})
	if err != nil {
		s.libraryError(w, err, "book")
		return
	}

	code := http.StatusCreated
	if res.Duplicate {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.library.List(r.Context())
	if err != nil {
		s.libraryError(w, err, "books")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.library.Book(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		s.libraryError(w, err, "book")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		s.libraryError(w, err, "book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetChapter returns a chapter with whatever analyses are cached for it.
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	index, ok := parseIndex(chi.URLParam(r, "index"))
	if !ok {
		jsonError(w, "invalid chapter index", http.StatusBadRequest)
		return
	}

	ch, err := s.library.Chapter(r.Context(), bookID, index)
	if err != nil {
		s.libraryError(w, err, "chapter")
		return
	}
	cache, err := s.library.Analysis(r.Context(), bookID, index)
	if err != nil {
		s.libraryError(w, err, "chapter")
		return
	}

	resp := map[string]any{
		"book_id":  bookID,
		"index":    index,
		"chapter":  ch,
		"analysis": cache,
	}
	if job := s.orchestrator.ActiveJob(bookID, index); job != nil {
		resp["active_job_id"] = job.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
