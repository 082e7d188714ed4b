package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/zhreader/internal/library"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// libraryError maps library errors to HTTP status codes.
func (s *Server) libraryError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		jsonError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, library.ErrUnsupported):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, library.ErrNoContent):
		jsonError(w, "no readable content found", http.StatusUnprocessableEntity)
	default:
		s.log.Error("library error", "what", what, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeJSON decodes an optional JSON body. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseIndex(param string) (int, bool) {
	n, err := strconv.Atoi(param)
	return n, err == nil && n >= 0
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" || name == "_" {
		name = "unnamed"
	}
	return name
}
