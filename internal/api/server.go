package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/config"
	"github.com/dgallion1/zhreader/internal/library"
	"github.com/dgallion1/zhreader/internal/pipeline"
	"github.com/dgallion1/zhreader/internal/segment"
)

// Server is the HTTP API server for zhreader.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	library      *library.Library
	claude       *analyze.ClaudeClient
	readings     analyze.Readings
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. readings are the
// service-wide forced readings used by synchronous analysis.
func NewServer(orch *pipeline.Orchestrator, lib *library.Library, claude *analyze.ClaudeClient, readings analyze.Readings, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		library:      lib,
		claude:       claude,
		readings:     readings,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/segment", s.handleSegment)

		r.Route("/api/books", func(r chi.Router) {
			r.Post("/", s.handleCreateBook)
			r.Get("/", s.handleListBooks)
			r.Get("/{bookID}", s.handleGetBook)
			r.Delete("/{bookID}", s.handleDeleteBook)
			r.Get("/{bookID}/chapters/{index}", s.handleGetChapter)
			r.Post("/{bookID}/chapters/{index}/analyze", s.handleAnalyzeChapter)
		})

		r.Get("/api/analyze/{jobID}/status", s.handleJobStatus)
		r.Post("/api/analyze/{jobID}/cancel", s.handleCancelJob)
		r.Post("/api/analyze/sentence", s.handleAnalyzeSentences)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) segmentOptions(maxChapterLength int) segment.Options {
	opts := segment.Options{
		MaxChapterLength: s.cfg.MaxChapterLength,
		DefaultTitle:     s.cfg.DefaultChapterTitle,
		PreambleTitle:    s.cfg.PreambleTitle,
	}
	if maxChapterLength > 0 {
		opts.MaxChapterLength = maxChapterLength
	}
	return opts
}
