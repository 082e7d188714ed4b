package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/api"
	"github.com/dgallion1/zhreader/internal/config"
	"github.com/dgallion1/zhreader/internal/library"
	"github.com/dgallion1/zhreader/internal/parser"
	"github.com/dgallion1/zhreader/internal/pipeline"
	"github.com/dgallion1/zhreader/internal/segment"
	"github.com/dgallion1/zhreader/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Optional .env file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage.
	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	readings, err := analyze.LoadReadings(cfg.ReadingsFile)
	if err != nil {
		log.Error("load readings", "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	claude := analyze.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	lib := library.New(st, library.Config{
		Segment: segment.Options{
			MaxChapterLength: cfg.MaxChapterLength,
			DefaultTitle:     cfg.DefaultChapterTitle,
			PreambleTitle:    cfg.PreambleTitle,
		},
		Parser:             parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		MaxConcurrentStore: cfg.MaxConcurrentStore,
	}, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, claude, lib, readings, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, lib, claude, readings, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		claude.Close()
		closeStore()
	}()

	log.Info("starting zhreader",
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
		"model", cfg.AnthropicModel,
		"forced_readings", len(readings),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore builds the configured storage backend.
func openStore(cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case config.BackendDrive:
		d := store.NewDrive(cfg.DriveURL, cfg.DriveAPIKey)
		return d, d.Close, nil
	case config.BackendMirror:
		local, err := store.NewLocal(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		d := store.NewDrive(cfg.DriveURL, cfg.DriveAPIKey)
		log.Info("mirroring local storage to drive", "data_dir", local.Root(), "drive_url", cfg.DriveURL)
		return store.NewMirror(local, d, log), d.Close, nil
	default:
		local, err := store.NewLocal(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using local storage", "data_dir", local.Root())
		return local, noop, nil
	}
}
