package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/book"
)

// Analyzer analyzes one batch of sentences.
type Analyzer interface {
	AnalyzeSentences(ctx context.Context, sentences []string, readings analyze.Readings) ([]analyze.Analysis, error)
}

// ChapterStore loads chapters and persists their analysis caches.
type ChapterStore interface {
	Chapter(ctx context.Context, bookID string, index int) (*book.Chapter, error)
	Analysis(ctx context.Context, bookID string, index int) (analyze.Cache, error)
	SaveAnalysis(ctx context.Context, bookID string, index int, results analyze.Cache) error
}

// Worker processes a single analysis job.
type Worker struct {
	analyzer  Analyzer
	chapters  ChapterStore
	readings  analyze.Readings
	log       *slog.Logger
	batchSize int
	backoff   func(int) time.Duration
}

func NewWorker(analyzer Analyzer, chapters ChapterStore, readings analyze.Readings, log *slog.Logger, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Worker{
		analyzer:  analyzer,
		chapters:  chapters,
		readings:  readings,
		log:       log,
		batchSize: batchSize,
		backoff:   Backoff,
	}
}

// PendingSentences returns the sentences still missing from cache, or all of
// them when force is set. The title sentence is included.
func PendingSentences(ch *book.Chapter, cache analyze.Cache, force bool) []book.Sentence {
	var out []book.Sentence
	for _, s := range ch.Sentences {
		if _, done := cache[s.Number]; done && !force {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Process analyzes a job's chapter in sequential batches, saving the cache
// after every batch so cancellation or failure keeps finished work.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "book_id", job.BookID, "chapter", job.ChapterIndex)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.begin(cancel) {
		log.Info("job cancelled before start")
		job.SetStatus(StatusCancelled, "cancelled")
		return
	}

	// Phase 1: Load chapter and cache
	job.SetStatus(StatusLoading, "loading")
	ch, err := w.chapters.Chapter(ctx, job.BookID, job.ChapterIndex)
	if err != nil {
		log.Error("load chapter failed", "error", err)
		job.AddError(fmt.Sprintf("load chapter: %s", err))
		job.SetStatus(StatusFailed, "loading")
		return
	}
	cache, err := w.chapters.Analysis(ctx, job.BookID, job.ChapterIndex)
	if err != nil {
		log.Error("load analysis cache failed", "error", err)
		job.AddError(fmt.Sprintf("load cache: %s", err))
		job.SetStatus(StatusFailed, "loading")
		return
	}

	pending := PendingSentences(ch, cache, job.Force)
	batches := (len(pending) + w.batchSize - 1) / w.batchSize
	job.SetTotals(len(pending), batches)
	if len(pending) == 0 {
		log.Info("chapter already analyzed")
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 2: Analyze in sequential batches
	job.SetStatus(StatusAnalyzing, "analyzing")
	readings := w.readings.Merge(job.Readings())
	analyzed := 0
	hadErrors := false
	stopped := false

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		start := b * w.batchSize
		end := min(start+w.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, s := range batch {
			texts[i] = s.Original
		}

		var results []analyze.Analysis
		err := withRetry(ctx, w.backoff,
			func(attempt int, err error) {
				log.Warn("retryable analysis error", "batch", b, "attempt", attempt, "error", err)
			},
			func() error {
				var err error
				results, err = w.analyzer.AnalyzeSentences(ctx, texts, readings)
				return err
			})
		if err != nil {
			if ctx.Err() != nil {
				stopped = true
				break
			}
			log.Error("batch analysis failed", "batch", b, "error", err)
			job.AddError(fmt.Sprintf("batch %d: %s", b, err))
			job.AddBatch(0)
			hadErrors = true
			continue
		}

		fresh := analyze.Cache{}
		for i := range results {
			if !analyze.ValidateAnalysis(&results[i]) {
				job.AddError(fmt.Sprintf("sentence %d: invalid analysis", batch[i].Number))
				hadErrors = true
				continue
			}
			fresh[batch[i].Number] = results[i]
		}

		if len(fresh) > 0 {
			// Finished results are kept even if the job is cancelled meanwhile.
			if err := w.chapters.SaveAnalysis(context.WithoutCancel(ctx), job.BookID, job.ChapterIndex, fresh); err != nil {
				log.Error("save analysis failed", "batch", b, "error", err)
				job.AddError(fmt.Sprintf("save batch %d: %s", b, err))
				job.AddBatch(0)
				hadErrors = true
				continue
			}
		}
		analyzed += len(fresh)
		job.AddBatch(len(fresh))
		log.Info("batch analyzed", "batch", b, "sentences", len(fresh))
	}

	switch {
	case stopped:
		log.Info("analysis cancelled", "analyzed", analyzed)
		job.SetStatus(StatusCancelled, "cancelled")
	case hadErrors && analyzed > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "analyzing")
	default:
		log.Info("analysis complete", "analyzed", analyzed)
		job.SetStatus(StatusCompleted, "done")
	}
}
