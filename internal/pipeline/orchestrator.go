package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/config"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrChapterBusy = errors.New("chapter is already being analyzed")
)

// Orchestrator manages the chapter analysis pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	analyzer Analyzer
	chapters ChapterStore
	readings analyze.Readings
	log      *slog.Logger
	cfg      config.Config

	activeMu sync.Mutex
	active   map[string]*Job // chapter key -> unfinished job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. readings are the service-wide forced
// readings applied to every job.
func NewOrchestrator(cfg config.Config, analyzer Analyzer, chapters ChapterStore, readings analyze.Readings, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		analyzer: analyzer,
		chapters: chapters,
		readings: readings,
		log:      log,
		cfg:      cfg,
		active:   make(map[string]*Job),
	}
}

func chapterKey(bookID string, index int) string {
	return fmt.Sprintf("%s/%d", bookID, index)
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.analyzer, o.chapters, o.readings, o.log, o.cfg.AnalysisBatchSize)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
					o.release(job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Running jobs end as cancelled.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a job. Only one unfinished job per chapter is allowed.
func (o *Orchestrator) Submit(job *Job) error {
	key := chapterKey(job.BookID, job.ChapterIndex)

	o.activeMu.Lock()
	if running, ok := o.active[key]; ok {
		o.activeMu.Unlock()
		return fmt.Errorf("%w (job %s)", ErrChapterBusy, running.ID)
	}
	o.active[key] = job
	o.activeMu.Unlock()

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		o.release(job)
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

func (o *Orchestrator) release(job *Job) {
	key := chapterKey(job.BookID, job.ChapterIndex)
	o.activeMu.Lock()
	defer o.activeMu.Unlock()
	if o.active[key] == job {
		delete(o.active, key)
	}
}

// ActiveJob returns the unfinished job for a chapter, if any.
func (o *Orchestrator) ActiveJob(bookID string, index int) *Job {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()
	return o.active[chapterKey(bookID, index)]
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Cancel stops a job by ID. found is false for unknown jobs; cancelled is
// false when the job had already finished.
func (o *Orchestrator) Cancel(id string) (found, cancelled bool) {
	job := o.jobs.Get(id)
	if job == nil {
		return false, false
	}
	return true, job.Cancel()
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
