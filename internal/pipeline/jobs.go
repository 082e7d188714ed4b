package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/zhreader/internal/analyze"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusAnalyzing JobStatus = "analyzing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job tracks the analysis of one chapter.
type Job struct {
	mu sync.Mutex

	ID           string `json:"job_id"`
	BookID       string `json:"book_id"`
	ChapterIndex int    `json:"chapter_index"`
	Force        bool   `json:"force"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	readings  analyze.Readings
	cancel    context.CancelFunc
	cancelled bool
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalSentences    int      `json:"total_sentences"`
	SentencesAnalyzed int      `json:"sentences_analyzed"`
	TotalBatches      int      `json:"total_batches"`
	BatchesDone       int      `json:"batches_done"`
	Errors            []string `json:"errors"`
}

// NewJob creates a queued job. readings override the service-wide forced
// readings for this job only.
func NewJob(bookID string, chapterIndex int, force bool, readings analyze.Readings) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		BookID:       bookID,
		ChapterIndex: chapterIndex,
		Force:        force,
		Status:       StatusQueued,
		Phase:        "queued",
		CreatedAt:    now,
		UpdatedAt:    now,
		readings:     readings,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotals records how much work the job has.
func (j *Job) SetTotals(sentences, batches int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSentences = sentences
	j.Progress.TotalBatches = batches
	j.UpdatedAt = time.Now()
}

// AddBatch records one finished batch and the sentences it analyzed.
func (j *Job) AddBatch(analyzed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.BatchesDone++
	j.Progress.SentencesAnalyzed += analyzed
	j.UpdatedAt = time.Now()
}

// Readings returns the per-job forced readings.
func (j *Job) Readings() analyze.Readings {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.readings
}

// Cancel asks the job to stop. A queued job is cancelled before it starts; a
// running job stops after its current request and keeps finished batches.
// Returns false if the job had already finished.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	j.cancelled = true
	if j.cancel != nil {
		j.cancel()
	}
	j.UpdatedAt = time.Now()
	return true
}

// Cancelled reports whether Cancel was called.
func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// begin attaches the cancel func of the running context. It returns false
// if the job was cancelled while queued.
func (j *Job) begin(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled {
		return false
	}
	j.cancel = cancel
	return true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	BookID       string    `json:"book_id"`
	ChapterIndex int       `json:"chapter_index"`
	Force        bool      `json:"force"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	Progress     Progress  `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:           j.ID,
		BookID:       j.BookID,
		ChapterIndex: j.ChapterIndex,
		Force:        j.Force,
		Status:       j.Status,
		Phase:        j.Phase,
		Progress:     p,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}
