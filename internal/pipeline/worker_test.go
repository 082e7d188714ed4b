package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/book"
	"github.com/dgallion1/zhreader/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memChapters is an in-memory ChapterStore holding one chapter.
type memChapters struct {
	mu      sync.Mutex
	chapter *book.Chapter
	cache   analyze.Cache
	saves   int
	loadErr error
}

func newMemChapters(n int) *memChapters {
	ch := &book.Chapter{Title: "第一章", Sentences: []book.Sentence{{Original: "第一章", IsTitle: true}}}
	for i := 1; i <= n; i++ {
		ch.Sentences = append(ch.Sentences, book.Sentence{Original: "句" + strings.Repeat("子", i), Number: i})
	}
	return &memChapters{chapter: ch, cache: analyze.Cache{}}
}

func (m *memChapters) Chapter(_ context.Context, _ string, _ int) (*book.Chapter, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.chapter, nil
}

func (m *memChapters) Analysis(_ context.Context, _ string, _ int) (analyze.Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := analyze.Cache{}
	for k, v := range m.cache {
		out[k] = v
	}
	return out, nil
}

func (m *memChapters) SaveAnalysis(_ context.Context, _ string, _ int, results analyze.Cache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	for k, v := range results {
		m.cache[k] = v
	}
	return nil
}

func (m *memChapters) cached() analyze.Cache {
	out, _ := m.Analysis(context.Background(), "", 0)
	return out
}

// fakeAnalyzer echoes each sentence as a one-token analysis.
type fakeAnalyzer struct {
	mu       sync.Mutex
	batches  [][]string
	readings []analyze.Readings
	// fail returns an error for the given call number (1-based), if set.
	fail func(call int) error
	// onCall runs after a call is recorded.
	onCall func(call int)
}

func (f *fakeAnalyzer) AnalyzeSentences(ctx context.Context, sentences []string, readings analyze.Readings) ([]analyze.Analysis, error) {
	f.mu.Lock()
	f.batches = append(f.batches, sentences)
	f.readings = append(f.readings, readings)
	call := len(f.batches)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(call)
	}
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return nil, err
		}
	}
	out := make([]analyze.Analysis, len(sentences))
	for i, s := range sentences {
		out[i] = analyze.Analysis{Original: s, Tokens: []analyze.Token{{Text: s, GrammarRole: "other"}}}
	}
	return out, nil
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newTestWorker(a Analyzer, c ChapterStore, batch int) *Worker {
	w := NewWorker(a, c, analyze.Readings{"萧炎": "tiêu viêm"}, discardLogger(), batch)
	w.backoff = noWait
	return w
}

func TestWorkerProcess(t *testing.T) {
	chapters := newMemChapters(7)
	analyzer := &fakeAnalyzer{}
	job := NewJob("b", 0, false, analyze.Readings{"药老": "dược lão"})

	newTestWorker(analyzer, chapters, 3).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, errors = %v", snap.Status, snap.Progress.Errors)
	}
	// Title + 7 sentences in batches of 3.
	if snap.Progress.TotalSentences != 8 || snap.Progress.TotalBatches != 3 {
		t.Errorf("totals = %+v", snap.Progress)
	}
	if snap.Progress.SentencesAnalyzed != 8 || snap.Progress.BatchesDone != 3 {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if analyzer.batches[0][0] != "第一章" || len(analyzer.batches[2]) != 2 {
		t.Errorf("unexpected batches: %v", analyzer.batches)
	}
	if chapters.saves != 3 {
		t.Errorf("expected a save per batch, got %d", chapters.saves)
	}

	cache := chapters.cached()
	if len(cache) != 8 || cache[0].Original != "第一章" || cache[7].Original != "句子子子子子子子" {
		t.Errorf("cache = %v", cache)
	}

	r := analyzer.readings[0]
	if r["萧炎"] != "tiêu viêm" || r["药老"] != "dược lão" {
		t.Errorf("readings not merged: %v", r)
	}
}

func TestWorkerSkipsCachedSentences(t *testing.T) {
	chapters := newMemChapters(4)
	chapters.cache[0] = analyze.Analysis{Original: "第一章"}
	chapters.cache[2] = analyze.Analysis{Original: "cached"}
	analyzer := &fakeAnalyzer{}

	job := NewJob("b", 0, false, nil)
	newTestWorker(analyzer, chapters, 10).Process(context.Background(), job)

	if len(analyzer.batches) != 1 || len(analyzer.batches[0]) != 3 {
		t.Fatalf("expected one batch of 3 pending sentences, got %v", analyzer.batches)
	}
	if chapters.cached()[2].Original != "cached" {
		t.Error("cached analysis overwritten")
	}

	force := NewJob("b", 0, true, nil)
	newTestWorker(analyzer, chapters, 10).Process(context.Background(), force)
	if len(analyzer.batches[1]) != 5 {
		t.Errorf("force should reanalyze all 5 sentences, got %d", len(analyzer.batches[1]))
	}
	if chapters.cached()[2].Original != "句子子" {
		t.Error("force should replace cached analysis")
	}
}

func TestWorkerNothingPending(t *testing.T) {
	chapters := newMemChapters(1)
	chapters.cache[0] = analyze.Analysis{}
	chapters.cache[1] = analyze.Analysis{}
	analyzer := &fakeAnalyzer{}

	job := NewJob("b", 0, false, nil)
	newTestWorker(analyzer, chapters, 10).Process(context.Background(), job)

	if job.Snapshot().Status != StatusCompleted || analyzer.calls() != 0 {
		t.Errorf("status=%s calls=%d", job.Snapshot().Status, analyzer.calls())
	}
}

func TestWorkerRetriesTransientErrors(t *testing.T) {
	chapters := newMemChapters(2)
	analyzer := &fakeAnalyzer{fail: func(call int) error {
		if call == 1 {
			return &analyze.RetryableError{StatusCode: 529}
		}
		return nil
	}}

	job := NewJob("b", 0, false, nil)
	newTestWorker(analyzer, chapters, 10).Process(context.Background(), job)

	if s := job.Snapshot(); s.Status != StatusCompleted || analyzer.calls() != 2 {
		t.Errorf("status=%s calls=%d errors=%v", s.Status, analyzer.calls(), s.Progress.Errors)
	}
}

func TestWorkerPartialAndFailed(t *testing.T) {
	chapters := newMemChapters(3)
	analyzer := &fakeAnalyzer{fail: func(call int) error {
		if call == 2 {
			return errors.New("bad request")
		}
		return nil
	}}

	job := NewJob("b", 0, false, nil)
	newTestWorker(analyzer, chapters, 2).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("status = %s", snap.Status)
	}
	if snap.Progress.BatchesDone != 2 || snap.Progress.SentencesAnalyzed != 2 {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "batch 1") {
		t.Errorf("errors = %v", snap.Progress.Errors)
	}

	all := &fakeAnalyzer{fail: func(int) error { return errors.New("down") }}
	failed := NewJob("b", 0, false, nil)
	newTestWorker(all, newMemChapters(3), 2).Process(context.Background(), failed)
	if failed.Snapshot().Status != StatusFailed {
		t.Errorf("status = %s", failed.Snapshot().Status)
	}
}

func TestWorkerRejectsInvalidAnalyses(t *testing.T) {
	chapters := newMemChapters(1)
	analyzer := &emptyAnalyzer{}

	job := NewJob("b", 0, false, nil)
	newTestWorker(analyzer, chapters, 10).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || len(snap.Progress.Errors) != 2 {
		t.Errorf("status=%s errors=%v", snap.Status, snap.Progress.Errors)
	}
	if len(chapters.cached()) != 0 {
		t.Error("invalid analyses must not be cached")
	}
}

type emptyAnalyzer struct{}

func (emptyAnalyzer) AnalyzeSentences(_ context.Context, s []string, _ analyze.Readings) ([]analyze.Analysis, error) {
	return make([]analyze.Analysis, len(s)), nil
}

func TestWorkerLoadFailure(t *testing.T) {
	chapters := newMemChapters(1)
	chapters.loadErr = errors.New("not found")

	job := NewJob("b", 0, false, nil)
	newTestWorker(&fakeAnalyzer{}, chapters, 10).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "loading" {
		t.Errorf("status=%s phase=%s", snap.Status, snap.Phase)
	}
}

func TestWorkerCancelKeepsFinishedBatches(t *testing.T) {
	chapters := newMemChapters(9)
	job := NewJob("b", 0, false, nil)
	analyzer := &fakeAnalyzer{onCall: func(call int) {
		if call == 2 {
			job.Cancel()
		}
	}}

	newTestWorker(analyzer, chapters, 2).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCancelled {
		t.Fatalf("status = %s", snap.Status)
	}
	if analyzer.calls() != 2 {
		t.Errorf("expected processing to stop after the 2nd batch, got %d calls", analyzer.calls())
	}
	// The in-flight batch finished and is kept along with the first.
	if n := len(chapters.cached()); n != 4 {
		t.Errorf("expected 4 cached analyses, got %d", n)
	}
}

func TestWorkerCancelledBeforeStart(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	job := NewJob("b", 0, false, nil)
	job.Cancel()

	newTestWorker(analyzer, newMemChapters(2), 10).Process(context.Background(), job)

	if job.Snapshot().Status != StatusCancelled || analyzer.calls() != 0 {
		t.Errorf("status=%s calls=%d", job.Snapshot().Status, analyzer.calls())
	}
}

func testConfig() config.Config {
	return config.Config{
		WorkerCount:       1,
		MaxQueueSize:      4,
		AnalysisBatchSize: 5,
		JobTTL:            time.Hour,
	}
}

func waitForStatus(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Status.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator(t *testing.T) {
	chapters := newMemChapters(6)
	o := NewOrchestrator(testConfig(), &fakeAnalyzer{}, chapters, nil, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("b", 0, false, nil)
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("GetJob did not return submitted job")
	}

	snap := waitForStatus(t, job)
	if snap.Status != StatusCompleted || snap.Progress.SentencesAnalyzed != 7 {
		t.Errorf("snapshot = %+v", snap)
	}

	// The chapter is released once the job finishes.
	deadline := time.Now().Add(time.Second)
	for o.ActiveJob("b", 0) != nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if o.ActiveJob("b", 0) != nil {
		t.Error("chapter still marked active")
	}

	if found, cancelled := o.Cancel(job.ID); !found || cancelled {
		t.Errorf("Cancel of finished job: found=%v cancelled=%v", found, cancelled)
	}
	if found, _ := o.Cancel("missing"); found {
		t.Error("unknown job reported as found")
	}
}

func TestOrchestratorRejectsBusyChapter(t *testing.T) {
	block := make(chan struct{})
	analyzer := &fakeAnalyzer{onCall: func(int) { <-block }}
	o := NewOrchestrator(testConfig(), analyzer, newMemChapters(2), nil, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	first := NewJob("b", 0, false, nil)
	if err := o.Submit(first); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	err := o.Submit(NewJob("b", 0, false, nil))
	if !errors.Is(err, ErrChapterBusy) {
		t.Fatalf("expected ErrChapterBusy, got %v", err)
	}
	if o.ActiveJob("b", 0) != first {
		t.Error("ActiveJob should return the first job")
	}
	if err := o.Submit(NewJob("b", 1, false, nil)); err != nil {
		t.Errorf("other chapter should be accepted: %v", err)
	}

	if found, cancelled := o.Cancel(first.ID); !found || !cancelled {
		t.Errorf("Cancel: found=%v cancelled=%v", found, cancelled)
	}
	close(block)
	if snap := waitForStatus(t, first); snap.Status != StatusCancelled {
		t.Errorf("status = %s", snap.Status)
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, &fakeAnalyzer{}, newMemChapters(1), nil, discardLogger())

	if err := o.Submit(NewJob("b", 0, false, nil)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := NewJob("b", 1, false, nil)
	if err := o.Submit(job); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("status = %s", job.Snapshot().Status)
	}
	if o.ActiveJob("b", 1) != nil {
		t.Error("rejected job should not hold the chapter")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("QueueDepth = %d", o.QueueDepth())
	}
}
