package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/dgallion1/zhreader/internal/analyze"
)

func TestNewJob(t *testing.T) {
	job := NewJob("book-1", 2, true, analyze.Readings{"萧炎": "tiêu viêm"})
	if job.ID == "" || job.ID == NewJob("book-1", 2, true, nil).ID {
		t.Errorf("expected unique job IDs, got %q", job.ID)
	}
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("unexpected initial state: %s/%s", job.Status, job.Phase)
	}
	if job.Readings()["萧炎"] != "tiêu viêm" {
		t.Error("readings not kept")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("b", 0, false, nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusLoading, "loading"},
		{StatusAnalyzing, "analyzing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)
		snap := job.Snapshot()
		if snap.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, snap.Status)
		}
		if snap.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, snap.Phase)
		}
		if !snap.UpdatedAt.After(before) {
			t.Errorf("UpdatedAt not advanced for %s", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		StatusQueued:    false,
		StatusLoading:   false,
		StatusAnalyzing: false,
		StatusCompleted: true,
		StatusPartial:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestJob_Progress(t *testing.T) {
	job := NewJob("b", 0, false, nil)
	job.SetTotals(25, 3)
	job.AddBatch(10)
	job.AddBatch(8)
	job.AddError("sentence 4: invalid analysis")

	snap := job.Snapshot()
	p := snap.Progress
	if p.TotalSentences != 25 || p.TotalBatches != 3 {
		t.Errorf("totals = %+v", p)
	}
	if p.BatchesDone != 2 || p.SentencesAnalyzed != 18 {
		t.Errorf("progress = %+v", p)
	}
	if len(p.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", p.Errors)
	}

	// The snapshot must not alias the job's error slice.
	job.AddError("another")
	if len(snap.Progress.Errors) != 1 {
		t.Error("snapshot changed after AddError")
	}
}

func TestJob_SnapshotEmptyErrors(t *testing.T) {
	snap := NewJob("b", 0, false, nil).Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil empty errors slice for JSON")
	}
}

func TestJob_Cancel(t *testing.T) {
	job := NewJob("b", 0, false, nil)
	if !job.Cancel() {
		t.Fatal("queued job should be cancellable")
	}
	if !job.Cancelled() {
		t.Fatal("expected Cancelled")
	}
	if job.begin(func() {}) {
		t.Error("cancelled job must not begin")
	}

	running := NewJob("b", 1, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if !running.begin(cancel) {
		t.Fatal("begin failed")
	}
	running.Cancel()
	if ctx.Err() == nil {
		t.Error("Cancel should cancel the running context")
	}

	done := NewJob("b", 2, false, nil)
	done.SetStatus(StatusCompleted, "done")
	if done.Cancel() {
		t.Error("finished job should not be cancellable")
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(10 * time.Millisecond)

	finished := NewJob("b", 0, false, nil)
	finished.SetStatus(StatusCompleted, "done")
	running := NewJob("b", 1, false, nil)
	running.SetStatus(StatusAnalyzing, "analyzing")
	store.Put(finished)
	store.Put(running)

	time.Sleep(25 * time.Millisecond)
	store.Cleanup()

	if store.Get(finished.ID) != nil {
		t.Error("expired finished job should be evicted")
	}
	if store.Get(running.ID) == nil {
		t.Error("running job must not be evicted")
	}
}
