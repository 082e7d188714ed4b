package analyze

import (
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(100, 1, false)
	stats.Record(200, 1, false)
	stats.Record(300, 1, false)
	stats.Record(400, 1, false)
	stats.Record(500, 1, false)

	snap := stats.Snapshot()
	if snap.Calls != 5 {
		t.Fatalf("expected calls=5, got %d", snap.Calls)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLLMStatsSentencesAndFailures(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(1000, 10, false)
	stats.Record(500, 5, false)
	stats.Record(9000, 8, true)

	snap := stats.Snapshot()
	if snap.Calls != 3 || snap.Failures != 1 {
		t.Fatalf("expected 3 calls with 1 failure, got %d/%d", snap.Calls, snap.Failures)
	}
	if snap.Sentences != 15 {
		t.Fatalf("expected 15 sentences from successful calls, got %d", snap.Sentences)
	}
	if snap.MsPerSentence != 100 {
		t.Fatalf("expected 100ms per sentence, got %f", snap.MsPerSentence)
	}
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(100, 1, false)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Calls != 0 {
		t.Fatalf("expected calls=0 after prune, got %d", snap.Calls)
	}

	stats.Record(200, 1, false)
	snap = stats.Snapshot()
	if snap.Calls != 1 {
		t.Fatalf("expected calls=1 for fresh sample, got %d", snap.Calls)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(-10, 1, false)
	snap := stats.Snapshot()
	if snap.Calls != 1 {
		t.Fatalf("expected calls=1, got %d", snap.Calls)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
