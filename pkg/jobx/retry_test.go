package jobx_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNextAfterFailure_RetriesWhileBudgetLeft(t *testing.T) {
	j := &jobx.Job{RetryLimit: 2, RetryCount: 0, RetryDelay: 5, StartAfter: now.Add(-time.Hour)}

	tr := jobx.NextAfterFailure(j, jobx.StateFailed, now, 0.5)
	if tr.State != jobx.StateRetry {
		t.Fatalf("expected retry, got %s", tr.State)
	}
	if tr.CompletedOn != nil {
		t.Fatal("retry must not set completedOn")
	}
	if !tr.StartAfter.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("expected start after now+5s, got %v", tr.StartAfter)
	}
}

func TestNextAfterFailure_TerminalKeepsStartAfter(t *testing.T) {
	start := now.Add(-time.Hour)
	j := &jobx.Job{RetryLimit: 2, RetryCount: 2, RetryDelay: 5, StartAfter: start}

	tr := jobx.NextAfterFailure(j, jobx.StateExpired, now, 0)
	if tr.State != jobx.StateExpired {
		t.Fatalf("expected expired, got %s", tr.State)
	}
	if tr.CompletedOn == nil || !tr.CompletedOn.Equal(now) {
		t.Fatalf("expected completedOn = now, got %v", tr.CompletedOn)
	}
	if !tr.StartAfter.Equal(start) {
		t.Fatalf("startAfter must be unchanged, got %v", tr.StartAfter)
	}
}

func TestNextAfterFailure_ZeroRetryLimitFailsAtOnce(t *testing.T) {
	j := &jobx.Job{RetryLimit: 0}
	if tr := jobx.NextAfterFailure(j, jobx.StateFailed, now, 0); tr.State != jobx.StateFailed {
		t.Fatalf("expected failed, got %s", tr.State)
	}
}

func TestRetryBound(t *testing.T) {
	for limit := 0; limit <= 5; limit++ {
		j := &jobx.Job{State: jobx.StateCreated, RetryLimit: limit}
		attempts := 0
		for j.State != jobx.StateFailed {
			if j.State == jobx.StateRetry {
				j.RetryCount++
			}
			attempts++
			jobx.NextAfterFailure(j, jobx.StateFailed, now, 0).Apply(j)
			if j.RetryCount > j.RetryLimit {
				t.Fatalf("retryCount %d exceeded limit %d", j.RetryCount, j.RetryLimit)
			}
		}
		if attempts != limit+1 {
			t.Fatalf("limit %d: expected %d attempts, got %d", limit, limit+1, attempts)
		}
	}
}

func TestBackoffBase(t *testing.T) {
	tests := []struct {
		delay, count int
		want         float64
	}{
		{1, 0, 1},
		{1, 1, 2},
		{1, 2, 4},
		{3, 2, 12},
		{1, 15, 32768},
		{1, 16, 32768},
		{1, 100, 32768},
	}
	for _, tt := range tests {
		if got := jobx.BackoffBase(tt.delay, tt.count); got != tt.want {
			t.Errorf("BackoffBase(%d, %d) = %v, want %v", tt.delay, tt.count, got, tt.want)
		}
	}
}

func TestBackoffDelay_StaysWithinJitterBounds(t *testing.T) {
	var prev time.Duration
	for count := 0; count < 20; count++ {
		base := time.Duration(jobx.BackoffBase(1, count) * float64(time.Second))
		for _, jitter := range []float64{0, 0.25, 0.999, 1, -1} {
			d := jobx.BackoffDelay(1, count, jitter)
			if d < base || d >= 2*base {
				t.Fatalf("count %d jitter %v: delay %v outside [%v, %v)", count, jitter, d, base, 2*base)
			}
		}
		lo := jobx.BackoffDelay(1, count, 0)
		if lo < prev {
			t.Fatalf("count %d: delay %v shrank from %v", count, lo, prev)
		}
		prev = lo
	}
}

func TestNextAfterFailure_UsesBackoff(t *testing.T) {
	j := &jobx.Job{RetryLimit: 10, RetryCount: 3, RetryDelay: 2, RetryBackoff: true}
	tr := jobx.NextAfterFailure(j, jobx.StateFailed, now, 0.5)

	// base = 2 * 2^4 / 2 = 16s, jittered by half
	if want := now.Add(24 * time.Second); !tr.StartAfter.Equal(want) {
		t.Fatalf("expected %v, got %v", want, tr.StartAfter)
	}
}

func TestNextAfterFailure_LargeDelaySaturatesInFuture(t *testing.T) {
	var prev time.Time
	for count := 10; count < 20; count++ {
		j := &jobx.Job{RetryLimit: 20, RetryCount: count, RetryDelay: 200000, RetryBackoff: true}
		tr := jobx.NextAfterFailure(j, jobx.StateFailed, now, 0.9)
		if tr.State != jobx.StateRetry {
			t.Fatalf("count %d: expected retry, got %s", count, tr.State)
		}
		if !tr.StartAfter.After(now) {
			t.Fatalf("count %d: startAfter %v is not after now", count, tr.StartAfter)
		}
		if tr.StartAfter.Before(prev) {
			t.Fatalf("count %d: startAfter %v went back from %v", count, tr.StartAfter, prev)
		}
		prev = tr.StartAfter
	}
	if !prev.Equal(now.Add(jobx.MaxRetryWait)) {
		t.Fatalf("expected saturation at now+MaxRetryWait, got %v", prev)
	}
}

func TestBackoffDelay_NeverNegative(t *testing.T) {
	for _, delay := range []int{140000, 1 << 20, 1 << 40} {
		for _, jitter := range []float64{0, 0.5, 0.999999} {
			if d := jobx.BackoffDelay(delay, 16, jitter); d <= 0 || d > jobx.MaxRetryWait {
				t.Fatalf("delay %d jitter %v: got %v", delay, jitter, d)
			}
		}
	}

	j := &jobx.Job{RetryLimit: 1, RetryDelay: 1 << 40}
	if tr := jobx.NextAfterFailure(j, jobx.StateFailed, now, 0); !tr.StartAfter.After(now) {
		t.Fatalf("fixed delay overflowed: %v", tr.StartAfter)
	}
}
