package asyncx_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/asyncx"
)

func TestAll_PreservesOrder(t *testing.T) {
	got, err := asyncx.All(context.Background(),
		func(context.Context) (int, error) { time.Sleep(5 * time.Millisecond); return 1, nil },
		func(context.Context) (int, error) { return 2, nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := asyncx.Pool(context.Background(), 3, items, func(context.Context, int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent workers, saw %d", peak.Load())
	}
}

func TestRetryWithBackoffIf_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0

	_, err := asyncx.RetryWithBackoffIf(context.Background(), 5, time.Millisecond,
		func(err error) bool { return !errors.Is(err, permanent) },
		func(context.Context) (int, error) {
			calls++
			return 0, permanent
		})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := asyncx.RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("busy")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("expected ok, got %q %v", v, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
