package jobx_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

func TestNewSupervisor_ValidatesOptions(t *testing.T) {
	q, _ := newTestQueue()

	opts := jobx.DefaultSupervisorOptions()
	opts.ArchiveRetention = 0
	if _, err := jobx.NewSupervisor(q, opts); !jobx.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSupervisor_RunOnce(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()

	opts := jobx.SupervisorOptions{
		ExpireInterval:   time.Minute,
		ArchiveInterval:  time.Minute,
		ArchiveRetention: time.Hour,
		PurgeRetention:   time.Hour,
	}
	s, err := jobx.NewSupervisor(q, opts)
	if err != nil {
		t.Fatal(err)
	}

	stuck, _ := q.Enqueue(ctx, "q", nil, jobx.WithRetryLimit(0), jobx.WithExpireIn(time.Minute))
	if _, err := q.Claim(ctx, "q", 1); err != nil {
		t.Fatal(err)
	}

	clock.Advance(2 * time.Minute)
	res, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Expired != 1 || res.Archived != 0 || res.Purged != 0 {
		t.Fatalf("unexpected first sweep %+v", res)
	}

	clock.Advance(2 * time.Hour)
	res, err = s.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// the expired job and its completion record
	if res.Archived != 2 {
		t.Fatalf("expected 2 archived, got %+v", res)
	}

	clock.Advance(2 * time.Hour)
	res, err = s.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Purged != 2 {
		t.Fatalf("expected 2 purged, got %+v", res)
	}
	if _, err := q.GetArchivedJob(ctx, stuck); !jobx.IsNotFound(err) {
		t.Fatalf("expected purged job to be gone, got %v", err)
	}
}

func TestSupervisor_StartStopsOnCancel(t *testing.T) {
	q, _ := newTestQueue()
	s, err := jobx.NewSupervisor(q, jobx.DefaultSupervisorOptions())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
