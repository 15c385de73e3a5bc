package jobx_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxtest"
)

type recordingWaker struct {
	mu    sync.Mutex
	names []string
}

func (w *recordingWaker) Notify(_ context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.names = append(w.names, name)
	return nil
}

func (w *recordingWaker) Subscribe(context.Context, ...string) (<-chan string, error) {
	return nil, nil
}

func newTestQueue(opts ...jobx.QueueOption) (*jobx.Queue, *jobxtest.Clock) {
	clock := jobxtest.NewClock(jobxtest.Epoch)
	base := []jobx.QueueOption{
		jobx.WithClock(clock.Now),
		jobx.WithJitter(func() float64 { return 0 }),
		jobx.WithLogger(jobxtest.QuietLogger()),
	}
	return jobx.NewQueue(jobxmemory.New(), append(base, opts...)...), clock
}

func TestEnqueue_RejectsBadArguments(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	tests := []struct {
		name string
		job  string
		data any
		opts []jobx.EnqueueOption
	}{
		{"empty name", "", nil, nil},
		{"reserved prefix", jobx.CompletionName("x"), nil, nil},
		{"negative retry limit", "q", nil, []jobx.EnqueueOption{jobx.WithRetryLimit(-1)}},
		{"negative retry delay", "q", nil, []jobx.EnqueueOption{jobx.WithRetryDelay(-1)}},
		{"negative delay", "q", nil, []jobx.EnqueueOption{jobx.WithDelay(-time.Second)}},
		{"zero expireIn", "q", nil, []jobx.EnqueueOption{jobx.WithExpireIn(0)}},
		{"negative window", "q", nil, []jobx.EnqueueOption{jobx.WithSingletonWindow(-1)}},
		{"invalid raw json", "q", json.RawMessage(`{"a":`), nil},
		{"unencodable data", "q", make(chan int), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := q.Enqueue(ctx, tt.job, tt.data, tt.opts...)
			if !jobx.IsInvalidArgument(err) {
				t.Fatalf("expected invalid argument, got id=%q err=%v", id, err)
			}
		})
	}
}

func TestEnqueue_KeepsRawJSON(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "q", []byte(`{"n":1}`))
	if err != nil {
		t.Fatal(err)
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(job.Data) != `{"n":1}` {
		t.Fatalf("unexpected data %s", job.Data)
	}
}

func TestEnqueue_StartAfterWinsOverDelay(t *testing.T) {
	q, clock := newTestQueue()
	ctx := context.Background()
	at := clock.Now().Add(time.Hour)

	id, err := q.Enqueue(ctx, "q", nil, jobx.WithStartAfter(at), jobx.WithDelay(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	job, _ := q.GetJob(ctx, id)
	if !job.StartAfter.Equal(at) {
		t.Fatalf("expected start after %v, got %v", at, job.StartAfter)
	}
}

func TestEnqueue_WakesOnlyForReadyJobs(t *testing.T) {
	w := &recordingWaker{}
	q, _ := newTestQueue(jobx.WithWaker(w))
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, "now", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, "later", nil, jobx.WithDelay(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if len(w.names) != 1 || w.names[0] != "now" {
		t.Fatalf("expected a single wake-up for %q, got %v", "now", w.names)
	}
}

func TestComplete_EmptyIDs(t *testing.T) {
	q, _ := newTestQueue()
	n, err := q.Complete(context.Background(), nil, nil)
	if err != nil || n != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", n, err)
	}
}

func TestComplete_DeduplicatesIDs(t *testing.T) {
	q, _ := newTestQueue()
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, "q", nil)
	if _, err := q.Claim(ctx, "q", 1); err != nil {
		t.Fatal(err)
	}
	n, err := q.Complete(ctx, []string{id, strings.ToUpper(id), id}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 affected job, got %d", n)
	}
}

func TestClaim_RejectsUnusablePatterns(t *testing.T) {
	q, _ := newTestQueue()
	for _, pattern := range []string{"", `q\`, `a\\\`} {
		if _, err := q.Claim(context.Background(), pattern, 1); !jobx.IsInvalidArgument(err) {
			t.Fatalf("pattern %q: expected invalid argument, got %v", pattern, err)
		}
	}
}

func TestValidatePattern_AcceptsEscapedEscape(t *testing.T) {
	for _, pattern := range []string{`q\\`, jobx.EscapePattern(`a\b_%`), "email%"} {
		if err := jobx.ValidatePattern(pattern); err != nil {
			t.Fatalf("pattern %q: %v", pattern, err)
		}
	}
}

func TestGetJob_NotFound(t *testing.T) {
	q, _ := newTestQueue()
	_, err := q.GetJob(context.Background(), "7d2b1c1e-4a52-4d2f-8a0e-5f0c3f1b2a99")
	if !jobx.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteQueue_RequiresName(t *testing.T) {
	q, _ := newTestQueue()
	if _, err := q.DeleteQueue(context.Background(), ""); !jobx.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
