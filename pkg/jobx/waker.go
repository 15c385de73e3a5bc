package jobx

import (
	"context"
	"sync"
)

// Waker carries "work is ready" signals from producers to idle workers so
// they claim right away instead of waiting for the next poll. Signals are
// hints: a lost one only delays a claim until the next poll.
type Waker interface {
	Notify(ctx context.Context, name string) error
	// Subscribe returns a channel receiving the names of queues that got
	// work. It is closed when ctx is done.
	Subscribe(ctx context.Context, names ...string) (<-chan string, error)
}

type nopWaker struct{}

func (nopWaker) Notify(context.Context, string) error { return nil }

func (nopWaker) Subscribe(context.Context, ...string) (<-chan string, error) {
	return nil, nil
}

// LocalWaker delivers wake-ups between producers and workers of the same
// process.
type LocalWaker struct {
	mu   sync.Mutex
	subs map[*localSub]struct{}
}

type localSub struct {
	names map[string]struct{}
	ch    chan string
}

// NewLocalWaker creates an in-process waker.
func NewLocalWaker() *LocalWaker {
	return &LocalWaker{subs: make(map[*localSub]struct{})}
}

// Notify signals every subscriber of name without blocking.
func (w *LocalWaker) Notify(_ context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for s := range w.subs {
		if _, ok := s.names[name]; !ok {
			continue
		}
		select {
		case s.ch <- name:
		default:
		}
	}
	return nil
}

// Subscribe registers interest in names until ctx is done.
func (w *LocalWaker) Subscribe(ctx context.Context, names ...string) (<-chan string, error) {
	s := &localSub{names: make(map[string]struct{}, len(names)), ch: make(chan string, 16)}
	for _, n := range names {
		s.names[n] = struct{}{}
	}

	w.mu.Lock()
	w.subs[s] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, s)
		close(s.ch)
		w.mu.Unlock()
	}()
	return s.ch, nil
}
