// Package jobxredis carries jobx wake-ups over Redis pub/sub, so workers in
// other processes claim new jobs as soon as they are enqueued.
package jobxredis

import (
	"context"
	"strings"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to queue names to form channel names.
const DefaultPrefix = "pgque:wake:"

// Waker implements jobx.Waker on Redis pub/sub.
type Waker struct {
	rdb    *redis.Client
	prefix string
}

var _ jobx.Waker = (*Waker)(nil)

// Option configures a Waker.
type Option func(*Waker)

// WithPrefix changes the channel prefix, e.g. to isolate environments
// sharing one Redis.
func WithPrefix(prefix string) Option {
	return func(w *Waker) {
		if prefix != "" {
			w.prefix = prefix
		}
	}
}

// NewWaker creates a Redis-backed waker.
func NewWaker(rdb *redis.Client, opts ...Option) *Waker {
	w := &Waker{rdb: rdb, prefix: DefaultPrefix}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Channel returns the pub/sub channel for queue name.
func (w *Waker) Channel(name string) string { return w.prefix + name }

func (w *Waker) name(channel string) string { return strings.TrimPrefix(channel, w.prefix) }

// Notify publishes a wake-up for name.
func (w *Waker) Notify(ctx context.Context, name string) error {
	if err := w.rdb.Publish(ctx, w.Channel(name), name).Err(); err != nil {
		return redisErrors.NewWithCause(ErrPublish, err).WithDetail("name", name)
	}
	return nil
}

// Subscribe listens for wake-ups on names until ctx is done. Bursts are
// coalesced: a wake-up arriving while the channel buffer is full is dropped.
func (w *Waker) Subscribe(ctx context.Context, names ...string) (<-chan string, error) {
	channels := make([]string, len(names))
	for i, n := range names {
		channels[i] = w.Channel(n)
	}

	ps := w.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, redisErrors.NewWithCause(ErrSubscribe, err).WithDetail("channels", channels)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- w.name(msg.Channel):
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the connection.
func (w *Waker) Ping(ctx context.Context) error {
	if err := w.rdb.Ping(ctx).Err(); err != nil {
		return redisErrors.NewWithCause(ErrUnavailable, err)
	}
	return nil
}
