package jobx

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/pgque/pkg/logx"
)

// Supervisor runs the maintenance sweeps: expiring stale active jobs,
// archiving finished ones and purging the archive.
type Supervisor struct {
	queue *Queue
	opts  SupervisorOptions
}

// NewSupervisor creates a supervisor for queue.
func NewSupervisor(queue *Queue, opts SupervisorOptions) (*Supervisor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Supervisor{queue: queue, opts: opts}, nil
}

func (s *Supervisor) log() *logx.Entry { return s.queue.opts.Logger.Component("supervisor") }

// SweepResult counts what one pass of RunOnce changed.
type SweepResult struct {
	Expired  int
	Archived int
	Purged   int
}

// RunOnce runs every sweep once, in order expire, archive, purge.
func (s *Supervisor) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	var err error
	if res.Expired, err = s.queue.Expire(ctx); err != nil {
		return res, err
	}
	if res.Archived, res.Purged, err = s.maintain(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Supervisor) maintain(ctx context.Context) (archived, purged int, err error) {
	if archived, err = s.queue.Archive(ctx, s.opts.ArchiveRetention); err != nil {
		return 0, 0, err
	}
	if purged, err = s.queue.Purge(ctx, s.opts.PurgeRetention); err != nil {
		return archived, 0, err
	}
	return archived, purged, nil
}

// Start runs the sweeps on their intervals until ctx is cancelled. A failed
// sweep is logged and retried on the next tick.
func (s *Supervisor) Start(ctx context.Context) {
	s.log().WithFields(logx.Fields{
		"expire_interval":  s.opts.ExpireInterval.String(),
		"archive_interval": s.opts.ArchiveInterval.String(),
	}).Info("supervisor started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.every(ctx, s.opts.ExpireInterval, "expire", func(ctx context.Context) error {
			_, err := s.queue.Expire(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		s.every(ctx, s.opts.ArchiveInterval, "archive", func(ctx context.Context) error {
			_, _, err := s.maintain(ctx)
			return err
		})
	}()
	wg.Wait()

	s.log().Info("supervisor stopped")
}

func (s *Supervisor) every(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sweep(ctx); err != nil && ctx.Err() == nil {
			s.log().WithError(err).Warnf("%s sweep failed", name)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
