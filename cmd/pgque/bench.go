package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/pgque/pkg/asyncx"
	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/logx"
)

const (
	benchQueue     = "pgque-bench"
	benchBatchSize = 10
)

type benchPayload struct {
	Seq int `json:"seq"`
}

type benchResult struct {
	Enqueued    int
	Completed   int
	EnqueueTime time.Duration
	DrainTime   time.Duration
}

// runBench enqueues n jobs, drains them in batches of benchBatchSize and
// removes what it created.
func runBench(ctx context.Context, container *Container, n int) error {
	res, err := bench(ctx, container.Queue, n, container.Config.Queue.Concurrency)
	if err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"enqueued":       res.Enqueued,
		"completed":      res.Completed,
		"enqueue_time":   res.EnqueueTime.String(),
		"drain_time":     res.DrainTime.String(),
		"enqueue_per_s":  perSecond(res.Enqueued, res.EnqueueTime),
		"complete_per_s": perSecond(res.Completed, res.DrainTime),
	}).Info("📊 Bench finished")
	return nil
}

func bench(ctx context.Context, q *jobx.Queue, n, workers int) (benchResult, error) {
	var res benchResult

	if _, err := q.DeleteQueue(ctx, benchQueue); err != nil {
		return res, err
	}

	items := make([]benchPayload, n)
	for i := range items {
		items[i] = benchPayload{Seq: i}
	}

	start := time.Now()
	ids, err := asyncx.Pool(ctx, workers, items, func(ctx context.Context, p benchPayload) (string, error) {
		return q.Enqueue(ctx, benchQueue, p)
	})
	if err != nil {
		return res, err
	}
	res.Enqueued = len(ids)
	res.EnqueueTime = time.Since(start)

	start = time.Now()
	pattern := jobx.EscapePattern(benchQueue)
	for res.Completed < res.Enqueued {
		jobs, err := q.Claim(ctx, pattern, benchBatchSize)
		if err != nil {
			return res, err
		}
		if len(jobs) == 0 {
			break
		}
		claimed := make([]string, len(jobs))
		for i, j := range jobs {
			claimed[i] = j.ID
		}
		done, err := q.Complete(ctx, claimed, nil)
		if err != nil {
			return res, err
		}
		res.Completed += done
	}
	res.DrainTime = time.Since(start)

	for _, name := range []string{benchQueue, jobx.CompletionName(benchQueue)} {
		if _, err := q.DeleteQueue(ctx, name); err != nil {
			return res, err
		}
	}
	return res, nil
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
