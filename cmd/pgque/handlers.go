package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/logx"
)

// registerHandlers attaches a logging handler to every configured queue.
// Real deployments embed jobx and register their own handlers; the binary
// serves as a drain and for smoke testing.
func registerHandlers(container *Container) {
	for _, name := range container.Config.Queue.Queues {
		container.Client.Register(name, logHandler)
		logx.Infof("  ✓ Handler registered for queue %q", name)
	}
}

func logHandler(_ context.Context, job *jobx.ClaimedJob) (any, error) {
	logx.GetDefaultLogger().Component("handler").
		WithJob(job.ID, job.Name).
		WithField("bytes", len(job.Data)).
		Info("job handled")
	return map[string]any{"handledAt": time.Now().UTC()}, nil
}
