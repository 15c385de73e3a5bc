package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/pgque/pkg/config"
	"github.com/Abraxas-365/pgque/pkg/logx"
)

func main() {
	benchN := flag.Int("bench", 0, "enqueue, claim and complete N jobs, report throughput and exit")
	flag.Parse()

	// 1. Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("🚀 Starting pgque...")

	// 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Dependency container
	container := NewContainer(ctx, cfg)
	defer container.Cleanup()

	if *benchN > 0 {
		if err := runBench(ctx, container, *benchN); err != nil {
			logx.Errorf("Bench failed: %v", err)
		}
		return
	}

	// 4. Handlers and background services
	registerHandlers(container)
	done := container.StartBackgroundServices(ctx)

	// 5. Ops server
	if cfg.Server.Enabled {
		startServer(ctx, newApp(container), cfg.Server.Port)
	} else {
		<-ctx.Done()
	}

	logx.Info("🛑 Shutdown requested, waiting for workers...")
	<-done
	logx.Info("✅ pgque exited successfully")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
