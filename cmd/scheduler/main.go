package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cotizador_backend/internal/scheduler"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"
)

// The scheduler process only enqueues catalog.refresh tasks; API instances
// with REDIS_URL set consume them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	interval := cfg.GetCatalogRefreshInterval()
	if interval <= 0 {
		interval = cfg.GetCatalogSyncTTL()
	}
	log.Info("starting scheduler", "env", cfg.Env, "interval", interval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	periodic, err := scheduler.NewPeriodic(cfg, interval, log)
	if err != nil {
		log.Error("failed to initialize scheduler", "error", err)
		panic("failed to initialize scheduler: " + err.Error())
	}

	if err := periodic.Run(ctx); err != nil {
		log.Error("scheduler stopped", "error", err)
		panic("scheduler stopped: " + err.Error())
	}
	log.Info("scheduler stopped")
}
