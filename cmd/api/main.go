package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cotizador_backend/internal/adapters/storage"
	"cotizador_backend/internal/catalog"
	"cotizador_backend/internal/document"
	"cotizador_backend/internal/events"
	apphttp "cotizador_backend/internal/http"
	"cotizador_backend/internal/http/router"
	"cotizador_backend/internal/quotes"
	"cotizador_backend/internal/scheduler"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"
	"cotizador_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	templates, err := document.NewTemplateRegistry(cfg.GetTemplatesDir())
	if err != nil {
		log.Error("failed to scan templates", "error", err, "dir", cfg.GetTemplatesDir())
		panic("failed to scan templates: " + err.Error())
	}
	log.Info("templates loaded", "dir", templates.Dir(), "count", len(templates.TemplateNames()))

	initQuoteArchive(ctx, cfg, eventBus, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	catalogModule, err := catalog.NewModule(cfg, templates, log)
	if err != nil {
		log.Error("failed to initialize catalog module", "error", err)
		panic("failed to initialize catalog module: " + err.Error())
	}
	res := catalogModule.Bootstrap(ctx)
	log.Info("catalog bootstrap finished", "ok", res.OK, "source", string(res.Source), "items", res.Items)

	quotesModule, err := quotes.NewModule(cfg, catalogModule.Store(), templates, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize quotes module", "error", err)
		panic("failed to initialize quotes module: " + err.Error())
	}

	startCatalogRefresh(ctx, cfg, catalogModule.Synchronizer(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			catalogModule,
			quotesModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.GetPDFExportTimeout() + 30*time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetPDFExportTimeout()+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initQuoteArchive subscribes the MinIO archive when storage is configured.
// Archive failures never block quote generation.
func initQuoteArchive(ctx context.Context, cfg *config.Config, bus events.Bus, log *logger.Logger) {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; quote archive disabled")
		return
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		return
	}
	bucket := cfg.GetMinioBucketQuotePDFs()
	if err := withRetry(ctx, log, "ensure quote-pdfs bucket", 3, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists; quote archive disabled", "error", err, "bucket", bucket)
		return
	}

	storage.NewQuoteArchiver(storageSvc, bucket, log).Subscribe(bus)
	log.Info("quote archive enabled", "bucket", bucket)
}

// startCatalogRefresh runs the asynq worker when Redis is configured and the
// in-process ticker otherwise.
func startCatalogRefresh(ctx context.Context, cfg *config.Config, syncer scheduler.CatalogSyncer, log *logger.Logger) {
	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, syncer, log)
		if err != nil {
			log.Error("failed to initialize catalog refresh worker", "error", err)
		} else {
			go worker.Run(ctx)
			log.Info("catalog refresh worker started", "queue", cfg.GetAsynqQueueName())
			return
		}
	}

	interval := cfg.GetCatalogRefreshInterval()
	if interval <= 0 {
		interval = cfg.GetCatalogSyncTTL()
	}
	go scheduler.NewRefresher(syncer, log, interval).Run(ctx)
	log.Info("in-process catalog refresher started", "interval", interval.String())
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
