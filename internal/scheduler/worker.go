package scheduler

import (
	"context"
	"fmt"

	catalogservice "cotizador_backend/internal/catalog/service"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CatalogSyncer refreshes the published catalog.
type CatalogSyncer interface {
	Sync(ctx context.Context, forced bool) catalogservice.SyncResult
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sync   CatalogSyncer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncer CatalogSyncer, log *logger.Logger) (*Worker, error) {
	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server: server,
		sync:   syncer,
		log:    log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCatalogRefresh, w.handleCatalogRefresh)
	return mux
}

// handleCatalogRefresh runs the sync. Failed syncs are logged, not retried.
func (w *Worker) handleCatalogRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCatalogRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("catalog refresh payload: %v: %w", err, asynq.SkipRetry)
	}

	res := w.sync.Sync(ctx, payload.Forced)
	if !res.OK {
		w.log.WithContext(ctx).Warn("catalog refresh task failed",
			"reason", payload.Reason,
			"source", string(res.Source),
			"error", res.Error,
		)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
