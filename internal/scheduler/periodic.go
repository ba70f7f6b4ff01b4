package scheduler

import (
	"context"
	"fmt"
	"time"

	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring catalog.refresh task with asynq.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, interval time.Duration, log *logger.Logger) (*Periodic, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("catalog refresh interval must be positive")
	}
	opt, err := RedisOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("catalog refresh enqueue failed", "error", err)
				return
			}
			log.Debug("catalog refresh enqueued", "task_id", info.ID, "queue", info.Queue)
		},
	})

	task, err := NewCatalogRefreshTask(CatalogRefreshPayload{Reason: "periodic"})
	if err != nil {
		return nil, err
	}
	spec := CronSpec(interval)
	entryID, err := scheduler.Register(spec, task, refreshOptions(queueName(cfg))...)
	if err != nil {
		return nil, fmt.Errorf("register catalog refresh: %w", err)
	}
	log.Info("catalog refresh scheduled", "spec", spec, "entry_id", entryID)

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// CronSpec turns an interval into an "@every" spec rounded to whole seconds.
func CronSpec(interval time.Duration) string {
	interval = interval.Round(time.Second)
	if interval < time.Second {
		interval = time.Second
	}
	return "@every " + interval.String()
}

// Run starts the scheduler and blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
