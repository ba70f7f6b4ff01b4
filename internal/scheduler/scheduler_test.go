package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	catalogservice "cotizador_backend/internal/catalog/service"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type fakeSyncer struct {
	mu     sync.Mutex
	forced []bool
	result catalogservice.SyncResult
}

func (f *fakeSyncer) Sync(_ context.Context, forced bool) catalogservice.SyncResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, forced)
	return f.result
}

func (f *fakeSyncer) calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.forced...)
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("rediss://user:pw@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Username != "user" || opt.Password != "pw" || opt.DB != 2 {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS for rediss with REDIS_TLS_INSECURE")
	}

	opt, err = redisClientOpt("redis://localhost:6379", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.TLSConfig != nil {
		t.Fatal("plain redis must not use TLS")
	}

	if _, err := redisClientOpt("http://nope", false); err == nil {
		t.Fatal("expected invalid scheme error")
	}
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Fatal("expected missing redis url error")
	}
}

func TestClientEnqueuesUniqueCatalogRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{RedisURL: "redis://" + mr.Addr(), AsynqQueueName: "catalog"}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueCatalogRefresh(ctx, CatalogRefreshPayload{Reason: "manual"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := client.EnqueueCatalogRefresh(ctx, CatalogRefreshPayload{Reason: "manual"}); !errors.Is(err, asynq.ErrDuplicateTask) {
		t.Fatalf("expected duplicate task, got %v", err)
	}

	opt, _ := RedisOpt(cfg)
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	tasks, err := inspector.ListPendingTasks("catalog")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Type != TaskCatalogRefresh {
		t.Fatalf("expected one pending refresh, got %+v", tasks)
	}
	payload, err := ParseCatalogRefreshPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil || payload.Reason != "manual" || payload.Forced {
		t.Fatalf("unexpected payload %+v (%v)", payload, err)
	}
}

func TestWorkerHandlesCatalogRefresh(t *testing.T) {
	syncer := &fakeSyncer{result: catalogservice.SyncResult{OK: false, Error: "timeout"}}
	w := &Worker{sync: syncer, log: logger.Discard()}
	mux := w.routes()

	task, err := NewCatalogRefreshTask(CatalogRefreshPayload{Forced: true})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("failed syncs should not be retried: %v", err)
	}
	if err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskCatalogRefresh, nil)); err != nil {
		t.Fatalf("empty payload: %v", err)
	}
	if got := syncer.calls(); len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("unexpected sync calls %v", got)
	}

	err = mux.ProcessTask(context.Background(), asynq.NewTask(TaskCatalogRefresh, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry for bad payload, got %v", err)
	}
}

func TestRefresherRunsNonForcedSyncs(t *testing.T) {
	syncer := &fakeSyncer{result: catalogservice.SyncResult{OK: true}}
	r := NewRefresher(syncer, logger.Discard(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(syncer.calls()) < 2 {
		select {
		case <-deadline:
			t.Fatal("refresher did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	for _, forced := range syncer.calls() {
		if forced {
			t.Fatal("periodic refresh must not force")
		}
	}
}

func TestCronSpec(t *testing.T) {
	cases := map[time.Duration]string{
		5 * time.Minute:        "@every 5m0s",
		90 * time.Second:       "@every 1m30s",
		200 * time.Millisecond: "@every 1s",
	}
	for in, want := range cases {
		if got := CronSpec(in); got != want {
			t.Fatalf("CronSpec(%s) = %q, want %q", in, got, want)
		}
	}
	if _, err := NewPeriodic(&config.Config{RedisURL: "redis://localhost:6379"}, 0, logger.Discard()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
