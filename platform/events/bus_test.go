package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cotizador_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.happened" }

func TestPublishRunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.happened", HandlerFunc(func(ctx context.Context, e Event) error {
			calls.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublishSyncReturnsFirstErrorAndContinues(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	boom := errors.New("boom")
	var after bool
	bus.Subscribe("test.happened", HandlerFunc(func(ctx context.Context, e Event) error { return boom }))
	bus.Subscribe("test.happened", HandlerFunc(func(ctx context.Context, e Event) error {
		after = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: BaseEvent{Timestamp: time.Now()}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !after {
		t.Fatal("expected second handler to run")
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	bus.Subscribe("test.happened", HandlerFunc(func(ctx context.Context, e Event) error { panic("bad") }))

	if err := bus.PublishSync(context.Background(), testEvent{}); err == nil {
		t.Fatal("expected panic to surface as error")
	}
	bus.Publish(context.Background(), testEvent{})
	bus.Wait()
}
