package pdf

import (
	"context"
	"sync/atomic"
	"time"

	"cotizador_backend/internal/document"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/logger"

	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent conversions. At most workers exports run at once
// and at most queue callers wait for a slot; further callers are rejected
// with an export_busy error.
type Pool struct {
	exporter   Exporter
	sem        *semaphore.Weighted
	maxWaiting int64
	waiting    atomic.Int64
	timeout    time.Duration
	log        *logger.Logger
}

// NewPool wraps exporter. workers below 1 is treated as 1; a timeout of
// zero disables the per-export deadline.
func NewPool(exporter Exporter, workers, queue int, timeout time.Duration, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{
		exporter:   exporter,
		sem:        semaphore.NewWeighted(int64(workers)),
		maxWaiting: int64(queue),
		timeout:    timeout,
		log:        log,
	}
}

// Name returns the wrapped engine's name.
func (p *Pool) Name() string { return p.exporter.Name() }

// Export converts doc once a slot is free and validates the result.
func (p *Pool) Export(ctx context.Context, doc document.FilledDocument) ([]byte, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.exporter.Export(ctx, doc)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, failed(p.exporter.Name(), "conversion failed", err)
	}

	pages, err := Inspect(out)
	if err != nil {
		return nil, failed(p.exporter.Name(), "invalid pdf output", err)
	}
	if p.log != nil {
		p.log.WithContext(ctx).Debug("pdf exported",
			"engine", p.exporter.Name(),
			"template", doc.Template,
			"pages", pages,
			"bytes", len(out),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return out, nil
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.sem.TryAcquire(1) {
		return nil
	}
	if p.waiting.Add(1) > p.maxWaiting {
		p.waiting.Add(-1)
		return apperr.Unavailable("pdf export queue is full").
			WithCode(apperr.CodeExportBusy).
			WithOp("pdf.Pool")
	}
	defer p.waiting.Add(-1)
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return failed(p.exporter.Name(), "gave up waiting for an export slot", err)
	}
	return nil
}
