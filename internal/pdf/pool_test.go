package pdf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cotizador_backend/internal/document"
	"cotizador_backend/internal/pdf/pdftest"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/logger"
)

type fakeExporter struct {
	out     []byte
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeExporter) Name() string { return "fake" }

func (f *fakeExporter) Export(ctx context.Context, _ document.FilledDocument) ([]byte, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

func TestInspect(t *testing.T) {
	pages, err := Inspect(pdftest.Minimal("Cotización CM640"))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if pages != 1 {
		t.Fatalf("expected 1 page, got %d", pages)
	}
	if _, err := Inspect([]byte("PK\x03\x04 not a pdf")); err == nil {
		t.Fatalf("expected error for non-pdf bytes")
	}
	if _, err := Inspect([]byte("%PDF-1.4\ngarbage")); err == nil {
		t.Fatalf("expected error for truncated pdf")
	}
}

func TestPool_ExportValidatesOutput(t *testing.T) {
	p := NewPool(&fakeExporter{out: pdftest.Minimal("ok")}, 1, 0, time.Second, logger.Discard())
	out, err := p.Export(context.Background(), document.FilledDocument{})
	if err != nil || len(out) == 0 {
		t.Fatalf("expected pdf, got %d bytes, err %v", len(out), err)
	}

	p = NewPool(&fakeExporter{out: []byte("<html>")}, 1, 0, time.Second, logger.Discard())
	if _, err := p.Export(context.Background(), document.FilledDocument{}); !apperr.HasCode(err, apperr.CodeExportFailed) {
		t.Fatalf("expected export_failed, got %v", err)
	}
}

func TestPool_KeepsTypedErrors(t *testing.T) {
	typed := unavailable("fake", "engine missing", nil)
	p := NewPool(&fakeExporter{err: typed}, 1, 0, time.Second, logger.Discard())
	if _, err := p.Export(context.Background(), document.FilledDocument{}); !apperr.HasCode(err, apperr.CodeExportUnavailable) {
		t.Fatalf("expected export_unavailable, got %v", err)
	}

	p = NewPool(&fakeExporter{err: errors.New("boom")}, 1, 0, time.Second, logger.Discard())
	if _, err := p.Export(context.Background(), document.FilledDocument{}); !apperr.HasCode(err, apperr.CodeExportFailed) {
		t.Fatalf("expected export_failed for untyped error, got %v", err)
	}
}

func TestPool_RejectsBeyondQueue(t *testing.T) {
	fake := &fakeExporter{
		out:     pdftest.Minimal("ok"),
		release: make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	p := NewPool(fake, 1, 1, 5*time.Second, logger.Discard())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Export(context.Background(), document.FilledDocument{})
			errs <- err
		}()
		if i == 0 {
			<-fake.started
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.waiting.Load() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("second export never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := p.Export(context.Background(), document.FilledDocument{})
	if !apperr.HasCode(err, apperr.CodeExportBusy) {
		t.Fatalf("expected export_busy, got %v", err)
	}
	if apperr.GetKind(err) != apperr.KindUnavailable {
		t.Fatalf("expected unavailable kind, got %v", apperr.GetKind(err))
	}

	close(fake.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("queued export failed: %v", err)
		}
	}
}

func TestPool_Timeout(t *testing.T) {
	fake := &fakeExporter{out: pdftest.Minimal("late"), release: make(chan struct{})}
	p := NewPool(fake, 1, 0, 20*time.Millisecond, logger.Discard())

	_, err := p.Export(context.Background(), document.FilledDocument{})
	if !apperr.HasCode(err, apperr.CodeExportFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline export failure, got %v", err)
	}
}

func TestNewExporter(t *testing.T) {
	cases := []struct {
		cfg  EngineConfig
		want string
		err  bool
	}{
		{EngineConfig{Engine: "auto", GotenbergURL: "http://gotenberg:3000"}, EngineGotenberg, false},
		{EngineConfig{Engine: ""}, EngineSoffice, false},
		{EngineConfig{Engine: "SOFFICE"}, EngineSoffice, false},
		{EngineConfig{Engine: "gotenberg"}, "", true},
		{EngineConfig{Engine: "wkhtmltopdf"}, "", true},
	}
	for _, tc := range cases {
		exp, err := NewExporter(tc.cfg)
		if tc.err {
			if err == nil {
				t.Fatalf("%+v: expected error", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%+v: %v", tc.cfg, err)
		}
		if exp.Name() != tc.want {
			t.Fatalf("%+v: expected %s, got %s", tc.cfg, tc.want, exp.Name())
		}
	}
}
