package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/catalog/repository"
	"cotizador_backend/internal/document"
	"cotizador_backend/internal/events"
	"cotizador_backend/internal/pdf/pdftest"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/logger"
)

// writeTemplate stores a minimal DOCX whose body holds one paragraph per line.
func writeTemplate(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, l := range lines {
		body.WriteString(`<w:p><w:r><w:t>` + l + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

type recordingExporter struct {
	mu   sync.Mutex
	docs []document.FilledDocument
	err  error
}

func (e *recordingExporter) Export(_ context.Context, doc document.FilledDocument) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = append(e.docs, doc)
	if e.err != nil {
		return nil, e.err
	}
	return pdftest.Minimal("quote"), nil
}

type fixture struct {
	svc      *Service
	store    *repository.Store
	exporter *recordingExporter
	bus      *events.InMemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	writeTemplate(t, dir, "CM640.docx", "Cliente: {{cliente}}", "Modelo: {{modelo}}", "{{lineas}}", "Total: {{total}}")

	reg, err := document.NewTemplateRegistry(dir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := repository.NewStore()
	store.Swap(testSnapshot(t))
	exp := &recordingExporter{}
	log := logger.Discard()
	bus := events.NewInMemoryBus(log)

	svc := New(NewNormalizer(nil), store, document.NewRenderer(reg, nil, log), exp, Options{
		ToleranceCents: 100,
		Now:            func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
	}, log)
	svc.SetEventBus(bus)
	return &fixture{svc: svc, store: store, exporter: exp, bus: bus}
}

func TestGenerate_EndToEnd(t *testing.T) {
	f := newFixture(t)
	published := make(chan events.QuoteGenerated, 1)
	f.bus.Subscribe(events.QuoteGenerated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		published <- e.(events.QuoteGenerated)
		return nil
	}))

	res, err := f.svc.Generate(context.Background(), []byte(`{
		"machine": "CM640.docx",
		"basePrice": 17995,
		"totalPrice": 17995,
		"selections": [{"step": "Voltage", "value": "208V_3PH_60HZ", "price": 0}],
		"customer": {"name": "Chema", "email": "chema@example.com"}
	}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.TotalCents != 1799500 {
		t.Fatalf("expected total 17995.00, got %d", res.TotalCents)
	}
	if !bytes.HasPrefix(res.PDF, []byte("%PDF-")) {
		t.Fatalf("expected pdf bytes")
	}
	if res.FileName != "Cotizacion_CM640_Chema_20261018_120000.pdf" {
		t.Fatalf("unexpected file name %s", res.FileName)
	}
	if res.CatalogSource != domain.SourceSheets || len(res.Warnings) != 0 {
		t.Fatalf("unexpected source/warnings %s %v", res.CatalogSource, res.Warnings)
	}

	if len(f.exporter.docs) != 1 {
		t.Fatalf("expected one export, got %d", len(f.exporter.docs))
	}
	doc := f.exporter.docs[0]
	if doc.Template != "CM640.docx" {
		t.Fatalf("unexpected template %s", doc.Template)
	}
	zr, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		t.Fatalf("open filled docx: %v", err)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open body: %v", err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(rc)
	rc.Close()
	for _, want := range []string{"Cliente: Chema", "Modelo: CM640", "Voltaje: 208V_3PH_60HZ", "Total: US$17,995.00"} {
		if !strings.Contains(body.String(), want) {
			t.Fatalf("expected %q in filled document: %s", want, body.String())
		}
	}

	select {
	case e := <-published:
		if e.MachineID != "CM640" || e.TotalCents != 1799500 || e.QuoteID != res.QuoteID || len(e.PDF) == 0 {
			t.Fatalf("unexpected event %+v", e)
		}
		if !e.OccurredAt().Equal(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)) {
			t.Fatalf("event should use the service clock, got %s", e.OccurredAt())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("quote.generated not published")
	}
}

func TestGenerate_WarningsAndErrors(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), []byte(`{"modelo": "CM640", "nombre_cliente": "Chema", "precio_total": 1}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(res.Warnings) != 1 || res.TotalCents != 1799500 {
		t.Fatalf("expected a total warning and catalog total, got %v %d", res.Warnings, res.TotalCents)
	}

	_, err = f.svc.Generate(context.Background(), []byte(`{"modelo": "TS100", "nombre_cliente": "Chema"}`))
	if !apperr.HasCode(err, apperr.CodeTemplate) {
		t.Fatalf("expected template error for machine without template, got %v", err)
	}

	_, err = f.svc.Generate(context.Background(), []byte(`{"modelo": "CM640", "nombre_cliente": "Chema", "voltaje": "999V"}`))
	if !apperr.HasCode(err, apperr.CodeUnknownOption) {
		t.Fatalf("expected unknown option, got %v", err)
	}

	exportErr := apperr.Unavailable("busy").WithCode(apperr.CodeExportBusy)
	f.exporter.err = exportErr
	_, err = f.svc.Generate(context.Background(), []byte(`{"modelo": "CM640", "nombre_cliente": "Chema"}`))
	if !errors.Is(err, exportErr) {
		t.Fatalf("exporter error should pass through, got %v", err)
	}
}

func TestPrice_UsesCurrentSnapshot(t *testing.T) {
	f := newFixture(t)
	fallback, err := domain.NewSnapshot(domain.SourceFallback, "1", time.Now(), []domain.MachineEntry{
		{ID: "CM640", BasePriceCents: 1000000},
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	f.store.Swap(fallback)

	pq, source, err := f.svc.Price([]byte(`{"machine": "CM640", "customer": {"name": "x"}}`))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if source != domain.SourceFallback || pq.TotalCents != 1000000 {
		t.Fatalf("expected fallback pricing, got %s %d", source, pq.TotalCents)
	}
}
