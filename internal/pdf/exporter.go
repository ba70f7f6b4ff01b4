// Package pdf converts filled quotation documents to PDF.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"cotizador_backend/internal/document"
	"cotizador_backend/platform/apperr"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine names accepted by PDF_ENGINE.
const (
	EngineAuto      = "auto"
	EngineGotenberg = "gotenberg"
	EngineSoffice   = "soffice"
)

// Exporter turns a filled DOCX into PDF bytes.
type Exporter interface {
	Export(ctx context.Context, doc document.FilledDocument) ([]byte, error)
	Name() string
}

// EngineConfig selects and configures the conversion engine.
type EngineConfig struct {
	Engine            string
	SofficePath       string
	GotenbergURL      string
	GotenbergUsername string
	GotenbergPassword string
}

// NewExporter builds the exporter named by cfg.Engine. "auto" prefers
// Gotenberg when a URL is configured and falls back to a local soffice.
// A missing soffice binary is not an error here; Export reports it.
func NewExporter(cfg EngineConfig) (Exporter, error) {
	engine := strings.ToLower(strings.TrimSpace(cfg.Engine))
	switch engine {
	case "", EngineAuto:
		if cfg.GotenbergURL != "" {
			return NewGotenbergClient(cfg.GotenbergURL, cfg.GotenbergUsername, cfg.GotenbergPassword), nil
		}
		return NewSofficeExporter(cfg.SofficePath), nil
	case EngineGotenberg:
		if cfg.GotenbergURL == "" {
			return nil, fmt.Errorf("pdf engine gotenberg requires GOTENBERG_URL")
		}
		return NewGotenbergClient(cfg.GotenbergURL, cfg.GotenbergUsername, cfg.GotenbergPassword), nil
	case EngineSoffice:
		return NewSofficeExporter(cfg.SofficePath), nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.Engine)
	}
}

// Inspect validates pdf with pdfcpu and returns its page count.
func Inspect(pdf []byte) (int, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, fmt.Errorf("output is not a PDF")
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu validate: %w", err)
	}
	if ctx.PageCount < 1 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return ctx.PageCount, nil
}

func unavailable(engine, msg string, err error) *apperr.Error {
	return apperr.Wrap(apperr.KindInternal, msg, err).
		WithCode(apperr.CodeExportUnavailable).
		WithOp("pdf." + engine)
}

func failed(engine, msg string, err error) *apperr.Error {
	return apperr.Wrap(apperr.KindInternal, msg, err).
		WithCode(apperr.CodeExportFailed).
		WithOp("pdf." + engine)
}
