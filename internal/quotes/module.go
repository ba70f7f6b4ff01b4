// Package quotes provides the quotation module: it turns quote requests into
// priced PDF documents.
package quotes

import (
	"fmt"

	"cotizador_backend/internal/document"
	apphttp "cotizador_backend/internal/http"
	"cotizador_backend/internal/pdf"
	"cotizador_backend/internal/quotes/handler"
	"cotizador_backend/internal/quotes/service"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/events"
	"cotizador_backend/platform/logger"
	"cotizador_backend/platform/validator"
)

// ModuleConfig combines the config interfaces the quotes module needs.
type ModuleConfig interface {
	config.TemplateConfig
	config.ExportConfig
	config.QuoteConfig
}

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(cfg ModuleConfig, catalog service.CatalogReader, templates *document.TemplateRegistry, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	mappings, err := document.LoadMappings(cfg.GetTemplateMappingsPath())
	if err != nil {
		return nil, err
	}
	exporter, err := pdf.NewExporter(pdf.EngineConfig{
		Engine:            cfg.GetPDFEngine(),
		SofficePath:       cfg.GetSofficePath(),
		GotenbergURL:      cfg.GetGotenbergURL(),
		GotenbergUsername: cfg.GetGotenbergUsername(),
		GotenbergPassword: cfg.GetGotenbergPassword(),
	})
	if err != nil {
		return nil, fmt.Errorf("pdf exporter: %w", err)
	}
	pool := pdf.NewPool(exporter, cfg.GetPDFExportWorkers(), cfg.GetPDFExportQueue(), cfg.GetPDFExportTimeout(), log)

	svc := service.New(
		service.NewNormalizer(val),
		catalog,
		document.NewRenderer(templates, mappings, log),
		pool,
		service.Options{ToleranceCents: cfg.GetPriceToleranceCents()},
		log,
	)
	svc.SetEventBus(eventBus)

	log.Info("quotes module ready",
		"pdf_engine", pool.Name(),
		"templates", len(templates.TemplateNames()),
		"export_workers", cfg.GetPDFExportWorkers(),
	)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Root.POST("/generar-cotizacion", ctx.QuoteRateLimiter.RateLimit(), m.handler.Generate)
	ctx.Root.POST("/calcular-cotizacion", ctx.QuoteRateLimiter.RateLimit(), m.handler.Preview)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
