// Package catalog provides the catalog bounded context module: the in-memory
// pricing snapshot, its synchronization from the remote spreadsheet and the
// local fallback file.
package catalog

import (
	"context"
	"fmt"
	"net/http"

	"cotizador_backend/internal/catalog/handler"
	"cotizador_backend/internal/catalog/repository"
	"cotizador_backend/internal/catalog/service"
	"cotizador_backend/internal/catalog/sheets"
	apphttp "cotizador_backend/internal/http"
	"cotizador_backend/platform/config"
	"cotizador_backend/platform/logger"
)

// ModuleConfig combines the config interfaces the catalog needs.
type ModuleConfig interface {
	config.SheetsConfig
	config.CatalogSyncConfig
}

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	sync    *service.Synchronizer
	store   *repository.Store
	log     *logger.Logger
}

// NewModule creates and initializes the catalog module. templates may be nil.
func NewModule(cfg ModuleConfig, templates handler.TemplateLister, log *logger.Logger) (*Module, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore()
	fallback := repository.NewFallbackFile(cfg.GetCatalogFallbackPath())
	syncer := service.NewSynchronizer(store, fetcher, fallback, service.Options{
		TTL:     cfg.GetCatalogSyncTTL(),
		Timeout: cfg.GetCatalogSyncTimeout(),
	}, log)

	guard := service.NewAccessGuard(cfg.GetSyncToken())
	if !guard.Enabled() {
		log.Warn("VC999_SYNC_TOKEN not configured; /sync-catalog will reject every request")
	}

	return &Module{
		handler: handler.New(syncer, store, guard, templates, log),
		sync:    syncer,
		store:   store,
		log:     log,
	}, nil
}

// newFetcher picks the remote fetch mode: service account credentials win
// over the public CSV export. No sheet id means no remote source.
func newFetcher(cfg config.SheetsConfig) (service.Fetcher, error) {
	if !cfg.IsSheetsEnabled() {
		return nil, nil
	}
	tabs := sheets.Tabs{Machines: cfg.GetMachinesTab(), Prices: cfg.GetPricesTab()}
	if cfg.IsServiceAccountMode() {
		f, err := sheets.NewServiceAccountFetcherFromFile(cfg.GetGoogleCredentialsPath(), cfg.GetSheetsBaseURL(), cfg.GetGoogleSheetID(), tabs)
		if err != nil {
			return nil, fmt.Errorf("catalog service account: %w", err)
		}
		return f, nil
	}
	return sheets.NewCSVFetcher(&http.Client{}, cfg.GetSheetsBaseURL(), cfg.GetGoogleSheetID(), tabs), nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Store returns the snapshot store read by quote resolution.
func (m *Module) Store() *repository.Store {
	return m.store
}

// Synchronizer returns the sync service for background refreshers.
func (m *Module) Synchronizer() *service.Synchronizer {
	return m.sync
}

// Bootstrap performs the startup sync so the store is populated before the
// server accepts requests. A remote failure leaves the fallback in place.
func (m *Module) Bootstrap(ctx context.Context) service.SyncResult {
	res := m.sync.Sync(ctx, true)
	if m.store.Current() == nil {
		m.log.Error("catalog is empty after bootstrap; quotes will fail until a sync succeeds", "error", res.Error)
	}
	return res
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Root.POST("/sync-catalog", ctx.SyncRateLimiter.RateLimit(), m.handler.RequireSyncToken(), m.handler.Sync)
	ctx.Root.GET("/catalog/status", m.handler.Status)
	ctx.Root.GET("/catalog/machines", m.handler.Machines)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
