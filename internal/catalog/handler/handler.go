package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/catalog/repository"
	"cotizador_backend/internal/catalog/service"
	"cotizador_backend/internal/catalog/transport"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/httpkit"
	"cotizador_backend/platform/logger"
)

// HeaderSyncToken carries the sync shared secret.
const HeaderSyncToken = "X-VC999-TOKEN"

// Syncer runs catalog synchronizations.
type Syncer interface {
	Sync(ctx context.Context, forced bool) service.SyncResult
	Status() service.Status
}

// TemplateLister reports the quotation templates available on disk.
type TemplateLister interface {
	TemplateNames() []string
}

// Handler handles HTTP requests for the catalog.
type Handler struct {
	sync      Syncer
	store     *repository.Store
	guard     *service.AccessGuard
	templates TemplateLister
	log       *logger.Logger
}

// New creates a new catalog handler. templates may be nil.
func New(sync Syncer, store *repository.Store, guard *service.AccessGuard, templates TemplateLister, log *logger.Logger) *Handler {
	return &Handler{sync: sync, store: store, guard: guard, templates: templates, log: log}
}

// RequireSyncToken rejects requests without the shared secret before any
// catalog access happens.
func (h *Handler) RequireSyncToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !h.guard.Authorize(c.GetHeader(HeaderSyncToken)) {
			reason := "invalid token"
			if !h.guard.Enabled() {
				reason = "sync token not configured"
			}
			h.log.WithContext(c.Request.Context()).AuthEvent("catalog_sync", ip, false, reason)
			httpkit.HandleError(c, apperr.Unauthorized("invalid sync token").WithCode(apperr.CodeSyncUnauthorized))
			return
		}
		h.log.WithContext(c.Request.Context()).AuthEvent("catalog_sync", ip, true, "")
		c.Next()
	}
}

// Sync forces a catalog refresh. Failures are reported in the body with 200.
// POST /sync-catalog
func (h *Handler) Sync(c *gin.Context) {
	res := h.sync.Sync(c.Request.Context(), true)
	httpkit.OK(c, toSyncResponse(res))
}

// Status reports the published snapshot.
// GET /catalog/status
func (h *Handler) Status(c *gin.Context) {
	st := h.sync.Status()
	httpkit.OK(c, transport.StatusResponse{
		Source:     string(st.Source),
		Version:    st.Version,
		UpdatedAt:  timePtr(st.UpdatedAt),
		Items:      st.Items,
		LastSync:   timePtr(st.LastSyncAt),
		LastResult: toSyncResponse(st.LastResult),
	})
}

// Machines lists quotable machines and template files.
// GET /catalog/machines
func (h *Handler) Machines(c *gin.Context) {
	resp := transport.MachinesResponse{
		Source:    string(domain.SourceNone),
		Machines:  []transport.MachineResponse{},
		Templates: []string{},
	}
	if h.templates != nil {
		resp.Templates = append(resp.Templates, h.templates.TemplateNames()...)
	}
	if snap := h.store.Current(); snap != nil {
		resp.Source = string(snap.Source())
		for _, id := range snap.MachineIDs() {
			m, _ := snap.Machine(id)
			resp.Machines = append(resp.Machines, toMachineResponse(m))
		}
	}
	httpkit.OK(c, resp)
}

func toSyncResponse(r service.SyncResult) transport.SyncResponse {
	return transport.SyncResponse{
		OK:        r.OK,
		Source:    string(r.Source),
		Mode:      r.Mode,
		UpdatedAt: timePtr(r.UpdatedAt),
		Items:     r.Items,
		Skipped:   r.Skipped,
		Error:     r.Error,
		Cached:    r.Cached,
	}
}

func toMachineResponse(m domain.MachineEntry) transport.MachineResponse {
	out := transport.MachineResponse{
		ID:             m.ID,
		DisplayID:      m.DisplayID,
		Template:       m.Template,
		BasePriceCents: m.BasePriceCents,
		Steps:          make([]transport.StepResponse, 0, len(m.Steps)),
	}
	for _, st := range m.Steps {
		step := transport.StepResponse{Name: st.Name, Kind: string(st.Kind)}
		for _, opt := range st.Options {
			step.Options = append(step.Options, transport.OptionResponse{Value: opt.Value, PriceCents: opt.PriceDeltaCents})
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
