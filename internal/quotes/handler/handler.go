package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/quotes/service"
	"cotizador_backend/internal/quotes/transport"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	contentTypePDF = "application/pdf"
	maxBodyBytes   = 1 << 20

	HeaderQuoteTotal    = "X-Quote-Total"
	HeaderCatalogSource = "X-Catalog-Source"
	HeaderQuoteWarnings = "X-Quote-Warnings"
)

// QuoteService is the part of the quote service the handler uses.
type QuoteService interface {
	Generate(ctx context.Context, raw []byte) (service.QuoteResult, error)
	Price(raw []byte) (service.PricedQuote, domain.Source, error)
}

// Handler handles HTTP requests for quotations.
type Handler struct {
	svc QuoteService
}

// New creates a new quotes handler.
func New(svc QuoteService) *Handler {
	return &Handler{svc: svc}
}

// Generate handles POST /generar-cotizacion.
func (h *Handler) Generate(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	res, err := h.svc.Generate(c.Request.Context(), raw)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	c.Header(HeaderQuoteTotal, strconv.FormatInt(res.TotalCents, 10))
	c.Header(HeaderCatalogSource, string(res.CatalogSource))
	if len(res.Warnings) > 0 {
		c.Header(HeaderQuoteWarnings, headerSafe(strings.Join(res.Warnings, "; ")))
	}
	c.Data(http.StatusOK, contentTypePDF, res.PDF)
}

// Preview handles POST /calcular-cotizacion: the same pricing as Generate,
// returned as JSON without rendering a document.
func (h *Handler) Preview(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	pq, source, err := h.svc.Price(raw)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.PreviewResponse{
		Machine:       pq.Machine.ID,
		Template:      pq.Machine.Template,
		Customer:      pq.Request.Customer.Name,
		Currency:      pq.Request.Currency,
		BaseCents:     pq.BaseCents,
		TotalCents:    pq.TotalCents,
		Lines:         make([]transport.PreviewLine, 0, len(pq.Lines)),
		Warnings:      pq.Warnings,
		CatalogSource: string(source),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, l := range pq.Lines {
		resp.Lines = append(resp.Lines, transport.PreviewLine{Step: l.Step, Value: l.Value, DeltaCents: l.DeltaCents})
	}
	httpkit.OK(c, resp)
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.HandleError(c, apperr.BadRequest("request body too large").WithCode(apperr.CodeValidation))
			return nil, false
		}
		httpkit.HandleError(c, apperr.BadRequest("could not read request body").WithCode(apperr.CodeValidation))
		return nil, false
	}
	return raw, true
}

// headerSafe folds accents and replaces anything outside printable ASCII.
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, domain.FoldAccents(s))
}
