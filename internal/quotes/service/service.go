// Package service implements quotation generation: request normalization,
// catalog pricing, document rendering and PDF export.
package service

import (
	"context"
	"time"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/document"
	"cotizador_backend/internal/events"
	"cotizador_backend/platform/logger"

	"github.com/google/uuid"
)

// CatalogReader exposes the current catalog snapshot.
type CatalogReader interface {
	Current() *domain.Snapshot
}

// Renderer fills the quotation template.
type Renderer interface {
	Render(ctx context.Context, data document.QuoteData) (document.FilledDocument, error)
}

// Exporter converts a filled document to PDF.
type Exporter interface {
	Export(ctx context.Context, doc document.FilledDocument) ([]byte, error)
}

// Options tunes the service. Zero values pick defaults.
type Options struct {
	ToleranceCents int64
	Now            func() time.Time
}

// Service runs the quote pipeline. Nothing is cached between requests.
type Service struct {
	normalizer *Normalizer
	catalog    CatalogReader
	renderer   Renderer
	exporter   Exporter
	eventBus   events.Bus
	tolerance  int64
	now        func() time.Time
	log        *logger.Logger
}

// New creates the quote service.
func New(normalizer *Normalizer, catalog CatalogReader, renderer Renderer, exporter Exporter, opts Options, log *logger.Logger) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		normalizer: normalizer,
		catalog:    catalog,
		renderer:   renderer,
		exporter:   exporter,
		tolerance:  opts.ToleranceCents,
		now:        now,
		log:        log,
	}
}

// SetEventBus sets the bus used to announce generated quotes.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

// Normalize exposes request normalization on its own.
func (s *Service) Normalize(raw []byte) (CanonicalQuoteRequest, error) {
	return s.normalizer.Normalize(raw)
}

// Price normalizes and prices a request without rendering it.
func (s *Service) Price(raw []byte) (PricedQuote, domain.Source, error) {
	req, err := s.normalizer.Normalize(raw)
	if err != nil {
		return PricedQuote{}, "", err
	}
	snap := s.catalog.Current()
	pq, err := Resolve(req, snap, s.tolerance)
	if err != nil {
		return PricedQuote{}, "", err
	}
	return pq, snap.Source(), nil
}

// Generate produces the quotation PDF for a raw request body.
func (s *Service) Generate(ctx context.Context, raw []byte) (QuoteResult, error) {
	// One snapshot serves the whole request even if a sync swaps it meanwhile.
	pq, source, err := s.Price(raw)
	if err != nil {
		return QuoteResult{}, err
	}
	ctx = context.WithValue(ctx, logger.MachineIDKey, pq.Machine.ID)
	now := s.now()

	doc, err := s.renderer.Render(ctx, quoteData(pq, now))
	if err != nil {
		return QuoteResult{}, err
	}
	pdf, err := s.exporter.Export(ctx, doc)
	if err != nil {
		return QuoteResult{}, err
	}

	res := QuoteResult{
		QuoteID:       uuid.New(),
		MachineID:     pq.Machine.ID,
		FileName:      document.QuoteFileName(pq.Machine.ID, pq.Request.Customer.Name, now, "pdf"),
		PDF:           pdf,
		TotalCents:    pq.TotalCents,
		Warnings:      pq.Warnings,
		CatalogSource: source,
	}

	log := s.log.WithContext(ctx)
	for _, w := range res.Warnings {
		log.Warn("quote price discrepancy", "warning", w)
	}
	log.QuoteGenerated(res.MachineID, res.FileName, res.TotalCents, len(res.Warnings), len(res.PDF))

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuoteGenerated{
			BaseEvent:     events.NewBaseEventAt(now),
			QuoteID:       res.QuoteID,
			MachineID:     res.MachineID,
			CustomerName:  pq.Request.Customer.Name,
			FileName:      res.FileName,
			TotalCents:    res.TotalCents,
			CatalogSource: string(source),
			PDF:           res.PDF,
		})
	}
	return res, nil
}

func quoteData(pq PricedQuote, now time.Time) document.QuoteData {
	req := pq.Request
	data := document.QuoteData{
		MachineID:     pq.Machine.ID,
		DisplayName:   pq.Machine.DisplayID,
		TemplateHint:  pq.Machine.Template,
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		Advisor:       req.Advisor,
		Date:          now,
		ValidityDays:  req.ValidityDays,
		Currency:      req.Currency,
		Notes:         req.Notes,
		FreightText:   req.FreightText,
		FreightCents:  req.FreightAmountCents,
		BaseCents:     pq.BaseCents,
		TotalCents:    pq.TotalCents,
		Lines:         make([]document.LineItem, 0, len(pq.Lines)),
	}
	for _, l := range pq.Lines {
		data.Lines = append(data.Lines, document.LineItem{Step: l.Step, Value: l.Value, PriceCents: l.DeltaCents})
	}
	for _, t := range req.PaymentTerms {
		data.PaymentTerms = append(data.PaymentTerms, document.PaymentTerm{Percent: t.Percent, Condition: t.Condition})
	}
	return data
}
