package events

import (
	"cotizador_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteGenerated is published after a quotation PDF was produced.
// PDF holds the exported bytes; subscribers must not modify it.
type QuoteGenerated struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	MachineID     string    `json:"machineId"`
	CustomerName  string    `json:"customerName"`
	FileName      string    `json:"fileName"`
	TotalCents    int64     `json:"totalCents"`
	CatalogSource string    `json:"catalogSource"`
	PDF           []byte    `json:"-"`
}

func (e QuoteGenerated) EventName() string { return "quote.generated" }
