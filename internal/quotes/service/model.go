package service

import (
	"reflect"

	"cotizador_backend/internal/catalog/domain"

	"github.com/google/uuid"
)

// Shape tags which payload variant a request was parsed from.
type Shape string

const (
	ShapeStructured Shape = "structured"
	ShapeLegacy     Shape = "legacy"
)

// Selection is one requested step/value pair. PriceCents is the caller's
// declared price, nil when the caller sent none.
type Selection struct {
	Step       string
	Value      string
	PriceCents *int64
}

type Customer struct {
	Name  string
	Email string
}

// PaymentTerm is one installment of the payment schedule.
type PaymentTerm struct {
	Percent   string
	Condition string
}

// CanonicalQuoteRequest is the single internal form of both payload shapes.
type CanonicalQuoteRequest struct {
	MachineID       string
	RawMachine      string
	BasePriceCents  *int64
	TotalPriceCents *int64
	Selections      []Selection
	Customer        Customer

	Advisor            string
	ValidityDays       int
	Currency           string
	Notes              string
	FreightText        string
	FreightAmountCents int64
	PaymentTerms       []PaymentTerm

	// Shape is informational and ignored by Equal.
	Shape Shape
}

// Equal compares two requests ignoring Shape.
func (r CanonicalQuoteRequest) Equal(other CanonicalQuoteRequest) bool {
	r.Shape, other.Shape = "", ""
	return reflect.DeepEqual(r, other)
}

// PricedLine is a selection priced from the catalog.
type PricedLine struct {
	Step       string
	Value      string
	DeltaCents int64
}

// PricedQuote is a request resolved against one catalog snapshot.
type PricedQuote struct {
	Request    CanonicalQuoteRequest
	Machine    domain.MachineEntry
	Lines      []PricedLine
	BaseCents  int64
	TotalCents int64
	Warnings   []string
}

// QuoteResult is a finished quotation.
type QuoteResult struct {
	QuoteID       uuid.UUID
	MachineID     string
	FileName      string
	PDF           []byte
	TotalCents    int64
	Warnings      []string
	CatalogSource domain.Source
}
