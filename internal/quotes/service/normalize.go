package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/quotes/transport"
	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/validator"
)

const (
	defaultCurrency     = "USD"
	defaultValidityDays = 30
	maxPaymentTerms     = 3
)

// Normalizer turns either payload shape into a CanonicalQuoteRequest.
type Normalizer struct {
	val *validator.Validator
}

func NewNormalizer(val *validator.Validator) *Normalizer {
	if val == nil {
		val = validator.New()
	}
	return &Normalizer{val: val}
}

// Normalize parses raw. A "selections" array or a "customer" object marks the
// structured shape; anything else is read as the legacy flat payload.
func (n *Normalizer) Normalize(raw []byte) (CanonicalQuoteRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return CanonicalQuoteRequest{}, invalid("request body must be a JSON object", nil)
	}

	if isJSONKind(fields["selections"], '[') || isJSONKind(fields["customer"], '{') {
		return n.structured(raw)
	}
	return legacy(fields)
}

func isJSONKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

func (n *Normalizer) structured(raw []byte) (CanonicalQuoteRequest, error) {
	var req transport.QuoteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return CanonicalQuoteRequest{}, decodeError(err)
	}
	if err := n.val.Struct(req); err != nil {
		return CanonicalQuoteRequest{}, invalid("validation failed", validator.FieldErrors(err))
	}

	in := canonicalInput{
		shape:        ShapeStructured,
		machine:      req.Machine,
		base:         dollars(req.BasePrice),
		total:        dollars(req.TotalPrice),
		customer:     Customer{Name: req.Customer.Name, Email: req.Customer.Email},
		advisor:      req.Advisor,
		currency:     req.Currency,
		notes:        req.Notes,
		paymentTerms: make([]PaymentTerm, 0, len(req.PaymentTerms)),
	}
	if req.ValidityDays != nil {
		in.validityDays = *req.ValidityDays
	}
	if req.Freight != nil {
		in.freightText = req.Freight.Text
		if c := dollars(req.Freight.Amount); c != nil {
			in.freightCents = *c
		}
	}
	for _, s := range req.Selections {
		in.selections = append(in.selections, Selection{
			Step:       s.Step,
			Value:      string(s.Value),
			PriceCents: dollars(s.Price),
		})
	}
	for _, t := range req.PaymentTerms {
		in.paymentTerms = append(in.paymentTerms, PaymentTerm{Percent: string(t.Percent), Condition: t.Condition})
	}
	return canonicalize(in)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return invalid(fmt.Sprintf("field %s has the wrong type", field),
			map[string]string{field: "expected " + typeErr.Type.String()})
	}
	return invalid("malformed JSON body", map[string]string{"body": err.Error()})
}

func dollars(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := domain.DollarsToCents(*v)
	return &c
}

func invalid(msg string, details any) *apperr.Error {
	e := apperr.Validation(msg).WithOp("quotes.Normalize")
	if details != nil {
		e = e.WithDetails(details)
	}
	return e
}

// canonicalInput is what both shapes extract before the shared builder runs.
type canonicalInput struct {
	shape        Shape
	machine      string
	base, total  *int64
	selections   []Selection
	customer     Customer
	advisor      string
	validityDays int
	currency     string
	notes        string
	freightText  string
	freightCents int64
	paymentTerms []PaymentTerm
}

// canonicalize is the one place defaults and trimming are applied, so equal
// content yields equal requests regardless of shape.
func canonicalize(in canonicalInput) (CanonicalQuoteRequest, error) {
	raw := strings.TrimSpace(in.machine)
	id := domain.NormalizeMachineID(raw)
	if id == "" {
		return CanonicalQuoteRequest{}, invalid("machine is required", map[string]string{"machine": "required"})
	}
	name := strings.TrimSpace(in.customer.Name)
	if name == "" {
		return CanonicalQuoteRequest{}, invalid("customer name is required", map[string]string{"customer.name": "required"})
	}

	req := CanonicalQuoteRequest{
		MachineID:       id,
		RawMachine:      raw,
		BasePriceCents:  in.base,
		TotalPriceCents: in.total,
		Customer: Customer{
			Name:  name,
			Email: strings.TrimSpace(in.customer.Email),
		},
		Advisor:            strings.TrimSpace(in.advisor),
		ValidityDays:       in.validityDays,
		Currency:           strings.ToUpper(strings.TrimSpace(in.currency)),
		Notes:              strings.TrimSpace(in.notes),
		FreightText:        strings.TrimSpace(in.freightText),
		FreightAmountCents: in.freightCents,
		Shape:              in.shape,
	}
	if req.ValidityDays <= 0 {
		req.ValidityDays = defaultValidityDays
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}

	req.Selections = make([]Selection, 0, len(in.selections))
	for i, s := range in.selections {
		step, value := strings.TrimSpace(s.Step), strings.TrimSpace(s.Value)
		if step == "" || value == "" {
			return CanonicalQuoteRequest{}, invalid("selection needs step and value",
				map[string]string{fmt.Sprintf("selections[%d]", i): "required"})
		}
		req.Selections = append(req.Selections, Selection{Step: step, Value: value, PriceCents: s.PriceCents})
	}

	if len(in.paymentTerms) > maxPaymentTerms {
		return CanonicalQuoteRequest{}, invalid("at most 3 payment terms", map[string]string{"paymentTerms": "max=3"})
	}
	for _, t := range in.paymentTerms {
		req.PaymentTerms = append(req.PaymentTerms, PaymentTerm{
			Percent:   formatPercent(t.Percent),
			Condition: strings.TrimSpace(t.Condition),
		})
	}
	return req, nil
}

// formatPercent prints "35" and "35.0" as "35%"; other text is kept.
func formatPercent(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasSuffix(p, "%") {
		return p
	}
	if v, err := strconv.ParseFloat(p, 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64) + "%"
	}
	return p
}
