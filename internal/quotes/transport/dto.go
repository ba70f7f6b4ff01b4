// Package transport holds the wire shapes of the quotation endpoint.
package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString accepts a JSON string, number or boolean. Booleans become
// "Yes"/"No" so checkbox answers from automations read like option values.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case bytes.Equal(data, []byte("true")):
		*f = "Yes"
	case bytes.Equal(data, []byte("false")):
		*f = "No"
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("expected string, number or boolean, got %s", data)
		}
		*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}

// QuoteRequest is the structured payload:
//
//	{"machine": "CM640.docx", "basePrice": 17995, "totalPrice": 17995,
//	 "selections": [{"step": "Voltage", "value": "208V_3PH_60HZ", "price": 0}],
//	 "customer": {"name": "Chema", "email": "chema@example.com"}}
type QuoteRequest struct {
	Machine      string               `json:"machine" validate:"required,notblank,max=120"`
	BasePrice    *float64             `json:"basePrice" validate:"omitempty,gte=0"`
	TotalPrice   *float64             `json:"totalPrice" validate:"omitempty,gte=0"`
	Selections   []SelectionRequest   `json:"selections" validate:"max=100,dive"`
	Customer     CustomerRequest      `json:"customer"`
	Advisor      string               `json:"advisor" validate:"max=200"`
	ValidityDays *int                 `json:"validityDays" validate:"omitempty,gte=1,lte=365"`
	Currency     string               `json:"currency" validate:"omitempty,oneof=USD MXN usd mxn"`
	Notes        string               `json:"notes" validate:"max=4000"`
	Freight      *FreightRequest      `json:"freight"`
	PaymentTerms []PaymentTermRequest `json:"paymentTerms" validate:"max=3,dive"`
}

// SelectionRequest is one chosen option. Price is what the caller believes
// the option costs; the catalog decides.
type SelectionRequest struct {
	Step  string     `json:"step" validate:"required,notblank"`
	Value FlexString `json:"value" validate:"required"`
	Price *float64   `json:"price" validate:"omitempty,gte=0"`
}

type CustomerRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
}

type FreightRequest struct {
	Text   string   `json:"text"`
	Amount *float64 `json:"amount" validate:"omitempty,gte=0"`
}

type PaymentTermRequest struct {
	Percent   FlexString `json:"percent" validate:"required"`
	Condition string     `json:"condition" validate:"required,notblank"`
}

// PreviewLine is one priced selection in a preview.
type PreviewLine struct {
	Step       string `json:"step"`
	Value      string `json:"value"`
	DeltaCents int64  `json:"deltaCents"`
}

// PreviewResponse is the priced quote without a document.
type PreviewResponse struct {
	Machine       string        `json:"machine"`
	Template      string        `json:"template,omitempty"`
	Customer      string        `json:"customer"`
	Currency      string        `json:"currency"`
	BaseCents     int64         `json:"baseCents"`
	TotalCents    int64         `json:"totalCents"`
	Lines         []PreviewLine `json:"lines"`
	Warnings      []string      `json:"warnings"`
	CatalogSource string        `json:"catalogSource"`
}
