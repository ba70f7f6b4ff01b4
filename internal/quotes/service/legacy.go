package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/document"
	"cotizador_backend/internal/quotes/transport"
)

// legacyOptions maps the flat option fields of the old payload onto catalog
// steps, in the order they become selections.
var legacyOptions = []struct {
	keys    []string
	step    string
	boolean bool
}{
	{[]string{"voltaje", "voltage"}, "Voltage", false},
	{[]string{"altura_tapa", "numero_tapa"}, "Lid size", false},
	{[]string{"operacion"}, "Operation", false},
	{[]string{"opcion_bomba"}, "Pump Options", false},
	{[]string{"kit_muestras"}, "Sample parts kit included", false},
	{[]string{"kit_muestras_nit"}, "Sample parts kit NIT", false},
	{[]string{"inyeccion_gas"}, "Gas Flush", true},
	{[]string{"sistema_biactivo"}, "Bi-active Sealing System", true},
	{[]string{"aire_positivo"}, "Positive Air Sealer", true},
}

type legacyFields map[string]json.RawMessage

// text returns the first non-empty field among keys.
func (f legacyFields) text(keys ...string) (string, error) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		var v transport.FlexString
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", invalid(fmt.Sprintf("field %s must be a string, number or boolean", k), map[string]string{k: "type"})
		}
		if s := strings.TrimSpace(string(v)); s != "" {
			return s, nil
		}
	}
	return "", nil
}

// amount reads a dollar amount that may arrive as a number or as text like
// "US$17,995.00".
func (f legacyFields) amount(keys ...string) (*int64, error) {
	for _, k := range keys {
		s, err := f.text(k)
		if err != nil {
			return nil, err
		}
		if s == "" {
			continue
		}
		cents, ok := domain.ParseAmountCents(s)
		if !ok {
			return nil, invalid(fmt.Sprintf("field %s is not an amount", k), map[string]string{k: "amount"})
		}
		return &cents, nil
	}
	return nil, nil
}

func legacy(fields map[string]json.RawMessage) (CanonicalQuoteRequest, error) {
	f := legacyFields(fields)
	in := canonicalInput{shape: ShapeLegacy}

	var err error
	if in.machine, err = f.text("machine", "modelo", "plantilla"); err != nil {
		return CanonicalQuoteRequest{}, err
	}
	if in.customer.Name, err = f.text("nombre_cliente", "cliente", "customer"); err != nil {
		return CanonicalQuoteRequest{}, err
	}
	if in.customer.Email, err = f.text("email"); err != nil {
		return CanonicalQuoteRequest{}, err
	}
	if in.base, err = f.amount("precio_base", "basePrice"); err != nil {
		return CanonicalQuoteRequest{}, err
	}
	if in.total, err = f.amount("precio_total", "precio_cambiado", "totalPrice"); err != nil {
		return CanonicalQuoteRequest{}, err
	}
	if err := readLegacyExtras(f, &in); err != nil {
		return CanonicalQuoteRequest{}, err
	}

	seen := make(map[string]struct{})
	for _, opt := range legacyOptions {
		value, err := f.text(opt.keys...)
		if err != nil {
			return CanonicalQuoteRequest{}, err
		}
		if value == "" {
			continue
		}
		if opt.boolean {
			yes, ok := domain.ParseYesNo(value)
			if !ok {
				return CanonicalQuoteRequest{}, invalid(
					fmt.Sprintf("field %s must be yes or no", opt.keys[0]), map[string]string{opt.keys[0]: "boolean"})
			}
			value = domain.OptionNo
			if yes {
				value = domain.OptionYes
			}
		}
		in.selections = append(in.selections, Selection{Step: opt.step, Value: value})
		seen[domain.NormalizeKey(opt.step)] = struct{}{}
	}

	// The automation variant sends {"selections": {"Step": "Value"}}; flat
	// fields win when both name the same step.
	if raw, ok := fields["selections"]; ok && isJSONKind(raw, '{') {
		pairs, err := orderedObject(raw)
		if err != nil {
			return CanonicalQuoteRequest{}, invalid("selections must map step names to values", map[string]string{"selections": "object"})
		}
		for _, p := range pairs {
			if p.value == "" {
				continue
			}
			key := domain.NormalizeKey(p.key)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			in.selections = append(in.selections, Selection{Step: p.key, Value: p.value})
		}
	}

	return canonicalize(in)
}

func readLegacyExtras(f legacyFields, in *canonicalInput) error {
	var err error
	if in.advisor, err = f.text("asesor"); err != nil {
		return err
	}
	if in.currency, err = f.text("tipo_moneda", "moneda"); err != nil {
		return err
	}
	if in.notes, err = f.text("notas"); err != nil {
		return err
	}
	if in.freightText, err = f.text("flete_texto"); err != nil {
		return err
	}
	freight, err := f.amount("flete_monto")
	if err != nil {
		return err
	}
	if freight != nil {
		in.freightCents = *freight
	}

	days, err := f.text("validez_dias")
	if err != nil {
		return err
	}
	if days != "" {
		n, convErr := strconv.Atoi(days)
		if convErr != nil || n < 0 {
			return invalid("validez_dias must be a whole number of days", map[string]string{"validez_dias": "integer"})
		}
		in.validityDays = n
	}

	var terms []PaymentTerm
	anyTerm := false
	defaults := defaultPaymentTerms()
	for i := 1; i <= maxPaymentTerms; i++ {
		pct, err := f.text(fmt.Sprintf("contrato%d_porcentaje", i))
		if err != nil {
			return err
		}
		cond, err := f.text(fmt.Sprintf("contrato%d_condicion", i))
		if err != nil {
			return err
		}
		if pct != "" || cond != "" {
			anyTerm = true
		}
		if pct == "" {
			pct = defaults[i-1].Percent
		}
		if cond == "" {
			cond = defaults[i-1].Condition
		}
		terms = append(terms, PaymentTerm{Percent: pct, Condition: cond})
	}
	if anyTerm {
		in.paymentTerms = terms
	}
	return nil
}

func defaultPaymentTerms() []PaymentTerm {
	var out []PaymentTerm
	for _, t := range document.DefaultPaymentTerms() {
		out = append(out, PaymentTerm{Percent: t.Percent, Condition: t.Condition})
	}
	return out
}

type pair struct {
	key, value string
}

// orderedObject decodes a flat JSON object keeping key order.
func orderedObject(raw json.RawMessage) ([]pair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v transport.FlexString
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, pair{key: strings.TrimSpace(key), value: strings.TrimSpace(string(v))})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
