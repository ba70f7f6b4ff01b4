package service

import (
	"testing"

	"cotizador_backend/platform/apperr"
)

func normalize(t *testing.T, body string) CanonicalQuoteRequest {
	t.Helper()
	req, err := NewNormalizer(nil).Normalize([]byte(body))
	if err != nil {
		t.Fatalf("normalize %s: %v", body, err)
	}
	return req
}

func TestNormalize_StructuredAndLegacyAreEqual(t *testing.T) {
	structured := normalize(t, `{
		"machine": "CM640.docx",
		"basePrice": 17995,
		"totalPrice": 18845,
		"selections": [
			{"step": "Voltage", "value": "208V_3PH_60HZ"},
			{"step": "Lid size", "value": 8},
			{"step": "Gas Flush", "value": true}
		],
		"customer": {"name": "Chema", "email": "chema@example.com"}
	}`)
	legacy := normalize(t, `{
		"modelo": "CM640.docx",
		"precio_base": "17,995",
		"precio_total": 18845,
		"voltaje": "208V_3PH_60HZ",
		"altura_tapa": 8,
		"inyeccion_gas": "si",
		"nombre_cliente": "Chema",
		"email": "chema@example.com"
	}`)

	if structured.Shape != ShapeStructured || legacy.Shape != ShapeLegacy {
		t.Fatalf("unexpected shapes %s/%s", structured.Shape, legacy.Shape)
	}
	if !structured.Equal(legacy) {
		t.Fatalf("expected equal canonical requests:\nstructured %+v\nlegacy     %+v", structured, legacy)
	}
	if structured.MachineID != "CM640" || *structured.BasePriceCents != 1799500 {
		t.Fatalf("unexpected canonical values %+v", structured)
	}
	if got := legacy.Selections[2]; got.Step != "Gas Flush" || got.Value != "Yes" {
		t.Fatalf("legacy boolean not normalized: %+v", got)
	}
}

func TestNormalize_AutomationVariant(t *testing.T) {
	req := normalize(t, `{
		"machine": " cm 640 ",
		"customer": "ACME",
		"basePrice": 17995.125,
		"voltage": "480V_3PH_60HZ",
		"selections": {"Pump Options": "Busch 40 m3/h", "voltage": "208V_3PH_60HZ", "Gas Flush": false}
	}`)
	if req.Shape != ShapeLegacy {
		t.Fatalf("selections object with string customer is the legacy shape, got %s", req.Shape)
	}
	if req.MachineID != "CM640" || req.Customer.Name != "ACME" {
		t.Fatalf("unexpected request %+v", req)
	}
	if *req.BasePriceCents != 1799513 {
		t.Fatalf("expected rounded base 1799513, got %d", *req.BasePriceCents)
	}
	want := []Selection{
		{Step: "Voltage", Value: "480V_3PH_60HZ"},
		{Step: "Pump Options", Value: "Busch 40 m3/h"},
		{Step: "Gas Flush", Value: "No"},
	}
	if len(req.Selections) != len(want) {
		t.Fatalf("expected %d selections, got %+v", len(want), req.Selections)
	}
	for i, w := range want {
		got := req.Selections[i]
		if got.Step != w.Step || got.Value != w.Value || got.PriceCents != nil {
			t.Fatalf("selection %d: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestNormalize_LegacyExtras(t *testing.T) {
	req := normalize(t, `{
		"plantilla": "TS100",
		"cliente": "Planta Norte",
		"asesor": "Ana",
		"validez_dias": 15,
		"tipo_moneda": "mxn",
		"notas": "Entrega en planta",
		"flete_texto": "Flete a Monterrey",
		"flete_monto": "US$1,500.00",
		"contrato1_porcentaje": 50,
		"contrato2_condicion": "Contra entrega"
	}`)
	if req.Advisor != "Ana" || req.ValidityDays != 15 || req.Currency != "MXN" {
		t.Fatalf("extras not read: %+v", req)
	}
	if req.FreightText != "Flete a Monterrey" || req.FreightAmountCents != 150000 {
		t.Fatalf("freight not read: %+v", req)
	}
	want := []PaymentTerm{
		{Percent: "50%", Condition: "Con orden de compra"},
		{Percent: "55%", Condition: "Contra entrega"},
		{Percent: "10%", Condition: "Al instalar"},
	}
	if len(req.PaymentTerms) != 3 {
		t.Fatalf("expected 3 payment terms, got %+v", req.PaymentTerms)
	}
	for i := range want {
		if req.PaymentTerms[i] != want[i] {
			t.Fatalf("term %d: expected %+v, got %+v", i, want[i], req.PaymentTerms[i])
		}
	}
}

func TestNormalize_Defaults(t *testing.T) {
	req := normalize(t, `{"machine": "CM640", "customer": {"name": "Chema"}}`)
	if req.Currency != "USD" || req.ValidityDays != 30 {
		t.Fatalf("expected defaults, got %+v", req)
	}
	if req.PaymentTerms != nil || req.BasePriceCents != nil || req.TotalPriceCents != nil {
		t.Fatalf("absent values should stay nil: %+v", req)
	}
}

func TestNormalize_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":        `{"machine": `,
		"not an object":    `["CM640"]`,
		"wrong type":       `{"machine": 640, "customer": {"name": "x"}}`,
		"missing machine":  `{"customer": {"name": "Chema"}, "selections": []}`,
		"blank customer":   `{"machine": "CM640", "customer": {"name": "  "}}`,
		"bad email":        `{"machine": "CM640", "customer": {"name": "x", "email": "nope"}}`,
		"selection step":   `{"machine": "CM640", "customer": {"name": "x"}, "selections": [{"value": "a"}]}`,
		"negative price":   `{"machine": "CM640", "customer": {"name": "x"}, "basePrice": -1}`,
		"legacy no client": `{"modelo": "CM640"}`,
		"legacy no model":  `{"nombre_cliente": "Chema"}`,
		"legacy bad bool":  `{"modelo": "CM640", "nombre_cliente": "x", "inyeccion_gas": "maybe"}`,
		"legacy bad price": `{"modelo": "CM640", "nombre_cliente": "x", "precio_base": "abc"}`,
		"legacy object":    `{"modelo": {"id": 1}, "nombre_cliente": "x"}`,
	}
	n := NewNormalizer(nil)
	for name, body := range cases {
		_, err := n.Normalize([]byte(body))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if apperr.GetKind(err) != apperr.KindValidation || !apperr.HasCode(err, apperr.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}
