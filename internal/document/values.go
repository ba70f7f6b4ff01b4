package document

import (
	"fmt"
	"strings"
	"time"

	"cotizador_backend/internal/catalog/domain"
)

// LineItem is one priced configuration choice.
type LineItem struct {
	Step       string
	Value      string
	PriceCents int64
}

// PaymentTerm is one installment of the payment schedule. Percent is printed
// as given ("35%").
type PaymentTerm struct {
	Percent   string
	Condition string
}

// DefaultPaymentTerms is the schedule used when the request carries none.
func DefaultPaymentTerms() []PaymentTerm {
	return []PaymentTerm{
		{Percent: "35%", Condition: "Con orden de compra"},
		{Percent: "55%", Condition: "Contra aviso de entrega"},
		{Percent: "10%", Condition: "Al instalar"},
	}
}

// QuoteData is everything the renderer prints. Amounts come from the catalog.
type QuoteData struct {
	MachineID    string
	DisplayName  string
	TemplateHint string

	CustomerName  string
	CustomerEmail string
	Advisor       string

	Date         time.Time
	ValidityDays int
	Currency     string
	Notes        string
	FreightText  string
	FreightCents int64

	BaseCents  int64
	TotalCents int64
	Lines      []LineItem

	PaymentTerms []PaymentTerm
}

const defaultValidityDays = 30

// Placeholder groups a template must contain at least one member of.
var (
	customerPlaceholders = []string{"cliente", "nombre del cliente", "nombre_del_cliente"}
	totalPlaceholders    = []string{"precio", "total"}
)

// stepAliases maps placeholder names to the catalog step names they print.
var stepAliases = []struct {
	placeholders []string
	steps        []string
}{
	{[]string{"voltage", "voltaje"}, []string{"Voltage", "Voltaje"}},
	{[]string{"lid size", "lid_size", "altura_tapa", "tamano_tapa", "tamaño_tapa"}, []string{"Lid size", "Altura de tapa"}},
	{[]string{"pump options", "pump_options", "opcion_bomba", "bomba", "bomba_de_vacio"}, []string{"Pump Options", "Opciones de bomba"}},
	{[]string{"gas_flush", "gas flush", "descarga_gas", "inyeccion_gas", "inyección_gas"}, []string{"Gas Flush"}},
	{[]string{"positive_air", "positive air", "positive_air_sealer"}, []string{"Positive Air Sealer"}},
	{[]string{"sellado_biactivo", "bi-active sealing system", "bi_active_sealing_system"}, []string{"Bi-active Sealing System"}},
	{[]string{"index", "índice", "indice"}, []string{"Index"}},
	{[]string{"sistema_descarga_bandeja", "tray_unload_system", "tray unload system", "sistema_de_descarga_de_bandeja"}, []string{"Tray unload system", "Tray unload"}},
	{[]string{"photo_registration", "registro_fotografias"}, []string{"Photo registration"}},
	{[]string{"die_configuration", "configuracion_matriz"}, []string{"Die configuration"}},
	{[]string{"die_shape", "forma_matriz"}, []string{"Die shape"}},
	{[]string{"tipo_empaque"}, []string{"Package type", "Tipo de empaque"}},
	{[]string{"kit_muestras", "sample parts kit included"}, []string{"Sample parts kit included"}},
}

var mechanicalCutWords = []string{"with mechanical cut", "con corte", "si", "yes"}

// buildValues computes every placeholder value for a quote, keyed by
// placeholder key.
func buildValues(d QuoteData) map[string]string {
	v := make(map[string]string)
	set := func(val string, names ...string) {
		for _, n := range names {
			v[placeholderKey(n)] = val
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = CurrencyUSD
	}
	validity := d.ValidityDays
	if validity <= 0 {
		validity = defaultValidityDays
	}
	model := d.DisplayName
	if model == "" {
		model = d.MachineID
	}

	set(model, "modelo", "machine", "maquina", "máquina")
	set(d.CustomerName, append(customerPlaceholders, "customer")...)
	set(d.CustomerEmail, "email", "correo")
	set(d.Date.Format("02/01/2006"), "fecha")
	set(d.Advisor, "asesor")
	set("En stock", "disponibilidad")
	set(fmt.Sprintf("%d días", validity), "validez")
	set(currency, "moneda")
	set(FormatMoney(d.BaseCents, currency), "precio_base")
	set(FormatMoney(d.TotalCents, currency), append(totalPlaceholders, "precio_total")...)
	set(d.Notes, "notas")
	set(d.FreightText, "flete_texto")
	freight := ""
	if d.FreightCents != 0 {
		freight = FormatMoney(d.FreightCents, currency)
	}
	set(freight, "flete_monto")

	selected := make(map[string]string, len(d.Lines))
	lines := make([]string, 0, len(d.Lines))
	for _, li := range d.Lines {
		value := TranslateOption(li.Value)
		selected[domain.NormalizeKey(li.Step)] = value
		if _, taken := v[placeholderKey(li.Step)]; !taken {
			set(value, li.Step)
		}

		line := TranslateOption(li.Step) + ": " + value
		if li.PriceCents > 0 {
			line += " (+" + FormatMoney(li.PriceCents, currency) + ")"
		}
		lines = append(lines, line)
	}
	set(strings.Join(lines, "\n"), "lineas", "line_items")

	for _, alias := range stepAliases {
		val := ""
		for _, step := range alias.steps {
			if s, ok := selected[domain.NormalizeKey(step)]; ok {
				val = s
				break
			}
		}
		set(val, alias.placeholders...)
	}

	operation, hasOperation := selected[domain.NormalizeKey("Operation")]
	if !hasOperation {
		operation = selected[domain.NormalizeKey("Operación")]
	}
	set(operation, "operation", "operacion", "operación")
	set(mechanicalCut(operation), "corte_mecanico")

	terms := d.PaymentTerms
	if len(terms) == 0 {
		terms = DefaultPaymentTerms()
	}
	summary := make([]string, 0, len(terms))
	for i, t := range terms {
		n := i + 1
		set(t.Percent, fmt.Sprintf("concepto%d", n), fmt.Sprintf("concept%d", n), fmt.Sprintf("concept_%d", n))
		set(t.Condition,
			fmt.Sprintf("vencimiento%d", n), fmt.Sprintf("fecha_vencimiento%d", n),
			fmt.Sprintf("vence%d", n), fmt.Sprintf("due%d", n))
		summary = append(summary, strings.TrimSpace(t.Percent+" "+t.Condition))
	}
	set(strings.Join(summary, "\n"), "conceptos_resumen")

	return v
}

func mechanicalCut(operation string) string {
	op := strings.ToLower(domain.FoldAccents(operation))
	if strings.Contains(op, "sin corte") || strings.Contains(op, "no mechanical cut") {
		return "Sin corte mecánico"
	}
	for _, w := range mechanicalCutWords {
		if op == w || (len(w) > 3 && strings.Contains(op, w)) {
			return "Con corte mecánico"
		}
	}
	return "Sin corte mecánico"
}
