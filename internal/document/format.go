package document

import (
	"sort"
	"strings"
	"time"

	"cotizador_backend/internal/catalog/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	CurrencyUSD = "USD"
	CurrencyMXN = "MXN"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders cents the way quotations print prices:
// "US$17,995.00" for dollars, "$ 17,995.00 MXN" for other currencies.
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := moneyPrinter.Sprintf("%d.%02d", cents/100, cents%100)
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" || cur == CurrencyUSD {
		return sign + "US$" + amount
	}
	return sign + "$ " + amount + " " + cur
}

// Spanish labels for the English option texts used in the catalog.
var optionTranslations = map[string]string{
	"Automatic lid, WITH mechanical cut":   "Tapa automática CON corte mecánico",
	"Automatic lid with NO mechanical cut": "Tapa automática SIN corte mecánico",
	"Bi-active Sealing System":             "Sistema de sellado biactivo",
	"Gas Flush":                            "Descarga de gas",
	"Positive Air Sealer":                  "Sellador de aire positivo",
	"Lid size":                             "Altura de tapa",
	"Pump Options":                         "Opciones de bomba",
	"Operation":                            "Operación",
	"Voltage":                              "Voltaje",
	"Machine Direction":                    "Dirección de la máquina",
	"Product Width (mm)":                   "Ancho del producto (mm)",
	"Product Height (mm)":                  "Altura del producto (mm)",
	"Product Length (mm)":                  "Longitud del producto (mm)",
	"Reject System":                        "Sistema de rechazo",
	"NOM-001-SCFI-2018/2014 Certification": "Certificación NOM-001-SCFI-2018/2014",
	"Sample parts kit included":            "Kit de piezas de muestra incluido",
	"Index":                                "Índice",
	"Tray unload system":                   "Sistema de descarga de bandeja",
	"Tray unload":                          "Descarga de bandeja",
}

// Short answers are only translated when they are the whole text.
var answerTranslations = map[string]string{
	"yes":  "Sí",
	"no":   "No",
	"none": "Ninguno",
}

// translationOrder applies longer phrases first so "Tray unload system"
// wins over "Tray unload".
var translationOrder = func() []string {
	keys := make([]string, 0, len(optionTranslations))
	for k := range optionTranslations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// TranslateOption returns the Spanish label for a step name or option value.
// Unknown text is returned unchanged.
func TranslateOption(text string) string {
	trimmed := strings.TrimSpace(text)
	if es, ok := answerTranslations[strings.ToLower(trimmed)]; ok {
		return es
	}
	out := trimmed
	for _, en := range translationOrder {
		if strings.Contains(out, en) {
			out = strings.ReplaceAll(out, en, optionTranslations[en])
		}
	}
	return out
}

const maxFileNamePart = 80

// sanitizeFileNamePart keeps ASCII letters, digits, '-' and '_'. Accents are
// folded first; anything else becomes '_'.
func sanitizeFileNamePart(s string) string {
	s = domain.FoldAccents(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "archivo"
	}
	if len(out) > maxFileNamePart {
		out = out[:maxFileNamePart]
	}
	return out
}

// QuoteFileName builds "Cotizacion_<model>_<customer>_<YYYYmmdd_HHMMSS>.<ext>".
func QuoteFileName(model, customer string, at time.Time, ext string) string {
	return "Cotizacion_" + sanitizeFileNamePart(model) + "_" + sanitizeFileNamePart(customer) +
		"_" + at.Format("20060102_150405") + "." + strings.TrimPrefix(ext, ".")
}
