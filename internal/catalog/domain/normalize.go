package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var priceLabelSuffix = regexp.MustCompile(`\s*\(\s*\+?\s*(?:US)?\$[^)]*\)\s*$`)

// NormalizeMachineID canonicalizes a machine identifier: surrounding space is
// trimmed, a trailing ".docx" is dropped, inner whitespace is removed and the
// result is upper-cased. The function is idempotent.
func NormalizeMachineID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) >= 5 && strings.EqualFold(id[len(id)-5:], ".docx") {
		id = id[:len(id)-5]
	}
	id = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, id)
	return strings.ToUpper(id)
}

// FoldAccents removes combining marks after NFKD decomposition ("Sí" -> "Si").
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey is the comparison key for step names, option values and
// spreadsheet headers: accents folded, lower case, no spaces, underscores or
// hyphens.
func NormalizeKey(s string) string {
	s = strings.ToLower(FoldAccents(strings.TrimSpace(s)))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			return -1
		}
		return r
	}, s)
}

// StripPriceLabel removes a trailing "($500)" or "(US$1,200.00)" decoration
// that UIs append to option labels.
func StripPriceLabel(s string) string {
	return strings.TrimSpace(priceLabelSuffix.ReplaceAllString(s, ""))
}

var (
	yesWords = map[string]struct{}{"true": {}, "si": {}, "yes": {}, "1": {}, "on": {}}
	noWords  = map[string]struct{}{"false": {}, "no": {}, "0": {}, "off": {}, "none": {}}
)

// ParseYesNo interprets a checkbox answer. ok is false when the text is
// neither a yes nor a no synonym.
func ParseYesNo(s string) (yes bool, ok bool) {
	key := NormalizeKey(s)
	if _, found := yesWords[key]; found {
		return true, true
	}
	if _, found := noWords[key]; found {
		return false, true
	}
	return false, false
}

// DollarsToCents converts a dollar amount to integer cents, rounding half away
// from zero.
func DollarsToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ParseAmountCents reads a loosely formatted dollar amount ("US$17,995.00",
// "17995", "-$5") as cents. Every character other than digits, '.' and '-'
// is ignored. ok is false when nothing numeric remains.
func ParseAmountCents(text string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, strings.TrimSpace(text))
	switch cleaned {
	case "", ".", "-", "-.":
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return DollarsToCents(v), true
}
