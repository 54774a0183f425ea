// Package currency parses Turkish-locale monetary text such as
// "4.350,00 TL", "₺4.350" or "300.000 TL" into decimal amounts.
package currency

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberRun = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// Parse converts locale-formatted price text into a decimal value.
// Separator rules follow the Turkish convention: when both "." and ","
// appear, "." groups thousands and "," marks decimals; a lone "." is a
// thousands separator ("300.000" is three hundred thousand); a lone
// "," marks decimals.
//
// Unparsable input yields decimal zero and ok=false instead of an
// error: a single garbled candidate must not abort a whole extraction
// pass, so callers log it as a diagnostic and move on. A zero result
// is therefore "no usable value", never a real premium.
func Parse(text string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("₺", "", "TL", "", " ", "", " ", "").Replace(text)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return decimal.Zero, false
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	var normalized string

	switch {
	case hasDot && hasComma:
		normalized = strings.ReplaceAll(cleaned, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
	case hasDot:
		normalized = strings.ReplaceAll(cleaned, ".", "")
	case hasComma:
		normalized = strings.ReplaceAll(cleaned, ",", ".")
	default:
		normalized = cleaned
	}

	run := numberRun.FindString(normalized)
	if run == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(run)
	if err != nil {
		return decimal.Zero, false
	}

	return value, true
}

// Canonical renders a value in the plain decimal form that Parse
// round-trips: Parse(Canonical(v)) == v for any parsed v.
func Canonical(value decimal.Decimal) string {
	return strings.ReplaceAll(value.String(), ".", ",")
}
