// Package allocation resolves how a savings item's amount is split across
// its outgoing links and keeps the engine-managed remainder link in step.
package allocation

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLabel is the largest allocation a label may carry.
const MaxLabel = 1e15

var maxLabel = decimal.NewFromFloat(MaxLabel)

// ParseLabel reads an explicit allocation from a link label. Empty,
// non-numeric, negative and oversized labels carry no allocation. A lone
// decimal comma is accepted ("12,5").
func ParseLabel(label string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.GreaterThan(maxLabel) {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount the way the engine writes labels: rounded
// to cents without trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}

// Amount converts a stored float amount to a decimal, treating negative and
// non-finite values as zero.
func Amount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
