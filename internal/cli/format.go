// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount rounded to cents with thousands separators.
// A one-character currency is a prefix ("€1,234.50"), anything longer a
// suffix ("1,234.50 CHF").
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)
	body := FormatNumber(n) + "." + frac

	switch {
	case currency == "":
		return sign + body
	case utf8.RuneCountInString(currency) == 1:
		return sign + currency + body
	default:
		return sign + body + " " + currency
	}
}

// FormatSigned formats a change in money with an explicit sign.
func FormatSigned(amount float64, currency string) string {
	if amount >= 0 {
		return "+" + FormatMoney(amount, currency)
	}
	return FormatMoney(amount, currency)
}

// FormatCurrency names the currency of a total, or "mixed".
func FormatCurrency(currency string, mixed bool) string {
	switch {
	case mixed:
		return "mixed"
	case currency == "":
		return "-"
	}
	return currency
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatSize formats block dimensions, e.g. "120 x 30".
func FormatSize(w, h float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + " x " + strconv.FormatFloat(h, 'f', -1, 64)
}
