package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a spreadsheet cell into a decimal.
// It accepts thousands separators, a leading "$" with the minus sign on
// either side of it, and accounting-style parentheses for negatives.
// ok is false for blank or non-numeric cells.
func ParseAmount(cell string) (d decimal.Decimal, ok bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	// The sign may sit on either side of the currency symbol.
	minus := strings.HasPrefix(s, "-")
	if minus {
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	if strings.HasPrefix(s, "$") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
		if !minus && strings.HasPrefix(s, "-") {
			minus = true
			s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
		}
	}
	if minus {
		neg = !neg
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.Zero, false
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		v = v.Neg()
	}
	return v, true
}
