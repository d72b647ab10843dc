package fields

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Default plausibility guards.
const (
	DefaultMinReferenceDigits = 10
	DefaultMaxMagnitude       = 1000000
)

var bareDigitsRe = regexp.MustCompile(`^\d+$`)

// AmountParser reads currency amounts. A zero threshold disables its guard.
type AmountParser struct {
	// MinReferenceDigits rejects runs of this many bare digits or more; such
	// values are phone numbers or reference ids, not amounts.
	MinReferenceDigits int
	// MaxMagnitude rejects values whose absolute value exceeds it.
	MaxMagnitude decimal.Decimal
}

// NewAmountParser returns a parser with the default guards.
func NewAmountParser() *AmountParser {
	return &AmountParser{
		MinReferenceDigits: DefaultMinReferenceDigits,
		MaxMagnitude:       decimal.NewFromInt(DefaultMaxMagnitude),
	}
}

// Parse returns the signed amount in s, or false when s is not a plausible
// amount.
func (p *AmountParser) Parse(s string) (decimal.Decimal, bool) {
	txt := clean(s)
	if txt == "" {
		return decimal.Zero, false
	}

	if p.MinReferenceDigits > 0 && len(txt) >= p.MinReferenceDigits && bareDigitsRe.MatchString(txt) {
		return decimal.Zero, false
	}

	neg := false
	if len(txt) >= 2 && strings.HasPrefix(txt, "(") && strings.HasSuffix(txt, ")") {
		neg = true
		txt = txt[1 : len(txt)-1]
	}

	txt = strings.NewReplacer("$", "", ",", "", "USD", "").Replace(txt)
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return decimal.Zero, false
	}

	v, err := decimal.NewFromString(txt)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		v = v.Neg()
	}

	if p.MaxMagnitude.IsPositive() && v.Abs().GreaterThan(p.MaxMagnitude) {
		return decimal.Zero, false
	}
	return v, true
}
