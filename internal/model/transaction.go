package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLen bounds Transaction.Description, in runes.
const MaxDescriptionLen = 32

// Transaction is one row recognised as a ledger line.
type Transaction struct {
	Date        time.Time       // calendar date, UTC midnight
	Description string          // at most MaxDescriptionLen runes
	Amount      decimal.Decimal // positive = money in, negative = money out
}

// TruncateDescription cuts s to MaxDescriptionLen runes.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) > MaxDescriptionLen {
		r = r[:MaxDescriptionLen]
	}
	return string(r)
}
