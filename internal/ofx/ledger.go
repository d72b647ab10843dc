// Package ofx renders transactions as OFX 1.02 SGML ledger files (QBO) and
// reads them back.
package ofx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

// Ledger is one account's transactions, ready to serialize.
type Ledger struct {
	Account      model.Account
	Transactions []model.Transaction
}

// Range returns the earliest and latest posting dates. An empty ledger
// spans the single day of today.
func (l Ledger) Range(today time.Time) (start, end time.Time) {
	if len(l.Transactions) == 0 {
		return today, today
	}
	start, end = l.Transactions[0].Date, l.Transactions[0].Date
	for _, t := range l.Transactions[1:] {
		if t.Date.Before(start) {
			start = t.Date
		}
		if t.Date.After(end) {
			end = t.Date
		}
	}
	return start, end
}

// Balance is the sum of all amounts, as parsed. It is used for both ledger
// and available balance.
func (l Ledger) Balance() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.Transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}
