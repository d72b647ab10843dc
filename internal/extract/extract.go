// Package extract turns table grids into transactions.
package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtqbo/internal/columns"
	"github.com/cleared-dev/stmtqbo/internal/fields"
	"github.com/cleared-dev/stmtqbo/internal/model"
)

// Precedence picks the winner when a row has both a debit and a credit.
type Precedence string

const (
	PrecedenceDebit  Precedence = "debit"
	PrecedenceCredit Precedence = "credit"
)

// trailingWindow is how many of a row's last columns are searched for an
// amount when no header was found.
const trailingWindow = 3

// Stats counts how the rows of a grid were handled.
type Stats struct {
	HeaderRow   int // columns.None when no header was found
	Rows        int // data rows considered
	Blank       int
	Unparseable int
	Extracted   int
}

// Fallback is a named positional strategy used when no header was found.
type Fallback struct {
	Name  string
	Apply func(e *Extractor, row []string) (model.Transaction, bool)
}

// Extractor holds the field parsers and policies applied to every row.
type Extractor struct {
	Dates      *fields.DateParser
	Amounts    *fields.AmountParser
	Precedence Precedence
	Fallbacks  []Fallback
	// OnSkip, when set, is called with the grid index of every data row
	// that yields no transaction.
	OnSkip func(row int, cells []string)
}

// New returns an Extractor with the default fallbacks and debit precedence.
func New(dates *fields.DateParser, amounts *fields.AmountParser) *Extractor {
	return &Extractor{
		Dates:      dates,
		Amounts:    amounts,
		Precedence: PrecedenceDebit,
		Fallbacks:  []Fallback{TrailingAmount(), FirstThreeColumns()},
	}
}

// Extract returns the transactions in grid, in row order.
func (e *Extractor) Extract(grid model.Grid) ([]model.Transaction, Stats) {
	stats := Stats{HeaderRow: columns.None}
	mapping, header, found := columns.Detect(grid)
	start := 0
	if found {
		stats.HeaderRow = header
		start = header + 1
	}

	var txns []model.Transaction
	for r := start; r < len(grid); r++ {
		row := grid[r]
		stats.Rows++
		if blank(row) {
			stats.Blank++
			continue
		}

		var txn model.Transaction
		var ok bool
		if found {
			txn, ok = e.mapped(row, mapping)
		} else {
			txn, ok = e.fallback(row)
		}
		if !ok {
			stats.Unparseable++
			if e.OnSkip != nil {
				e.OnSkip(r, row)
			}
			continue
		}
		txn.Description = model.TruncateDescription(strings.TrimSpace(txn.Description))
		txns = append(txns, txn)
		stats.Extracted++
	}
	return txns, stats
}

func (e *Extractor) mapped(row []string, m columns.Mapping) (model.Transaction, bool) {
	date, ok := e.Dates.Parse(cell(row, m.Date))
	if !ok {
		return model.Transaction{}, false
	}

	var amount decimal.Decimal
	if m.HasAmount() {
		amount, ok = e.Amounts.Parse(cell(row, m.Amount))
	} else {
		amount, ok = e.debitCredit(row, m)
	}
	if !ok {
		return model.Transaction{}, false
	}

	return model.Transaction{Date: date, Description: cell(row, m.Desc), Amount: amount}, true
}

func (e *Extractor) debitCredit(row []string, m columns.Mapping) (decimal.Decimal, bool) {
	debit, debitOK := e.Amounts.Parse(cell(row, m.Debit))
	credit, creditOK := e.Amounts.Parse(cell(row, m.Credit))
	switch {
	case debitOK && creditOK && e.Precedence == PrecedenceCredit:
		return credit.Abs(), true
	case debitOK:
		return debit.Abs().Neg(), true
	case creditOK:
		return credit.Abs(), true
	default:
		return decimal.Zero, false
	}
}

func (e *Extractor) fallback(row []string) (model.Transaction, bool) {
	for _, f := range e.Fallbacks {
		if txn, ok := f.Apply(e, row); ok {
			return txn, true
		}
	}
	return model.Transaction{}, false
}

// TrailingAmount reads a date from column 0 and takes the rightmost amount
// among the last three columns, with column 1 as the description.
func TrailingAmount() Fallback {
	return Fallback{Name: "trailing-amount", Apply: func(e *Extractor, row []string) (model.Transaction, bool) {
		if len(row) < 2 {
			return model.Transaction{}, false
		}
		date, ok := e.Dates.Parse(row[0])
		if !ok {
			return model.Transaction{}, false
		}
		for i := len(row) - 1; i > max(0, len(row)-1-trailingWindow); i-- {
			if amount, ok := e.Amounts.Parse(row[i]); ok {
				return model.Transaction{Date: date, Description: row[1], Amount: amount}, true
			}
		}
		return model.Transaction{}, false
	}}
}

// FirstThreeColumns reads columns 0, 1 and 2 as date, description and amount.
func FirstThreeColumns() Fallback {
	return Fallback{Name: "first-three-columns", Apply: func(e *Extractor, row []string) (model.Transaction, bool) {
		if len(row) < 3 {
			return model.Transaction{}, false
		}
		date, ok := e.Dates.Parse(row[0])
		if !ok {
			return model.Transaction{}, false
		}
		amount, ok := e.Amounts.Parse(row[2])
		if !ok {
			return model.Transaction{}, false
		}
		return model.Transaction{Date: date, Description: row[1], Amount: amount}, true
	}}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
