// Package columns infers which grid columns hold the date, description and
// amount of a transaction by scanning for a header row.
package columns

import "strings"

// MaxHeaderScan is how many leading rows are searched for a header.
const MaxHeaderScan = 5

// None marks a role with no column.
const None = -1

// Mapping assigns zero-based column indexes to transaction roles. Either
// Amount is set, or at least one of Debit and Credit.
type Mapping struct {
	Date   int
	Desc   int
	Amount int
	Debit  int
	Credit int
}

// HasAmount reports whether a single signed amount column was found.
func (m Mapping) HasAmount() bool { return m.Amount != None }

// Rule locates one role in a lowercased header row.
type Rule struct {
	Name  string
	Match func(lower []string, m *Mapping) bool
}

var (
	dateTokens   = []string{"date"}
	amountTokens = []string{"amount", "amt"}
	descTokens   = []string{"description", "desc", "payee", "memo", "name", "details"}
)

// DefaultRules is the header cascade: every rule must match the same row.
var DefaultRules = []Rule{DateColumn(), AmountColumns(), DescriptionColumn()}

// DateColumn finds the leftmost cell containing "date".
func DateColumn() Rule {
	return Rule{Name: "date", Match: func(lower []string, m *Mapping) bool {
		m.Date = firstContaining(lower, dateTokens)
		return m.Date != None
	}}
}

// AmountColumns finds a single amount column, or failing that a debit and/or
// credit column pair.
func AmountColumns() Rule {
	return Rule{Name: "amount", Match: func(lower []string, m *Mapping) bool {
		m.Amount = firstContaining(lower, amountTokens)
		if m.Amount != None {
			m.Debit, m.Credit = None, None
			return true
		}
		m.Debit = firstContaining(lower, []string{"debit"})
		m.Credit = firstContaining(lower, []string{"credit"})
		return m.Debit != None || m.Credit != None
	}}
}

// DescriptionColumn finds the leftmost description-like cell.
func DescriptionColumn() Rule {
	return Rule{Name: "description", Match: func(lower []string, m *Mapping) bool {
		m.Desc = firstContaining(lower, descTokens)
		return m.Desc != None
	}}
}

// Detect scans the first MaxHeaderScan rows for a header satisfying rules and
// returns the mapping and the header row index.
func Detect(grid [][]string, rules ...Rule) (Mapping, int, bool) {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	for r := 0; r < min(len(grid), MaxHeaderScan); r++ {
		lower := make([]string, len(grid[r]))
		for i, c := range grid[r] {
			lower[i] = strings.ToLower(strings.TrimSpace(c))
		}
		if m, ok := matchRow(lower, rules); ok {
			return m, r, true
		}
	}
	return Mapping{}, None, false
}

func matchRow(lower []string, rules []Rule) (Mapping, bool) {
	m := Mapping{Date: None, Desc: None, Amount: None, Debit: None, Credit: None}
	for _, rule := range rules {
		if !rule.Match(lower, &m) {
			return Mapping{}, false
		}
	}
	return m, true
}

// firstContaining returns the leftmost cell containing any token.
func firstContaining(lower []string, tokens []string) int {
	for i, c := range lower {
		for _, tok := range tokens {
			if strings.Contains(c, tok) {
				return i
			}
		}
	}
	return None
}
