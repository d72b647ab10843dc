package ofx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

// ErrNotOFX is returned when a document has no <OFX> element.
var ErrNotOFX = errors.New("not an OFX document")

var (
	stmtTrnRe   = regexp.MustCompile(`(?s)<STMTTRN>(.*?)</STMTTRN>`)
	ledgerBalRe = regexp.MustCompile(`(?s)<LEDGERBAL>(.*?)</LEDGERBAL>`)
	fieldRes    = map[string]*regexp.Regexp{}
)

var sgmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

func init() {
	for _, name := range []string{"TRNTYPE", "DTPOSTED", "TRNAMT", "FITID", "NAME", "ACCTID", "DTSTART", "DTEND", "BALAMT"} {
		fieldRes[name] = regexp.MustCompile(fmt.Sprintf(`<%s>([^<\r\n]*)`, regexp.QuoteMeta(name)))
	}
}

// Entry is one STMTTRN as written in the file.
type Entry struct {
	Type   string
	Posted time.Time
	Amount decimal.Decimal
	FITID  string
	Name   string
}

// Statement is the parsed content of a QBO document.
type Statement struct {
	AccountType model.AccountType
	AccountID   string
	Start, End  time.Time
	Balance     decimal.Decimal
	Entries     []Entry
}

// ParseStatement reads the statement and transactions out of a QBO document.
func ParseStatement(text string) (Statement, error) {
	if !strings.Contains(text, "<OFX>") {
		return Statement{}, ErrNotOFX
	}

	st := Statement{AccountType: model.AccountTypeBank}
	if strings.Contains(text, "<CCSTMTRS>") {
		st.AccountType = model.AccountTypeCreditCard
	}
	st.AccountID = field(text, "ACCTID")

	var err error
	if st.Start, err = parseDate(field(text, "DTSTART")); err != nil {
		return Statement{}, fmt.Errorf("parsing DTSTART: %w", err)
	}
	if st.End, err = parseDate(field(text, "DTEND")); err != nil {
		return Statement{}, fmt.Errorf("parsing DTEND: %w", err)
	}
	if m := ledgerBalRe.FindStringSubmatch(text); m != nil {
		if st.Balance, err = decimal.NewFromString(field(m[1], "BALAMT")); err != nil {
			return Statement{}, fmt.Errorf("parsing LEDGERBAL: %w", err)
		}
	}

	for i, m := range stmtTrnRe.FindAllStringSubmatch(text, -1) {
		e, err := parseEntry(m[1])
		if err != nil {
			return Statement{}, fmt.Errorf("parsing transaction %d: %w", i+1, err)
		}
		st.Entries = append(st.Entries, e)
	}
	return st, nil
}

func parseEntry(block string) (Entry, error) {
	posted, err := parseDate(field(block, "DTPOSTED"))
	if err != nil {
		return Entry{}, fmt.Errorf("DTPOSTED: %w", err)
	}
	amount, err := decimal.NewFromString(field(block, "TRNAMT"))
	if err != nil {
		return Entry{}, fmt.Errorf("TRNAMT: %w", err)
	}
	return Entry{
		Type:   field(block, "TRNTYPE"),
		Posted: posted,
		Amount: amount,
		FITID:  field(block, "FITID"),
		Name:   sgmlUnescaper.Replace(field(block, "NAME")),
	}, nil
}

func field(block, name string) string {
	if m := fieldRes[name].FindStringSubmatch(block); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// parseDate accepts YYYYMMDD with an optional time and zone suffix.
func parseDate(s string) (time.Time, error) {
	if len(s) < len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse(dateLayout, s[:len(dateLayout)])
}
