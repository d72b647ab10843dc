package ofx

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtqbo/internal/fitid"
	"github.com/cleared-dev/stmtqbo/internal/model"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102150405"
	// balances are stamped at noon of the last day
	asOfSuffix = "120000"
	crlf       = "\r\n"
)

const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"
)

var header = []string{
	"OFXHEADER:100",
	"DATA:OFXSGML",
	"VERSION:102",
	"SECURITY:NONE",
	"ENCODING:USASCII",
	"CHARSET:1252",
	"COMPRESSION:NONE",
	"OLDFILEUID:NONE",
	"NEWFILEUID:NONE",
	"",
}

const statusOK = "<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>"

var sgmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Options supplies the clock and TRNUID source. Zero values use the wall
// clock and fitid.NewTransactionUID.
type Options struct {
	Now func() time.Time
	UID func() string
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o Options) uid() string {
	if o.UID != nil {
		return o.UID()
	}
	return fitid.NewTransactionUID()
}

// Render serializes l as a QBO document with CRLF line endings. The message
// set is chosen by the account type.
func Render(l Ledger, opts Options) (string, error) {
	var variant statement
	switch l.Account.Type {
	case model.AccountTypeBank:
		variant = bankStatement(l.Account)
	case model.AccountTypeCreditCard:
		variant = creditCardStatement(l.Account)
	default:
		return "", fmt.Errorf("rendering ledger: unknown account type %q", l.Account.Type)
	}

	now := opts.now()
	start, end := l.Range(now)
	asOf := end.Format(dateLayout) + asOfSuffix
	balance := l.Balance().StringFixed(2)

	lines := []string{
		"<OFX>",
		"<SIGNONMSGSRSV1><SONRS>",
		statusOK,
		tag("DTSERVER", now.Format(dateTimeLayout)),
		tag("LANGUAGE", "ENG"),
		"<FI>" + tag("ORG", escape(l.Account.InstitutionOrg)) + tag("FID", escape(l.Account.InstitutionFID)) + "</FI>",
		tag("INTU.BID", escape(l.Account.ProductID)),
		"</SONRS></SIGNONMSGSRSV1>",
		variant.open,
		tag("TRNUID", opts.uid()),
		statusOK,
		variant.stmtOpen,
		tag("CURDEF", "USD"),
		variant.accountFrom,
		"<BANKTRANLIST>" + tag("DTSTART", start.Format(dateLayout)) + tag("DTEND", end.Format(dateLayout)),
	}

	for _, t := range l.Transactions {
		name := model.TruncateDescription(t.Description)
		trnType, amount := variant.signed(t.Amount)
		lines = append(lines,
			"<STMTTRN>",
			tag("TRNTYPE", trnType),
			tag("DTPOSTED", t.Date.Format(dateLayout)),
			tag("TRNAMT", amount),
			tag("FITID", fitid.Fingerprint(t.Date, name, t.Amount)),
			tag("NAME", escape(name)),
			"</STMTTRN>",
		)
	}

	lines = append(lines,
		"</BANKTRANLIST>",
		"<LEDGERBAL>"+tag("BALAMT", balance)+tag("DTASOF", asOf)+"</LEDGERBAL>",
		"<AVAILBAL>"+tag("BALAMT", balance)+tag("DTASOF", asOf)+"</AVAILBAL>",
		variant.close,
		"</OFX>",
	)

	return join(header) + join(lines), nil
}

type statement struct {
	open, stmtOpen, accountFrom, close string
	signed                             func(decimal.Decimal) (string, string)
}

func bankStatement(a model.Account) statement {
	return statement{
		open:     "<BANKMSGSRSV1><STMTTRNRS>",
		stmtOpen: "<STMTRS>",
		accountFrom: "<BANKACCTFROM>" +
			tag("BANKID", escape(a.RoutingID)) +
			tag("ACCTID", escape(a.AccountID)) +
			tag("ACCTTYPE", escape(a.TypeLabel)) +
			"</BANKACCTFROM>",
		close: "</STMTRS></STMTTRNRS></BANKMSGSRSV1>",
		signed: func(v decimal.Decimal) (string, string) {
			if v.IsPositive() {
				return TypeCredit, v.StringFixed(2)
			}
			return TypeDebit, v.StringFixed(2)
		},
	}
}

// A positive parsed amount on a card statement is a charge: it is written as
// a DEBIT with a negative TRNAMT.
func creditCardStatement(a model.Account) statement {
	return statement{
		open:        "<CREDITCARDMSGSRSV1><CCSTMTTRNRS>",
		stmtOpen:    "<CCSTMTRS>",
		accountFrom: "<CCACCTFROM>" + tag("ACCTID", escape(a.AccountID)) + "</CCACCTFROM>",
		close:       "</CCSTMTRS></CCSTMTTRNRS></CREDITCARDMSGSRSV1>",
		signed: func(v decimal.Decimal) (string, string) {
			if v.IsPositive() {
				return TypeDebit, "-" + v.StringFixed(2)
			}
			return TypeCredit, v.Abs().StringFixed(2)
		},
	}
}

func tag(name, value string) string {
	return "<" + name + ">" + value + "</" + name + ">"
}

func escape(s string) string {
	return sgmlEscaper.Replace(s)
}

func join(lines []string) string {
	return strings.Join(lines, crlf) + crlf
}
