// Package accounts resolves the account a document belongs to and the names
// its artifacts are stored under.
package accounts

import (
	"path"
	"strings"

	"github.com/cleared-dev/stmtqbo/internal/config"
	"github.com/cleared-dev/stmtqbo/internal/model"
)

// Metadata keys read from source documents and written onto ledgers.
const (
	MetaAccountType      = "accounttype"
	MetaAccountNumber    = "accountnumber"
	MetaOriginalName     = "originalname"
	MetaTransactionCount = "transactioncount"
)

// Output artifact suffixes and content types.
const (
	TablesSuffix      = ".tables.csv"
	LedgerSuffix      = ".qbo"
	TablesContentType = "text/csv"
	LedgerContentType = "application/vnd.intu.qbo"
)

const defaultDocumentName = "document"

// Resolve builds the account for a document from its metadata, falling back
// to the configured institution and bank account.
func Resolve(meta map[string]string, cfg *config.Config) model.Account {
	acct := model.Account{
		Type:           model.ParseAccountType(meta[MetaAccountType]),
		AccountID:      cfg.Bank.AccountID,
		RoutingID:      cfg.Bank.RoutingID,
		TypeLabel:      cfg.Bank.AccountType,
		InstitutionOrg: cfg.Institution.Org,
		InstitutionFID: cfg.Institution.FID,
		ProductID:      cfg.Institution.ProductID,
	}
	if n := strings.TrimSpace(meta[MetaAccountNumber]); n != "" {
		acct.AccountID = n
	}
	return acct
}

// BaseName returns the artifact base name for a document: the original file
// name when known, else the source key's file name, without its extension.
// "Jan Statement (1).pdf" -> "Jan_Statement_1"
func BaseName(originalName, sourceKey string) string {
	name := originalName
	if name == "" {
		name = path.Base(sourceKey)
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	name = strings.NewReplacer(" ", "_", "(", "", ")", "").Replace(name)
	if name == "" || name == "/" {
		return defaultDocumentName
	}
	return name
}

// Keys holds the storage keys of a document's artifacts.
type Keys struct {
	Tables string
	Ledger string
}

// OutputKeys joins prefix and base into artifact keys. A non-empty prefix
// always ends in exactly one slash.
func OutputKeys(prefix, base string) Keys {
	if prefix = strings.TrimRight(prefix, "/"); prefix != "" {
		prefix += "/"
	}
	return Keys{
		Tables: prefix + base + TablesSuffix,
		Ledger: prefix + base + LedgerSuffix,
	}
}
