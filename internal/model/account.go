package model

// AccountType selects the statement variant of a ledger.
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCreditCard AccountType = "credit-card"
)

// ParseAccountType maps a metadata value onto an AccountType. Anything other
// than "credit-card" is a bank account.
func ParseAccountType(s string) AccountType {
	if AccountType(s) == AccountTypeCreditCard {
		return AccountTypeCreditCard
	}
	return AccountTypeBank
}

// Account describes the account a ledger is issued for.
type Account struct {
	Type           AccountType
	AccountID      string
	RoutingID      string // bank only
	TypeLabel      string // bank only: CHECKING, SAVINGS, CREDITLINE, MONEYMRKT
	InstitutionOrg string
	InstitutionFID string
	ProductID      string // INTU.BID
}
