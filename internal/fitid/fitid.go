// Package fitid derives the identifiers written into ledger files.
package fitid

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// FingerprintLen is the length of a transaction FITID.
	FingerprintLen = 12
	// UIDLen is the length of a statement TRNUID.
	UIDLen = 16
)

// Fingerprint returns a stable FITID for a transaction: the first 12 hex chars
// of md5(YYYYMMDD + amount to 2 places + description). The same inputs always
// produce the same id, so re-importing a statement does not duplicate entries.
func Fingerprint(date time.Time, description string, amount decimal.Decimal) string {
	sum := md5.Sum([]byte(date.Format("20060102") + amount.StringFixed(2) + description))
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

// NewTransactionUID returns a fresh 16-char hex TRNUID.
func NewTransactionUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:UIDLen]
}

// IsFingerprint reports whether s has the shape of a Fingerprint.
// "3f2a9c0d11be" -> true
func IsFingerprint(s string) bool {
	if len(s) != FingerprintLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && strings.ToLower(s) == s
}
