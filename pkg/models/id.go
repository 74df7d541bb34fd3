package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// idLength is the number of hex characters kept from the digest.
const idLength = 16

// NormalizeText lower-cases s, trims it and collapses inner whitespace.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(s)), " ")
}

// TransactionID fingerprints the economic event: the same account, day,
// description and amount in cents always produce the same id, so re-running
// extraction never changes identifiers.
func TransactionID(accountNumber string, date time.Time, description string, amount decimal.Decimal) string {
	day := ""
	if !date.IsZero() {
		day = date.Format(DateLayoutCSV)
	}
	cents := amount.Shift(2).Round(0).IntPart()
	canonical := fmt.Sprintf("%s|%s|%s|%d", NormalizeText(accountNumber), day, NormalizeText(description), cents)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:idLength]
}
