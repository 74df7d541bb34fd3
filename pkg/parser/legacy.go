package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type balanceAsOf struct {
	Amount decimal.Decimal
	Date   time.Time
}

// legacyBalances replaces the balance block of statements printed before the
// issuer's current layout. Such statements are recognized by a literal
// fingerprint in their first page.
type legacyBalances struct {
	Fingerprint string
	Previous    balanceAsOf
	Total       balanceAsOf
}

var (
	appleSeptember2019 = balanceAsOf{Amount: decimal.RequireFromString("0.00"), Date: time.Date(2019, time.September, 30, 0, 0, 0, 0, time.UTC)}
	appleOctober2019   = balanceAsOf{Amount: decimal.RequireFromString("3.12"), Date: time.Date(2019, time.October, 31, 0, 0, 0, 0, time.UTC)}
	appleNovember2019  = balanceAsOf{Amount: decimal.RequireFromString("0.00"), Date: time.Date(2019, time.November, 30, 0, 0, 0, 0, time.UTC)}
)

var appleLegacy = []legacyBalances{
	{Fingerprint: "Oct 11 — Oct 31, 2019", Previous: appleSeptember2019, Total: appleOctober2019},
	{Fingerprint: "Nov 1 — Nov 30, 2019", Previous: appleOctober2019, Total: appleNovember2019},
}

func findLegacy(text string, table []legacyBalances) (legacyBalances, bool) {
	for _, entry := range table {
		if strings.Contains(text, entry.Fingerprint) {
			return entry, true
		}
	}
	return legacyBalances{}, false
}
