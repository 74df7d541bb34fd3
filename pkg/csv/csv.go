// Package csv renders ledger transactions for the CLI, optionally filtered.
package csv

import (
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/models"
)

// FilterFunc keeps a transaction when it returns true.
type FilterFunc func(models.Transaction) bool

// Filter narrows a transaction listing. Zero fields are ignored.
type Filter struct {
	Start time.Time
	End   time.Time
	Payee string
	Min   *decimal.Decimal
	Max   *decimal.Decimal
}

// Func turns f into a FilterFunc.
func (f Filter) Func() FilterFunc {
	payee := strings.ToLower(f.Payee)
	return func(t models.Transaction) bool {
		if !f.Start.IsZero() && t.Date.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && t.Date.After(f.End) {
			return false
		}
		if f.Min != nil && t.Amount.LessThan(*f.Min) {
			return false
		}
		if f.Max != nil && t.Amount.GreaterThan(*f.Max) {
			return false
		}
		if payee != "" && !strings.Contains(strings.ToLower(t.Description), payee) {
			return false
		}
		return true
	}
}

type record struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Balance     string `csv:"Balance"`
	Category    string `csv:"Category"`
	Account     string `csv:"Account"`
	Source      string `csv:"Source"`
}

// Write renders the transactions kept by filter; a nil filter keeps all.
func Write(w io.Writer, txs []models.Transaction, filter FilterFunc) error {
	records := make([]*record, 0, len(txs))
	for _, t := range txs {
		if filter != nil && !filter(t) {
			continue
		}
		records = append(records, &record{
			Date:        t.DateString(),
			Description: t.Description,
			Amount:      t.Amount.StringFixed(2),
			Balance:     t.Balance.StringFixed(2),
			Category:    t.Category,
			Account:     t.Account,
			Source:      t.Source,
		})
	}
	return gocsv.Marshal(&records, w)
}
