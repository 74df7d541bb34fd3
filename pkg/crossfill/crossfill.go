// Package crossfill takes the rows of metadata-only statements from an
// institution's bulk CSV export, and builds the records written for months
// that have no statement at all.
package crossfill

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

const (
	// FakeDescription marks the single row written for a month whose
	// balances are known but whose transactions are not.
	FakeDescription = "Fake Transaction"
	// FakeSource is the Source of a fake row.
	FakeSource = "N/A"
	// PlaceholderNote is stored in place of a missing statement.
	PlaceholderNote = "No statement available for this month."
)

// Export is a loaded bulk export, sorted by date. Rows are in the ledger
// convention: outflows negative.
type Export struct {
	Source string
	Rows   []models.Row
}

// LoadExport reads an export with the column layout of spec.
func LoadExport(r io.Reader, source string, spec config.CSVSpec) (*Export, error) {
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", source, err)
	}
	out := &Export{Source: source}
	if len(records) == 0 {
		return out, nil
	}

	dateColumn := ""
	for _, c := range spec.DateColumns {
		if _, ok := records[0][c]; ok {
			dateColumn = c
			break
		}
	}
	if dateColumn == "" {
		return nil, fmt.Errorf("export %s has none of the date columns %s", source, strings.Join(spec.DateColumns, ", "))
	}
	for _, c := range []string{spec.AmountColumn, spec.DescriptionColumn} {
		if _, ok := records[0][c]; !ok {
			return nil, fmt.Errorf("export %s has no %q column", source, c)
		}
	}

	out.Rows = make([]models.Row, 0, len(records))
	for i, rec := range records {
		date, err := money.ParseDate(rec[dateColumn], spec.DateLayout)
		if err != nil {
			return nil, fmt.Errorf("export %s row %d: %w", source, i+2, err)
		}
		amount, err := money.ParseAmount(rec[spec.AmountColumn])
		if err != nil {
			return nil, fmt.Errorf("export %s row %d: %w", source, i+2, err)
		}
		if spec.Negate {
			amount = amount.Neg()
		}
		out.Rows = append(out.Rows, models.Row{
			Date:        date,
			Description: strings.TrimSpace(rec[spec.DescriptionColumn]),
			Amount:      amount,
			Category:    strings.TrimSpace(rec[spec.CategoryColumn]),
		})
	}

	// Exports list the newest rows first; reversing before the stable sort
	// keeps same-day rows in the order they happened.
	for i, j := 0, len(out.Rows)-1; i < j; i, j = i+1, j-1 {
		out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i]
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Date.Before(out.Rows[j].Date)
	})
	return out, nil
}

// Merge combines several exports, dropping rows repeated across overlapping
// downloads.
func Merge(exports ...*Export) *Export {
	out := &Export{}
	seen := map[string]bool{}
	var sources []string
	for _, e := range exports {
		if e == nil {
			continue
		}
		sources = append(sources, e.Source)
		for _, r := range e.Rows {
			key := fmt.Sprintf("%s|%s|%s", r.Date.Format(models.DateLayoutCSV), r.Description, r.Amount.StringFixed(2))
			if seen[key] {
				continue
			}
			seen[key] = true
			out.Rows = append(out.Rows, r)
		}
	}
	out.Source = strings.Join(sources, ";")
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Date.Before(out.Rows[j].Date)
	})
	return out
}

// Span returns the first and last dates of the export.
func (e *Export) Span() (time.Time, time.Time, bool) {
	if e == nil || len(e.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return e.Rows[0].Date, e.Rows[len(e.Rows)-1].Date, true
}

// Covers reports whether the export spans the whole period.
func (e *Export) Covers(p models.Period) bool {
	first, last, ok := e.Span()
	return ok && !first.After(p.Begin) && !last.Before(p.End)
}

// Window returns the rows dated inside p, both ends included.
func (e *Export) Window(p models.Period) []models.Row {
	var out []models.Row
	for _, r := range e.Rows {
		if p.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// Fill returns the export rows of the statement period described by meta.
// ok is false when the export does not cover the whole period, or when no
// row falls inside it. Rows carry no balance; the running balance from
// meta's beginning balance is Balances(meta.BeginningBalance, rows).
func Fill(export *Export, meta models.Metadata) ([]models.Row, bool) {
	period := meta.Period()
	if !export.Covers(period) {
		return nil, false
	}
	rows := export.Window(period)
	if len(rows) == 0 {
		return nil, false
	}
	return rows, true
}

// NextPeriod builds the metadata of the month following prev when that
// month has no statement: it starts where prev ended and runs one calendar
// month. Its ending balance is unknown until the rows are filled.
func NextPeriod(prev models.Metadata) models.Metadata {
	next := models.Metadata{
		AccountNumber:    prev.AccountNumber,
		BeginningDate:    prev.EndingDate,
		EndingDate:       money.AddMonths(prev.EndingDate, 1),
		Date:             money.AddMonths(prev.Date, 1),
		BeginningBalance: prev.EndingBalance,
		EndingBalance:    prev.EndingBalance,
	}
	return next
}

// Settle sets the ending balance of meta from its filled rows.
func Settle(meta models.Metadata, rows []models.Row) models.Metadata {
	out := meta.Clone()
	total := meta.BeginningBalance
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	out.EndingBalance = total
	return out
}

// Fake returns the single transaction standing for a month whose
// transactions are unknown: it moves the balance from beginning to ending.
func Fake(acct config.Account, meta models.Metadata) models.Transaction {
	amount := meta.EndingBalance.Sub(meta.BeginningBalance)
	return models.NewTransaction(acct.Number, acct.Name(), FakeSource, meta.Date, FakeDescription, amount, meta.EndingBalance)
}

// Placeholder is written next to the statements of a month that has none.
type Placeholder struct {
	Account string `json:"account"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Note    string `json:"note"`
}

func NewPlaceholder(accountNumber string, ym models.YearMonth) Placeholder {
	return Placeholder{
		Account: accountNumber,
		Year:    ym.Year,
		Month:   int(ym.Month),
		Note:    PlaceholderNote,
	}
}

// FileName is "statement-<acct>-<year>-<month>.placeholder.json".
func (p Placeholder) FileName() string {
	return fmt.Sprintf("statement-%s-%d-%d.placeholder.json", p.Account, p.Year, p.Month)
}

// Balances returns the running balance after each row.
func Balances(begin decimal.Decimal, rows []models.Row) []decimal.Decimal {
	out := make([]decimal.Decimal, len(rows))
	total := begin
	for i, r := range rows {
		total = total.Add(r.Amount)
		out[i] = total
	}
	return out
}
