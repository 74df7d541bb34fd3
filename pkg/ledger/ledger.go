// Package ledger assembles the processed months of one account into a
// continuous ledger and answers balance and range queries on it.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
	"github.com/yurifrl/ledgerline/pkg/store"
)

// Range selects the months to load. Zero bounds default to the account's
// open month and the latest processed month.
type Range struct {
	Start models.YearMonth
	End   models.YearMonth
}

// Month is one ledger cell.
type Month struct {
	Period       models.YearMonth
	Metadata     models.Metadata
	Transactions []models.Transaction
}

// Ledger is a gap-free run of months for one account.
type Ledger struct {
	Name   string
	Number string
	Months []Month

	// Transactions holds every month's rows sorted by date, with balances
	// recomputed from the first month's beginning balance.
	Transactions []models.Transaction

	BeginningBalance decimal.Decimal
	EndingBalance    decimal.Decimal
	Start            models.YearMonth
	End              models.YearMonth
}

type entry struct {
	tx    models.Transaction
	month models.YearMonth
}

// Load reads details.json and the processed months of accountDir inside r.
func Load(accountDir string, r Range) (*Ledger, error) {
	layout := store.NewLayout(accountDir)
	details, err := store.ReadDetails(layout.Details())
	if err != nil {
		return nil, fmt.Errorf("failed to read account details: %w", err)
	}
	var missing []string
	for field, v := range map[string]string{"name": details.Name, "acct_n": details.AcctN, "open_date": details.OpenDate} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &errs.MissingFieldError{File: layout.Details(), Fields: missing}
	}
	opened, err := time.Parse("01/2006", details.OpenDate)
	if err != nil {
		return nil, fmt.Errorf("invalid open_date %q in %s, expected MM/YYYY: %w", details.OpenDate, layout.Details(), err)
	}

	idx, err := BuildIndex(accountDir)
	if err != nil {
		return nil, err
	}
	latest, ok := idx.Latest()
	if !ok {
		return nil, fmt.Errorf("no processed statements found under %s", accountDir)
	}

	start, end := r.Start, r.End
	if start == (models.YearMonth{}) {
		start = models.YearMonthOf(opened)
	}
	if end == (models.YearMonth{}) {
		end = latest
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s must not be before start %s", end, start)
	}

	months := models.MonthsBetween(start, end)
	var gaps []string
	for _, ym := range months {
		if _, ok := idx[ym]; !ok {
			gaps = append(gaps, ym.String())
		}
	}
	if len(gaps) > 0 {
		var available []string
		for _, ym := range idx.Months() {
			available = append(available, ym.String())
		}
		return nil, &errs.MissingPeriodError{Account: details.Name, Missing: gaps, Available: available}
	}

	l := &Ledger{Name: details.Name, Number: details.AcctN, Start: start, End: end}
	var entries []entry
	for i, ym := range months {
		files := idx[ym]
		meta, err := store.ReadMetadata(files.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata for %s: %w", ym, err)
		}
		txs, err := store.ReadTransactions(files.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to read transactions for %s: %w", ym, err)
		}

		amounts := make([]decimal.Decimal, len(txs))
		for j, t := range txs {
			amounts[j] = t.Amount
		}
		computed := meta.BeginningBalance.Add(money.Sum(amounts...))
		if !money.WithinCent(computed, meta.EndingBalance) {
			return nil, &errs.ReconciliationError{
				File:     files.Metadata,
				Period:   ym.String(),
				Check:    "final balance",
				Expected: meta.EndingBalance,
				Computed: computed,
			}
		}
		if i > 0 {
			prevEnd := l.Months[i-1].Metadata.EndingBalance
			if !money.WithinCent(meta.BeginningBalance, prevEnd) {
				return nil, &errs.ContinuityError{
					Account:  details.Name,
					Period:   ym.String(),
					Expected: prevEnd,
					Computed: meta.BeginningBalance,
				}
			}
		}

		l.Months = append(l.Months, Month{Period: ym, Metadata: meta, Transactions: txs})
		for _, t := range txs {
			entries = append(entries, entry{tx: t, month: ym})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.tx.Date.Equal(b.tx.Date) {
			return a.tx.Date.Before(b.tx.Date)
		}
		return a.month.Before(b.month)
	})

	l.BeginningBalance = l.Months[0].Metadata.BeginningBalance
	l.EndingBalance = l.Months[len(l.Months)-1].Metadata.EndingBalance
	total := l.BeginningBalance
	l.Transactions = make([]models.Transaction, len(entries))
	for i, e := range entries {
		total = total.Add(e.tx.Amount)
		e.tx.Balance = total
		l.Transactions[i] = e.tx
	}
	return l, nil
}

// Span returns the dates of the first and last transactions.
func (l *Ledger) Span() (time.Time, time.Time, bool) {
	if len(l.Transactions) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return l.Transactions[0].Date, l.Transactions[len(l.Transactions)-1].Date, true
}

// BalanceAt returns the balance after the last transaction on or before
// date. Dates before the data yield zero; dates after it yield the last
// balance and a warning.
func (l *Ledger) BalanceAt(date time.Time) (decimal.Decimal, []string) {
	first, last, ok := l.Span()
	if !ok || date.Before(first) {
		return decimal.Zero, nil
	}
	if date.After(last) {
		warning := fmt.Sprintf("date %s is out of range for %s, last processed date is %s",
			date.Format("Jan 02, 2006"), l.Name, last.Format("Jan 02, 2006"))
		return l.Transactions[len(l.Transactions)-1].Balance, []string{warning}
	}
	i := sort.Search(len(l.Transactions), func(i int) bool {
		return l.Transactions[i].Date.After(date)
	})
	return l.Transactions[i-1].Balance, nil
}

// TransactionsInRange returns the transactions dated in [start, end].
func (l *Ledger) TransactionsInRange(start, end time.Time) ([]models.Transaction, []string, error) {
	if start.After(end) {
		return nil, nil, fmt.Errorf("start date %s is after end date %s", start.Format(models.DateLayoutCSV), end.Format(models.DateLayoutCSV))
	}
	first, last, ok := l.Span()
	if !ok {
		return nil, []string{fmt.Sprintf("%s has no transactions", l.Name)}, nil
	}
	outOfRange := func(what string, t time.Time) string {
		return fmt.Sprintf("%s %s is out of range for %s, last processed date is %s",
			what, t.Format("Jan 02, 2006"), l.Name, last.Format("Jan 02, 2006"))
	}

	var warnings []string
	switch {
	case end.Before(first):
		return nil, []string{outOfRange("end date", end)}, nil
	case start.After(last):
		return nil, []string{outOfRange("start date", start)}, nil
	case end.After(last):
		warnings = append(warnings, outOfRange("end date", end))
	}

	var out []models.Transaction
	for _, t := range l.Transactions {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out, warnings, nil
}
