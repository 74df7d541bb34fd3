package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/crossfill"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/store"
)

// FillMonth writes the processed files of ym, a month the institution sent
// no statement for. Its period follows the previous month and its rows come
// from the account's bulk export, which must cover the whole period. A
// placeholder is left in the month's Statements folder and recorded in the
// statements db.
func (p *Processor) FillMonth(ctx context.Context, acct config.Account, ym models.YearMonth) (models.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return models.Metadata{}, err
	}
	layout := p.Layout(acct)
	if store.Exists(layout.Metadata(ym)) {
		return models.Metadata{}, fmt.Errorf("%s %s is already processed", acct.ID, ym)
	}
	prev, err := store.ReadMetadata(layout.Metadata(ym.Prev()))
	if err != nil {
		return models.Metadata{}, fmt.Errorf("failed to read metadata of %s: %w", ym.Prev(), err)
	}

	next := crossfill.NextPeriod(prev)
	next.AccountNumber = acct.Number
	export, err := p.LoadExports(acct)
	if err != nil {
		return models.Metadata{}, err
	}
	if export == nil {
		return models.Metadata{}, fmt.Errorf("%s has no bulk export to fill %s from", acct.ID, ym)
	}
	period := next.Period()
	if prev.Period().IsZero() {
		return models.Metadata{}, fmt.Errorf("metadata of %s has no statement period to follow", ym.Prev())
	}
	if !export.Covers(period) {
		first, last, _ := export.Span()
		return models.Metadata{}, fmt.Errorf("export %s covers %s..%s, not %s",
			export.Source, first.Format(models.DateLayoutCSV), last.Format(models.DateLayoutCSV), period)
	}

	rows := export.Window(period)
	if len(rows) == 0 {
		p.logger.Warn("no transactions in period", "account", acct.ID, "month", ym, "period", period)
	}
	meta := crossfill.Settle(next, rows)
	meta.SetNote("source", export.Source)

	balances := crossfill.Balances(meta.BeginningBalance, rows)
	txs := make([]models.Transaction, len(rows))
	for i, r := range rows {
		txs[i] = models.NewTransaction(acct.Number, acct.Name(), export.Source, r.Date, r.Description, r.Amount, balances[i])
	}

	if err := store.WriteMetadata(layout.Metadata(ym), meta); err != nil {
		return models.Metadata{}, err
	}
	if err := store.WriteTransactions(layout.Transactions(ym), txs); err != nil {
		return models.Metadata{}, err
	}

	placeholder := crossfill.NewPlaceholder(acct.Name(), ym)
	path, err := layout.WritePlaceholder(ym, placeholder.FileName(), placeholder)
	if err != nil {
		return models.Metadata{}, err
	}
	db, err := store.LoadStatementsDB(layout.StatementsDB())
	if err != nil {
		return models.Metadata{}, err
	}
	db.Add(store.Processed{
		AccountNumber: acct.Number,
		Month:         int(ym.Month),
		Year:          ym.Year,
		RawPath:       relative(layout.Dir, path),
		ProcessedPath: relative(layout.Dir, layout.ProcessedMonth(ym)),
	})
	if err := db.Save(); err != nil {
		return models.Metadata{}, err
	}

	p.logger.Info("filled month without statement", "account", acct.ID, "month", ym, "transactions", len(txs))
	return meta, nil
}

// FillPending writes a single fake transaction for every month of acct
// that has metadata but no transactions.
func (p *Processor) FillPending(ctx context.Context, acct config.Account) ([]models.YearMonth, error) {
	layout := p.Layout(acct)
	months, err := pendingMonths(layout)
	if err != nil {
		return nil, err
	}
	var done []models.YearMonth
	for _, ym := range months {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		meta, err := store.ReadMetadata(layout.Metadata(ym))
		if err != nil {
			p.logger.Warn("failed to read metadata", "account", acct.ID, "month", ym, "error", err)
			continue
		}
		fake := crossfill.Fake(acct, meta)
		if err := store.WriteTransactions(layout.Transactions(ym), []models.Transaction{fake}); err != nil {
			return done, err
		}
		p.logger.Info("wrote fake transaction", "account", acct.ID, "month", ym, "amount", fake.Amount.StringFixed(2))
		done = append(done, ym)
	}
	return done, nil
}

// pendingMonths lists the months under Processed Data holding a
// metadata.json and no transactions.csv.
func pendingMonths(layout store.Layout) ([]models.YearMonth, error) {
	years, err := os.ReadDir(layout.Processed())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []models.YearMonth
	for _, y := range years {
		year, err := strconv.Atoi(y.Name())
		if err != nil || !y.IsDir() {
			continue
		}
		months, err := os.ReadDir(filepath.Join(layout.Processed(), y.Name()))
		if err != nil {
			return nil, err
		}
		for _, m := range months {
			month, err := strconv.Atoi(m.Name())
			if err != nil || !m.IsDir() || month < 1 || month > 12 {
				continue
			}
			ym := models.YearMonth{Year: year, Month: time.Month(month)}
			if store.Exists(layout.Metadata(ym)) && !store.Exists(layout.Transactions(ym)) {
				out = append(out, ym)
			}
		}
	}
	return out, nil
}
