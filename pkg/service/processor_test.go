package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/crossfill"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/ledger"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/parser"
	"github.com/yurifrl/ledgerline/pkg/store"
)

// fakeExtractor serves page text by file name.
type fakeExtractor map[string][]string

func (f fakeExtractor) Extract(path string) (parser.Document, error) {
	name := filepath.Base(path)
	pages, ok := f[name]
	if !ok {
		return parser.Document{}, fmt.Errorf("no text for %s", name)
	}
	return parser.Document{Name: name, Pages: pages}, nil
}

const chaseJanuary = `JPMorgan Chase Bank, N.A.
January 01, 2024 through January 31, 2024
Account Number: 000000000002425
Beginning Balance $1,000.00
Ending Balance $1,250.00
`

const chaseExport = `Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
CREDIT,03/05/2024,LATEST,1.00,ACH_CREDIT,,
CREDIT,02/15/2024,TRANSFER IN,100.00,ACH_CREDIT,,
DEBIT,01/30/2024,ATM WITHDRAWAL,-250.00,ATM,,
CREDIT,01/10/2024,PAYROLL,500.00,ACH_CREDIT,,
DEBIT,12/28/2023,COFFEE,-1.00,DEBIT_CARD,,
`

const savingsQuarter = "Discover Bank Online Savings Account ending 8384\n" +
	"Statement Period: Jan 01, 2024 - Mar 31, 2024\n" +
	"Beginning Balance .......... $1,000.00\n" +
	"Deposits and Credits .......... $504.10\n" +
	"Electronic Withdrawals .......... $200.00\n" +
	"Service Charges, Fees, and Other Withdrawals .......... $0.00\n" +
	"Ending Balance .......... $1,304.10\n" +
	"Annual Percentage Yield Earned .......... 4.30%\n" +
	"Interest Earned this Period .......... $4.10\n" +
	"Interest Paid Year-to-date .......... $4.10\n" +
	"Transaction Date Posted Date Description Amount\n" +
	"Jan 5 Jan 5 Deposit from CHECKING $500.00\n" +
	"Mar 10 Mar 10 Withdrawal to CHECKING $200.00\n" +
	"Mar 31 Mar 31 Interest Paid $4.10\n"

type fixture struct {
	root      string
	cfg       *config.Config
	processor *Processor
}

func newFixture(t *testing.T, exports bool, pages fakeExtractor) fixture {
	t.Helper()
	root := t.TempDir()
	registry := fmt.Sprintf(`root: %s
accounts:
  - number: "2425"
    institution: Chase
    format: chase_checking
    open_date: 01/2024
%s  - number: "8384"
    institution: Discover
    format: discover_savings
    open_date: 01/2024
`, root, exportLine(exports))
	cfg, err := config.Parse([]byte(registry))
	require.NoError(t, err)

	p := NewProcessor(cfg, pages, log.New(io.Discard))
	for _, acct := range cfg.Accounts {
		require.NoError(t, p.Init(acct))
	}
	return fixture{root: root, cfg: cfg, processor: p}
}

func exportLine(on bool) string {
	if !on {
		return ""
	}
	return "    exports: [\"exports/*.csv\"]\n"
}

func (f fixture) account(t *testing.T, key string) config.Account {
	acct, err := f.cfg.Account(key)
	require.NoError(t, err)
	return acct
}

func (f fixture) statement(t *testing.T, key, month, name string) {
	t.Helper()
	path := filepath.Join(f.processor.Layout(f.account(t, key)).Statements(), month, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func (f fixture) export(t *testing.T, key, name, body string) {
	t.Helper()
	path := filepath.Join(f.account(t, key).Path(f.root), "exports", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func jan() models.YearMonth { return models.YearMonth{Year: 2024, Month: time.January} }

func TestProcessAllAndRerun(t *testing.T) {
	f := newFixture(t, true, fakeExtractor{
		"chase-jan.pdf":  {chaseJanuary},
		"savings-q1.pdf": {savingsQuarter},
	})
	f.statement(t, "2425", "2024/01", "chase-jan.pdf")
	f.statement(t, "8384", "2024/03", "savings-q1.pdf")
	f.statement(t, "8384", "2024/03", "broken.pdf")
	f.export(t, "2425", "activity.csv", chaseExport)

	ctx := context.Background()
	results, err := f.processor.ProcessAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Processed)
	assert.Equal(t, 1, results[1].Processed)
	assert.Equal(t, 1, results[1].Failed)
	assert.Len(t, results[1].Months, 3)

	chase := f.processor.Layout(f.account(t, "2425"))
	txs, err := store.ReadTransactions(chase.Transactions(jan()))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "PAYROLL", txs[0].Description)
	assert.Equal(t, "1250.00", txs[1].Balance.StringFixed(2))
	assert.Equal(t, "Chase-2425", txs[1].Account)

	savings, err := ledger.Load(f.account(t, "8384").Path(f.root), ledger.Range{})
	require.NoError(t, err)
	assert.Len(t, savings.Months, 3)
	assert.Equal(t, "1304.10", savings.EndingBalance.StringFixed(2))

	db, err := store.LoadStatementsDB(chase.StatementsDB())
	require.NoError(t, err)
	assert.True(t, db.Has("Statements/2024/01/chase-jan.pdf"))

	before, err := os.ReadFile(chase.Transactions(jan()))
	require.NoError(t, err)

	// A second run finds nothing new.
	again, err := f.processor.ProcessAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again[0].Processed)
	assert.Equal(t, 1, again[0].Skipped)
	assert.Equal(t, 0, again[1].Processed)
	assert.Equal(t, 1, again[1].Skipped)

	after, err := os.ReadFile(chase.Transactions(jan()))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	plan, err := f.processor.Plan(f.account(t, "8384"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Statements/2024/03/broken.pdf"}, plan)
}

func TestProcessRejectsSecondStatementForMonth(t *testing.T) {
	f := newFixture(t, true, fakeExtractor{
		"a.pdf": {chaseJanuary},
		"b.pdf": {chaseJanuary},
	})
	f.statement(t, "2425", "2024/01", "a.pdf")
	f.statement(t, "2425", "2024/01", "b.pdf")
	f.export(t, "2425", "activity.csv", chaseExport)

	res, err := f.processor.ProcessAccount(context.Background(), f.account(t, "2425"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
}

func TestProcessWritesNothingWhenOneMonthIsTaken(t *testing.T) {
	f := newFixture(t, false, fakeExtractor{"savings-q1.pdf": {savingsQuarter}})
	f.statement(t, "8384", "2024/03", "savings-q1.pdf")
	acct := f.account(t, "8384")
	layout := f.processor.Layout(acct)

	march := models.YearMonth{Year: 2024, Month: time.March}
	taken := models.Metadata{
		AccountNumber:    "8384",
		BeginningDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndingDate:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Date:             time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		BeginningBalance: decimal.RequireFromString("1500.00"),
		EndingBalance:    decimal.RequireFromString("1304.10"),
	}
	taken.SetNote("source", "Statements/2024/03/other.pdf")
	require.NoError(t, store.WriteMetadata(layout.Metadata(march), taken))

	res, err := f.processor.ProcessAccount(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, res.Failed)

	for _, ym := range []models.YearMonth{jan(), jan().Next()} {
		assert.NoFileExists(t, layout.Metadata(ym))
		assert.NoFileExists(t, layout.Transactions(ym))
	}
	assert.NoFileExists(t, layout.Transactions(march))
	kept, err := store.ReadMetadata(layout.Metadata(march))
	require.NoError(t, err)
	assert.Equal(t, "Statements/2024/03/other.pdf", kept.Notes["source"])

	db, err := store.LoadStatementsDB(layout.StatementsDB())
	require.NoError(t, err)
	assert.Empty(t, db.Rows())
}

func TestFillMonth(t *testing.T) {
	f := newFixture(t, true, fakeExtractor{"chase-jan.pdf": {chaseJanuary}})
	f.statement(t, "2425", "2024/01", "chase-jan.pdf")
	f.export(t, "2425", "activity.csv", chaseExport)
	acct := f.account(t, "2425")
	ctx := context.Background()

	_, err := f.processor.ProcessAccount(ctx, acct)
	require.NoError(t, err)

	feb := jan().Next()
	meta, err := f.processor.FillMonth(ctx, acct, feb)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", meta.BeginningBalance.StringFixed(2))
	assert.Equal(t, "1350.00", meta.EndingBalance.StringFixed(2))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), meta.EndingDate)

	layout := f.processor.Layout(acct)
	placeholder := crossfill.NewPlaceholder(acct.Name(), feb)
	assert.FileExists(t, filepath.Join(layout.StatementMonth(feb), placeholder.FileName()))

	l, err := ledger.Load(layout.Dir, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, "1350.00", l.EndingBalance.StringFixed(2))

	// The export stops before the March period ends.
	_, err = f.processor.FillMonth(ctx, acct, feb.Next())
	assert.ErrorContains(t, err, "covers")

	_, err = f.processor.FillMonth(ctx, acct, feb)
	assert.ErrorContains(t, err, "already processed")
}

func TestFillPending(t *testing.T) {
	f := newFixture(t, false, fakeExtractor{"chase-jan.pdf": {chaseJanuary}})
	f.statement(t, "2425", "2024/01", "chase-jan.pdf")
	acct := f.account(t, "2425")
	ctx := context.Background()

	res, err := f.processor.ProcessAccount(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	layout := f.processor.Layout(acct)
	assert.FileExists(t, layout.Metadata(jan()))
	assert.NoFileExists(t, layout.Transactions(jan()))

	_, err = ledger.Load(layout.Dir, ledger.Range{})
	var incomplete *errs.IncompletePeriodError
	require.True(t, errors.As(err, &incomplete))

	done, err := f.processor.FillPending(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, []models.YearMonth{jan()}, done)

	txs, err := store.ReadTransactions(layout.Transactions(jan()))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, crossfill.FakeDescription, txs[0].Description)
	assert.Equal(t, "250.00", txs[0].Amount.StringFixed(2))

	l, err := ledger.Load(layout.Dir, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, "1250.00", l.EndingBalance.StringFixed(2))
}

func TestProcessStopsOnCancel(t *testing.T) {
	f := newFixture(t, false, fakeExtractor{"chase-jan.pdf": {chaseJanuary}})
	f.statement(t, "2425", "2024/01", "chase-jan.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.processor.ProcessAccount(ctx, f.account(t, "2425"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Processed)
}
