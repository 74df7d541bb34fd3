package parser

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/reconcile"
)

const registry = `root: /tmp/ledgerline
accounts:
  - number: "5843"
    institution: Apple
    format: apple_card
  - number: "2425"
    institution: Chase
    format: chase_checking
  - number: "7788"
    institution: Chase
    format: chase_sapphire
  - number: "4589"
    institution: Discover
    format: discover_card
  - number: "8384"
    institution: Discover
    format: discover_savings
  - number: "6552"
    institution: PNC
    format: pnc
    title: Spend
  - number: "8365"
    institution: SoFi
    format: sofi
    kind: checking
  - number: "9806"
    institution: SoFi
    format: sofi
    kind: savings
`

func newParser(t *testing.T) (*Parser, *config.Config) {
	t.Helper()
	cfg, err := config.Parse([]byte(registry))
	require.NoError(t, err)
	return New(log.New(io.Discard), cfg), cfg
}

func parse(t *testing.T, number string, doc Document) []*models.Statement {
	t.Helper()
	p, cfg := newParser(t)
	acct, ok := cfg.ByNumber(number)
	require.True(t, ok)
	statements, err := p.Parse(acct, doc)
	require.NoError(t, err)
	return statements
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertRow(t *testing.T, row models.Row, when time.Time, description, amount string) {
	t.Helper()
	assert.Equal(t, when, row.Date, "date of %q", row.Description)
	assert.Equal(t, description, row.Description)
	assert.Equal(t, amount, row.Amount.StringFixed(2), "amount of %q", row.Description)
}

const applePage = `Apple Card Customer
Statement
Previous Monthly Balance $100.00
as of Dec 31, 2023
Previous Total Balance $100.00
as of Dec 31, 2023
Total Balance $150.00
as of Jan 31, 2024
Payments
Date Description Amount
01/05/2024 ACH Deposit Internet transfer -$100.00
Total payments for this period -$100.00
Transactions
Date Description Daily Cash Amount
01/10/2024 COFFEE SHOP 2% $1.00 $50.00
01/12/2024 GROCERY 1% $1.00 $100.00
Total Daily Cash this month $2.00
Total charges, credits and returns $150.00
`

func TestAppleCard(t *testing.T) {
	statements := parse(t, "5843", Document{Name: "apple-jan.pdf", Pages: []string{applePage}})
	require.Len(t, statements, 1)
	stmt := statements[0]

	assert.Equal(t, "Apple-5843", stmt.AccountName)
	assert.Equal(t, models.SignNegated, stmt.Sign)
	assert.Equal(t, "100.00", stmt.Metadata.BeginningBalance.StringFixed(2))
	assert.Equal(t, "150.00", stmt.Metadata.EndingBalance.StringFixed(2))
	assert.Equal(t, date(2024, 1, 31), stmt.Metadata.Date)
	paid, _ := stmt.Metadata.Field("total_payments")
	assert.Equal(t, "100.00", paid.StringFixed(2))
	assert.Equal(t, "apple-jan.pdf", stmt.Metadata.Notes["source"])

	require.Len(t, stmt.Rows, 3)
	assertRow(t, stmt.Rows[0], date(2024, 1, 5), "ACH Deposit Internet transfer", "-100.00")
	assertRow(t, stmt.Rows[1], date(2024, 1, 10), "COFFEE SHOP", "50.00")
	assert.Equal(t, "2%", stmt.Rows[1].Percentage)
	assert.Equal(t, "1.00", stmt.Rows[1].Cashback.StringFixed(2))

	require.NoError(t, reconcile.Check(stmt))

	transactions, meta := stmt.Ledger()
	assert.Equal(t, "-150.00", meta.EndingBalance.StringFixed(2))
	assert.Equal(t, "100.00", transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "-150.00", transactions[2].Balance.StringFixed(2))
}

const applePaymentsBlock = "Payments\nDate Description Amount\n" +
	"01/05/2024 Payment - Thank You $1,200.00\n" +
	"Total payments $1,200.00"

func TestApplePaymentsBlock(t *testing.T) {
	tables, err := readAppleTables("Apple Card\n" + applePaymentsBlock + "\n")
	require.NoError(t, err)
	require.Len(t, tables.payments, 1)
	assertRow(t, tables.payments[0], date(2024, 1, 5), "Payment - Thank You", "-1200.00")
	require.Len(t, tables.summaries, 1)
	assert.Equal(t, "-1200.00", tables.summaries[0].Amount.StringFixed(2))

	stmt := &models.Statement{
		Metadata:          models.Metadata{BeginningBalance: dec("1200.00"), EndingBalance: dec("0.00")},
		Rows:              tables.payments,
		Summaries:         tables.summaries,
		ExpectedSummaries: 1,
	}
	require.NoError(t, reconcile.Check(stmt))
}

func TestApplePaymentsBlockAtPageTop(t *testing.T) {
	// The table header must follow a line break; a page opening with it has
	// no payments table.
	tables, err := readAppleTables(applePaymentsBlock)
	require.NoError(t, err)
	assert.Empty(t, tables.payments)
	assert.Empty(t, tables.summaries)
}

func TestAppleLegacyBalances(t *testing.T) {
	page := "Apple Card\nOct 11 — Oct 31, 2019\n"
	previous, total, err := appleBalances(page)
	require.NoError(t, err)
	assert.True(t, previous.Amount.IsZero())
	assert.Equal(t, date(2019, 9, 30), previous.Date)
	assert.Equal(t, "3.12", total.Amount.StringFixed(2))
	assert.Equal(t, date(2019, 10, 31), total.Date)
}

func TestAppleMissingBalances(t *testing.T) {
	_, _, err := appleBalances("Apple Card\nTotal Balance $10.00\nas of Jan 31, 2024\n")
	var mfe *errs.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, []string{applePreviousMonthly, applePreviousTotal}, mfe.Fields)
}

func TestRegionExtract(t *testing.T) {
	text := "intro\nStart\nrow 1\nrow 2\nEnd A 1\nmore\nEnd B 2\ntail"
	tests := []struct {
		name   string
		region region
		want   string
		ok     bool
	}{
		{name: "furthest end marker wins", region: region{start: "\nStart", ends: []string{"\nEnd A", "\nEnd B"}}, want: "\nStart\nrow 1\nrow 2\nEnd A 1\nmore\nEnd B 2", ok: true},
		{name: "missing end runs to the end", region: region{start: "\nStart", ends: []string{"\nNope"}}, want: "\nStart\nrow 1\nrow 2\nEnd A 1\nmore\nEnd B 2\ntail", ok: true},
		{name: "missing start", region: region{start: "\nAbsent", ends: []string{"\nEnd A"}}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.region.extract(text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRsplit(t *testing.T) {
	assert.Equal(t, []string{"COFFEE SHOP", "2%", "$1.00", "$50.00"}, rsplit("COFFEE SHOP 2% $1.00 $50.00", 3))
	assert.Equal(t, []string{"single"}, rsplit("single", 2))
	assert.Equal(t, []string{"a b", "c"}, rsplit("a b c", 1))
}

func TestRequireNamesMissingFields(t *testing.T) {
	acc, err := fold([]string{"beginningbalance$10.00"}, []rule{
		{field: "Beginning balance", prefixes: []string{"beginningbalance"}, read: dollarField("Beginning balance")},
	})
	require.NoError(t, err)
	err = acc.require("Beginning balance", "Ending balance", models.KeyEndingDate)
	var mfe *errs.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, []string{"Ending balance", models.KeyEndingDate}, mfe.Fields)
}

func TestChaseChecking(t *testing.T) {
	page := `JPMorgan Chase Bank, N.A.
January 01, 2024 through January 31, 2024
Account Number: 000000000002425
CHECKING SUMMARY
Beginning Balance $1,000.00
Deposits and Additions 500.00
Electronic Withdrawals -250.00
Ending Balance $1,250.00
`
	statements := parse(t, "2425", Document{Name: "chase.pdf", Pages: []string{page}})
	require.Len(t, statements, 1)
	meta := statements[0].Metadata
	assert.True(t, statements[0].MetadataOnly)
	assert.Empty(t, statements[0].Rows)
	assert.Equal(t, date(2024, 1, 1), meta.BeginningDate)
	assert.Equal(t, date(2024, 1, 31), meta.EndingDate)
	assert.Equal(t, date(2024, 1, 16), meta.Date)
	assert.Equal(t, "1000.00", meta.BeginningBalance.StringFixed(2))
	assert.Equal(t, "1250.00", meta.EndingBalance.StringFixed(2))
}

func TestChaseCheckingMissingBalance(t *testing.T) {
	p, cfg := newParser(t)
	acct, _ := cfg.ByNumber("2425")
	_, err := p.Parse(acct, Document{Name: "chase.pdf", Pages: []string{"January 01, 2024 through January 31, 2024\nBeginning Balance $1.00\n"}})
	var mfe *errs.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, []string{models.KeyEndingBalance}, mfe.Fields)
	assert.Equal(t, "chase.pdf", mfe.File)
}

func TestChaseSapphire(t *testing.T) {
	page := "ACCOUNT SUMMARY\n" +
		"Opening/Closing Date 01/05/24 - 02/04/24\n" +
		"Previous Balance $500.00\n" +
		"Payment, Credits -$500.00\n" +
		"Purchases +$200.00\n" +
		"Balance Transfers $0.00\n" +
		"Cash Advances $0.00\n" +
		"Fees Charged $0.00\n" +
		"Interest Charged $0.00\n" +
		"New Balance $200.00\n"
	statements := parse(t, "7788", Document{Name: "sapphire.pdf", Pages: []string{page}})
	require.Len(t, statements, 1)
	meta := statements[0].Metadata
	assert.Equal(t, date(2024, 2, 4), meta.Date)
	assert.Equal(t, "-500.00", meta.BeginningBalance.StringFixed(2))
	assert.Equal(t, "-200.00", meta.EndingBalance.StringFixed(2))
	payments, _ := meta.Field("payments_and_credits")
	assert.Equal(t, "500.00", payments.StringFixed(2))
	purchases, _ := meta.Field("purchases")
	assert.Equal(t, "-200.00", purchases.StringFixed(2))
}

const discoverCardPage = `DISCOVER IT CARD
Account ending in 4589
ACCOUNT SUMMARY 01/05/2024 - 02/04/2024
Previous Balance $300.00
Payments and Credits -$300.00
Purchases +$120.50
Balance Transfers +$0.00
Cash Advances +$0.00
Fees Charged +$0.00
Interest Charged +$0.00
New Balance $120.50
`

func TestDiscoverCard(t *testing.T) {
	statements := parse(t, "4589", Document{Name: "discover.pdf", Pages: []string{discoverCardPage}})
	require.Len(t, statements, 1)
	stmt := statements[0]
	assert.True(t, stmt.MetadataOnly)
	assert.Equal(t, date(2024, 1, 5), stmt.Metadata.BeginningDate)
	assert.Equal(t, date(2024, 1, 20), stmt.Metadata.Date)
	assert.Equal(t, "-120.50", stmt.Metadata.EndingBalance.StringFixed(2))
	require.NoError(t, reconcile.Check(stmt))
}

func TestDiscoverCardLegacyPeriod(t *testing.T) {
	page := "Account ending in 4589\nOpen Date: Jan 5, 2019 - Close Date: Feb 4, 2019\n" +
		"Previous Balance $0.00\nPayments and Credits $0.00\nPurchases $10.00\nBalance Transfers $0.00\n" +
		"Cash Advances $0.00\nFees Charged $0.00\nInterest Charged $0.00\nNew Balance $10.00\n"
	statements := parse(t, "4589", Document{Name: "discover.pdf", Pages: []string{page}})
	assert.Equal(t, date(2019, 1, 5), statements[0].Metadata.BeginningDate)
	assert.Equal(t, date(2019, 2, 4), statements[0].Metadata.EndingDate)
}

func TestDiscoverAccountRecovery(t *testing.T) {
	p, cfg := newParser(t)
	card, _ := cfg.ByNumber("4589")
	savings, _ := cfg.ByNumber("8384")

	tests := []struct {
		name string
		acct config.Account
		page string
		want any
	}{
		{name: "no registered number", acct: card, page: "Account ending in 0000\n", want: &errs.MissingFieldError{}},
		{name: "several numbers", acct: card, page: "Account ending in 4589\nTransfer from 8384\n", want: &errs.AmbiguousAccountError{}},
		{name: "filed under another account", acct: savings, page: discoverCardPage, want: &errs.AmbiguousAccountError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.acct, Document{Name: "x.pdf", Pages: []string{tt.page}})
			require.Error(t, err)
			switch tt.want.(type) {
			case *errs.MissingFieldError:
				var target *errs.MissingFieldError
				assert.True(t, errors.As(err, &target))
			case *errs.AmbiguousAccountError:
				var target *errs.AmbiguousAccountError
				assert.True(t, errors.As(err, &target))
			}
		})
	}
}

func savingsPage(period string, rows ...string) string {
	page := "Discover Bank Online Savings Account ending 8384\n" +
		"Statement Period: " + period + "\n" +
		"Beginning Balance .......... $1,000.00\n" +
		"Deposits and Credits .......... $504.10\n" +
		"Electronic Withdrawals .......... $200.00\n" +
		"Service Charges, Fees, and Other Withdrawals .......... $0.00\n" +
		"Ending Balance .......... $1,304.10\n" +
		"Annual Percentage Yield Earned .......... 4.30%\n" +
		"Interest Earned this Period .......... $4.10\n" +
		"Interest Paid Year-to-date .......... $4.10\n" +
		"Transaction Date Posted Date Description Amount\n"
	for _, r := range rows {
		page += r + "\n"
	}
	return page
}

func TestDiscoverSavings(t *testing.T) {
	page := savingsPage("Jan 01, 2024 - Jan 31, 2024",
		"Jan 31 Jan 31 Interest Paid $4.10",
		"Jan 5 Jan 5 Deposit from CHECKING $500.00",
		"Jan 20 Jan 20 Withdrawal to CHECKING $200.00",
	)
	statements := parse(t, "8384", Document{Name: "savings.pdf", Pages: []string{page}})
	require.Len(t, statements, 1)
	stmt := statements[0]

	apy, _ := stmt.Metadata.Field(savingsAPY)
	assert.Equal(t, "0.043", apy.String())
	require.Len(t, stmt.Rows, 3)
	assertRow(t, stmt.Rows[0], date(2024, 1, 5), "Deposit from CHECKING", "500.00")
	assertRow(t, stmt.Rows[1], date(2024, 1, 20), "Withdrawal to CHECKING", "-200.00")
	assertRow(t, stmt.Rows[2], date(2024, 1, 31), "Interest Paid", "4.10")
	require.NoError(t, reconcile.Check(stmt))
}

func TestDiscoverSavingsSplitsMonths(t *testing.T) {
	page := savingsPage("Jan 01, 2024 - Mar 31, 2024",
		"Jan 5 Jan 5 Deposit from CHECKING $500.00",
		"Mar 10 Mar 10 Withdrawal to CHECKING $200.00",
		"Mar 31 Mar 31 Interest Paid $4.10",
	)
	statements := parse(t, "8384", Document{Name: "savings.pdf", Pages: []string{page}})
	require.Len(t, statements, 3)

	want := []struct {
		begin, end string
		rows       int
	}{
		{"1000.00", "1500.00", 1},
		{"1500.00", "1500.00", 0},
		{"1500.00", "1304.10", 2},
	}
	for i, w := range want {
		meta := statements[i].Metadata
		assert.Equal(t, w.begin, meta.BeginningBalance.StringFixed(2), "month %d", i+1)
		assert.Equal(t, w.end, meta.EndingBalance.StringFixed(2), "month %d", i+1)
		assert.Len(t, statements[i].Rows, w.rows)
		assert.Equal(t, time.Month(i+1), meta.Month().Month)
		_, hasInterest := meta.Field(savingsInterestPeriod)
		assert.False(t, hasInterest)
		require.NoError(t, reconcile.Check(statements[i]))
	}
	assert.Equal(t, date(2024, 2, 29), statements[1].Metadata.EndingDate)
}

func TestDiscoverSavingsRowsAfterPeriod(t *testing.T) {
	_, cfg := newParser(t)
	acct, _ := cfg.ByNumber("8384")
	f := &discoverSavings{variant: variant{logger: log.New(io.Discard), account: acct}}

	stmt := &models.Statement{
		AccountNumber: "8384",
		Metadata: models.Metadata{
			BeginningDate:    date(2024, 1, 1),
			EndingDate:       date(2024, 2, 29),
			BeginningBalance: dec("1000.00"),
			EndingBalance:    dec("1490.00"),
		},
		Rows: []models.Row{
			{Date: date(2024, 1, 5), Description: "Deposit from CHECKING", Amount: dec("500.00")},
			{Date: date(2024, 3, 2), Description: "Withdrawal to CHECKING", Amount: dec("-10.00")},
		},
	}
	_, err := f.split(stmt)
	var pe *errs.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, errs.KindDate, pe.Kind)
	assert.Equal(t, "Withdrawal to CHECKING", pe.Line)
}

func TestDiscoverSavingsFinalBalance(t *testing.T) {
	p, cfg := newParser(t)
	acct, _ := cfg.ByNumber("8384")
	page := savingsPage("Jan 01, 2024 - Jan 31, 2024", "Jan 5 Jan 5 Deposit from CHECKING $500.00")
	_, err := p.Parse(acct, Document{Name: "savings.pdf", Pages: []string{page}})
	var re *errs.ReconciliationError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "1500.00", re.Computed.StringFixed(2))
}

const pncPage = `Virtual Wallet Spend Statement
PNC Bank
Primary account number: XX-XXXX-6552
Page 1 of 2
Balance Summary
Beginning Deposits and Checks and other Ending
balance other additions deductions balance
1,000.00 2,500.00 1,700.00 1,800.00
Average monthly Charges
balance and fees
1,500.00 .00
Deposits and Other Additions
Date posted Amount Description
01/15 2,500.00 Payroll ACME
CORP DIRECT DEP
Banking/Debit Card Withdrawals and Purchases
Date posted Amount Description
01/10 200.00 POS Purchase Grocery
01/20 300.00 POS Purchase Gas
Checks and Substitute Checks
Date posted Check number Amount
01/12 101 1,000.00 01/18 102 200.00
Daily Balance Detail
01/01 1,000.00
`

func TestPNC(t *testing.T) {
	statements := parse(t, "6552", Document{Name: "Statements/2024/01/Statement_Jan_31_2024.pdf", Pages: []string{pncPage}})
	require.Len(t, statements, 1)
	stmt := statements[0]

	assert.Equal(t, date(2024, 1, 31), stmt.Metadata.Date)
	assert.Equal(t, "Spend", stmt.Metadata.Notes["acct_type"])
	avg, _ := stmt.Metadata.Field(pncAverageField)
	assert.Equal(t, "1500.00", avg.StringFixed(2))

	require.Len(t, stmt.Rows, 5)
	assertRow(t, stmt.Rows[0], date(2024, 1, 10), "POS Purchase Grocery", "-200.00")
	assertRow(t, stmt.Rows[1], date(2024, 1, 12), "Check with number 101", "-1000.00")
	assertRow(t, stmt.Rows[2], date(2024, 1, 15), "Payroll ACME CORP DIRECT DEP", "2500.00")
	assertRow(t, stmt.Rows[3], date(2024, 1, 18), "Check with number 102", "-200.00")
	require.NoError(t, reconcile.Check(stmt))
}

func TestPNCEmptyStatement(t *testing.T) {
	page := "Virtual Wallet Spend Statement\nPrimary account number: XX-XXXX-6552\n" +
		"Balance Summary\nBeginning Deposits and Checks and other Ending\n" +
		"balance other additions deductions balance\n1,000.00 .00 .00 1,000.00\n" +
		"Average monthly Charges\nbalance and fees\n1,000.00 .00\n"
	statements := parse(t, "6552", Document{Name: "Statement_Feb_29_2024.pdf", Pages: []string{page}})
	require.Len(t, statements[0].Rows, 1)
	assertRow(t, statements[0].Rows[0], date(2024, 2, 29), "No monthly activity", "0.00")
	assert.Equal(t, pncOtherDeduction, statements[0].Rows[0].Table)
	require.NoError(t, reconcile.Check(statements[0]))
}

func TestPNCYearFix(t *testing.T) {
	page := "Virtual Wallet Spend Statement\nPrimary account number: XX-XXXX-6552\n" +
		"Balance Summary\nBeginning Deposits and Checks and other Ending\n" +
		"balance other additions deductions balance\n100.00 50.00 30.00 120.00\n" +
		"Average monthly Charges\nbalance and fees\n110.00 .00\n" +
		"Deposits and Other Additions\nDate posted Amount Description\n01/02 50.00 Transfer In\n" +
		"Online and Electronic Banking Deductions\nDate posted Amount Description\n12/30 30.00 Utility Bill\n"
	statements := parse(t, "6552", Document{Name: "Statement_Jan_15_2024.pdf", Pages: []string{page}})
	rows := statements[0].Rows
	require.Len(t, rows, 2)
	assertRow(t, rows[0], date(2023, 12, 30), "Utility Bill", "-30.00")
	assertRow(t, rows[1], date(2024, 1, 2), "Transfer In", "50.00")
}

func TestPNCAccountChecks(t *testing.T) {
	p, cfg := newParser(t)
	acct, _ := cfg.ByNumber("6552")

	tests := []struct {
		name  string
		page  string
		field string
	}{
		{name: "wrong title", page: strings.Replace(pncPage, "Spend", "Growth", 1), field: "title"},
		{name: "other account", page: strings.Replace(pncPage, "XX-XXXX-6552", "XX-XXXX-6587", 1), field: "account number"},
		{name: "several accounts", page: pncPage + "Primary account number: XX-XXXX-6587\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(acct, Document{Name: "Statement_Jan_31_2024.pdf", Pages: []string{tt.page}})
			require.Error(t, err)
			if tt.field == "" {
				var ambiguous *errs.AmbiguousAccountError
				assert.True(t, errors.As(err, &ambiguous))
				return
			}
			var mismatch *errs.AccountMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, tt.field, mismatch.Field)
			assert.Equal(t, "Statement_Jan_31_2024.pdf", mismatch.File)
		})
	}
}

func TestPNCCheckCountMismatch(t *testing.T) {
	_, _, err := pncCheckRows([]string{
		"Checks and Substitute Checks",
		"Date posted Check number Amount",
		"01/12 101 1,000.00 01/18 102",
	}, 2024)
	var pe *errs.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, errs.KindAmount, pe.Kind)
	assert.Contains(t, pe.Error(), "1 amounts for 2 checks")
}

const (
	sofiChecking = `SoFi Checking and Savings
Checking Account - 8365
Monthly Statement Period
Jan 1, 2024 - Jan 31, 2024
Current Balance Current Interest Rate Monthly Interest Paid
$1,450.00 0.50% $0.25
Beginning Balance Annual Percentage Yield Year-to-date Interest Paid
$1,000.00 0.50% $0.25
Date Description Amount Balance
Jan 2, 2024 Direct Deposit ACME $500.00 $1,500.00
Jan 15, 2024 Debit Card Coffee -$50.00 $1,450.00
`
	sofiSavings = `SoFi Checking and Savings
Savings Account - 9806
Monthly Statement Period
Jan 1, 2024 - Jan 31, 2024
Current Balance Current Interest Rate Monthly Interest Paid
$2,005.00 4.60% $5.00
Beginning Balance Annual Percentage Yield Year-to-date Interest Paid
$2,000.00 4.60% $5.00
Date Description Amount Balance
Jan 31, 2024 Interest Earned $5.00 $2,005.00
`
)

func TestSoFiSplitsAccounts(t *testing.T) {
	statements := parse(t, "8365", Document{Name: "sofi.pdf", Pages: []string{sofiChecking, sofiSavings}})
	require.Len(t, statements, 2)

	checking, savings := statements[0], statements[1]
	assert.Equal(t, "8365", checking.AccountNumber)
	assert.Equal(t, "SoFi-8365", checking.AccountName)
	assert.Equal(t, "9806", savings.AccountNumber)
	assert.Equal(t, "SoFi-9806", savings.AccountName)

	require.Len(t, checking.Rows, 2)
	assertRow(t, checking.Rows[1], date(2024, 1, 15), "Debit Card Coffee", "-50.00")
	rate, _ := checking.Metadata.Field("current_interest_rate")
	assert.Equal(t, "0.005", rate.String())
	assert.Equal(t, date(2024, 1, 16), checking.Metadata.Date)

	assert.Equal(t, "2005.00", savings.Metadata.EndingBalance.StringFixed(2))
	for _, st := range statements {
		require.NoError(t, reconcile.Check(st))
	}
}

func TestSoFiMissingPages(t *testing.T) {
	p, cfg := newParser(t)
	savings, _ := cfg.ByNumber("9806")

	statements, err := p.Parse(savings, Document{Name: "sofi.pdf", Pages: []string{sofiSavings}})
	require.NoError(t, err)
	require.Len(t, statements, 1)

	_, err = p.Parse(savings, Document{Name: "sofi.pdf", Pages: []string{sofiChecking}})
	require.Error(t, err)
}

func TestUnknownFormat(t *testing.T) {
	p, _ := newParser(t)
	_, err := p.For(config.Account{ID: "x", Format: "ofx"})
	require.Error(t, err)
}
