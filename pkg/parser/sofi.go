package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

const sofiRowLayout = "Jan 2, 2006"

var (
	sofiPeriod  = regexp.MustCompile(`(\w{3}\d{1,2},\d{4})-(\w{3}\d{2},\d{4})`)
	sofiBalance = regexp.MustCompile(`\$(\d+\.\d{2})(\d+\.\d{2})%\$(\d+\.\d{2})`)
	sofiRow     = regexp.MustCompile(`^([A-Z][a-z]{2} \d{1,2}, \d{4})\s+(.*?)\s+(-?\$(\d{1,3}(?:,\d{3})*\.\d{2}))\s+(-?\$(\d{1,3}(?:,\d{3})*\.\d{2}))$`)
)

// sofi reads the combined checking and savings statement. Each registered
// SoFi account gets the pages that carry its "<kind> account - <number>"
// marker.
type sofi struct {
	variant
	peers []config.Account
}

func (f *sofi) Name() string { return config.FormatSoFi }

func (f *sofi) Parse(doc Document) ([]*models.Statement, error) {
	var out []*models.Statement
	for _, acct := range f.peers {
		lines := sofiLines(doc, acct)
		if len(lines) == 0 {
			if acct.Number == f.account.Number {
				return nil, fmt.Errorf("no pages found for %s account %s", acct.Kind, acct.Number)
			}
			f.logger.Debug("no pages for account", "file", doc.Name, "account", acct.Number)
			continue
		}
		stmt, err := f.statement(doc.Name, acct, lines)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acct.Number, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

func sofiLines(doc Document, acct config.Account) []string {
	marker := squash(acct.Kind) + "account-" + acct.Number
	var lines []string
	for _, page := range doc.Pages {
		if strings.Contains(squash(page), marker) {
			lines = append(lines, splitLines(page)...)
		}
	}
	return lines
}

func (f *sofi) statement(file string, acct config.Account, lines []string) (*models.Statement, error) {
	acc, err := fold(squashAll(lines), []rule{
		{field: fieldPeriod, contains: []string{"monthlystatementperiod"}, read: sofiStatementPeriod},
		{field: models.KeyEndingBalance, prefixes: []string{"currentbalance"},
			read: sofiBalances(models.KeyEndingBalance, "current_interest_rate", "monthly_interest_paid")},
		{field: models.KeyBeginningBalance, prefixes: []string{"beginningbalance"},
			read: sofiBalances(models.KeyBeginningBalance, "annual_percentage_yield_earned", "year_to_date_interest_paid")},
	})
	if err != nil {
		return nil, err
	}
	if err := acc.require(models.KeyBeginningBalance, models.KeyEndingBalance, models.KeyBeginningDate, models.KeyEndingDate); err != nil {
		return nil, err
	}

	var (
		rows      []models.Row
		discarded int
	)
	for _, line := range lines {
		m := sofiRow.FindStringSubmatch(line)
		if m == nil {
			discarded++
			continue
		}
		date, err := parseDate(m[1], sofiRowLayout, line)
		if err != nil {
			return nil, err
		}
		amount, err := money.ParseAmount(m[3])
		if err != nil {
			return nil, withLine(err, line)
		}
		rows = append(rows, models.Row{Date: date, Description: strings.TrimSpace(m[2]), Amount: amount, Table: "transactions"})
	}
	f.discarded(file, acct.Kind, discarded)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no transactions found for %s account %s", acct.Kind, acct.Number)
	}
	sortByDateReversingTies(rows)

	meta := models.Metadata{
		BeginningDate:    acc.period.Begin,
		EndingDate:       acc.period.End,
		Date:             money.Midpoint(acc.period.Begin, acc.period.End),
		BeginningBalance: acc.amount(models.KeyBeginningBalance),
		EndingBalance:    acc.amount(models.KeyEndingBalance),
	}
	for _, name := range []string{"current_interest_rate", "monthly_interest_paid", "annual_percentage_yield_earned", "year_to_date_interest_paid"} {
		if v, ok := acc.amounts[name]; ok {
			meta.SetField(name, v)
		}
	}

	stmt := &models.Statement{AccountNumber: acct.Number, Metadata: meta, Rows: rows}
	if final := stmt.FinalBalance(); !final.Equal(meta.EndingBalance) {
		return nil, &errs.ReconciliationError{
			Period:   acc.period.String(),
			Check:    "final running balance equals ending balance",
			Expected: meta.EndingBalance,
			Computed: final,
		}
	}
	return stmt, nil
}

// sofiStatementPeriod reads the line after "Monthly Statement Period".
func sofiStatementPeriod(acc *accumulator, lines []string, i int) error {
	if i+1 >= len(lines) {
		return &errs.ParseError{Kind: errs.KindDate, Line: lines[i], Layout: "Jan2,2006"}
	}
	next := lines[i+1]
	matches := sofiPeriod.FindAllStringSubmatch(next, -1)
	if len(matches) != 1 {
		return &errs.ParseError{
			Kind:  errs.KindDate,
			Input: next,
			Line:  next,
			Err:   fmt.Errorf("expected 1 date range, found %d", len(matches)),
		}
	}
	period, err := periodFrom(matches[0][1], matches[0][2], "Jan2,2006", next)
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}

// sofiBalances reads "$1,000.00 4.30% $3.21" on the line after a balance
// label into a balance, a rate and an interest amount.
func sofiBalances(balance, rate, interest string) func(*accumulator, []string, int) error {
	return func(acc *accumulator, lines []string, i int) error {
		if i+1 >= len(lines) {
			return &errs.ParseError{Kind: errs.KindAmount, Line: lines[i]}
		}
		next := strings.ReplaceAll(lines[i+1], ",", "")
		m := sofiBalance.FindStringSubmatch(next)
		if m == nil {
			return &errs.ParseError{Kind: errs.KindAmount, Input: lines[i+1], Line: lines[i+1]}
		}
		b, err := money.ParseAmount(m[1])
		if err != nil {
			return err
		}
		r, err := money.ParsePercent(m[2] + "%")
		if err != nil {
			return err
		}
		n, err := money.ParseAmount(m[3])
		if err != nil {
			return err
		}
		acc.amounts[balance] = b
		acc.amounts[rate] = r
		acc.amounts[interest] = n
		return nil
	}
}
