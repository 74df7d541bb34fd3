package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

var (
	discoverSummaryDate = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
	discoverOpenClose   = regexp.MustCompile(`opendate:([a-z]+\d{1,2},\d{4})-closedate:([a-z]+\d{1,2},\d{4})`)
	discoverSavingsDate = regexp.MustCompile(`(\w{3}\d{2},\d{4})-(\w{3}\d{2},\d{4})`)
	discoverSavingsRow  = regexp.MustCompile(`^([A-Z][a-z]{2} \d{1,2}) ([A-Z][a-z]{2} \d{1,2})(.*?)(\$?\s*\d{1,3}(?:,\d{3})*\.\d{2})?$`)
)

// Fields of a Discover card summary, in the order they add up.
var discoverCardAmounts = []string{
	models.KeyBeginningBalance,
	"payments_and_credits",
	"purchases",
	"balance_transfers",
	"cash_advances",
	"fees_charged",
	"interest_charged",
	models.KeyEndingBalance,
}

// discoverAccount finds which registered Discover account the first page
// belongs to and checks it is the one the document was filed under.
func discoverAccount(acct config.Account, peers []config.Account, lines []string) error {
	text := strings.Join(lines, "\n")
	var found []string
	for _, p := range peers {
		if p.Number != "" && strings.Contains(text, strings.ToLower(p.Number)) {
			found = append(found, p.Number)
		}
	}
	switch {
	case len(found) == 0:
		return &errs.MissingFieldError{Fields: []string{models.KeyAccountNumber}}
	case len(found) > 1 || found[0] != acct.Number:
		return &errs.AmbiguousAccountError{Candidates: found}
	}
	return nil
}

type discoverCard struct {
	variant
	peers []config.Account
}

func (f *discoverCard) Name() string { return config.FormatDiscoverCard }

func (f *discoverCard) Parse(doc Document) ([]*models.Statement, error) {
	lines := squashAll(splitLines(doc.FirstPage()))
	if err := discoverAccount(f.account, f.peers, lines); err != nil {
		return nil, err
	}

	acc, err := fold(lines, []rule{
		{field: fieldPeriod, prefixes: []string{"accountsummary"}, read: discoverSummaryPeriod},
		{field: fieldPeriod, prefixes: []string{"opendate"}, read: discoverLegacyPeriod},
		{field: models.KeyBeginningBalance, prefixes: []string{"previousbalance"}, read: dollarField(models.KeyBeginningBalance)},
		{field: models.KeyEndingBalance, prefixes: []string{"newbalance"}, read: dollarField(models.KeyEndingBalance)},
		{field: "payments_and_credits", prefixes: []string{"paymentsandcredits"}, read: dollarField("payments_and_credits")},
		{field: "purchases", prefixes: []string{"purchases"}, read: dollarField("purchases")},
		{field: "balance_transfers", prefixes: []string{"balancetransfers"}, read: dollarField("balance_transfers")},
		{field: "cash_advances", prefixes: []string{"cashadvances"}, read: dollarField("cash_advances")},
		{field: "fees_charged", prefixes: []string{"feescharged"}, read: dollarField("fees_charged")},
		{field: "interest_charged", prefixes: []string{"interestcharged"}, read: dollarField("interest_charged")},
	})
	if err != nil {
		return nil, err
	}
	if err := acc.require(append(discoverCardAmounts, models.KeyBeginningDate, models.KeyEndingDate)...); err != nil {
		return nil, err
	}
	negateAll(acc, discoverCardAmounts...)

	meta := models.Metadata{
		BeginningDate:    acc.period.Begin,
		EndingDate:       acc.period.End,
		Date:             money.Midpoint(acc.period.Begin, acc.period.End),
		BeginningBalance: acc.amount(models.KeyBeginningBalance),
		EndingBalance:    acc.amount(models.KeyEndingBalance),
	}
	categories := discoverCardAmounts[1:7]
	parts := []models.Part{{Label: "previous balance", Value: meta.BeginningBalance}}
	for _, name := range categories {
		meta.SetField(name, acc.amount(name))
		parts = append(parts, models.Part{Label: name, Value: acc.amount(name)})
	}

	return []*models.Statement{{
		AccountNumber: f.account.Number,
		Metadata:      meta,
		MetadataOnly:  true,
		Identities: []models.Identity{{
			Name:  "previous balance + activity = new balance",
			Parts: parts,
			Want:  meta.EndingBalance,
		}},
	}}, nil
}

// discoverSummaryPeriod reads "accountsummary01/05/2024-02/04/2024".
func discoverSummaryPeriod(acc *accumulator, lines []string, i int) error {
	dates := discoverSummaryDate.FindAllString(lines[i], -1)
	if len(dates) != 2 {
		return &errs.ParseError{
			Kind:  errs.KindDate,
			Input: lines[i],
			Line:  lines[i],
			Err:   fmt.Errorf("expected 2 dates, found %d", len(dates)),
		}
	}
	period, err := periodFrom(dates[0], dates[1], "01/02/2006", lines[i])
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}

// discoverLegacyPeriod reads "opendate:jan5,2019-closedate:feb4,2019".
func discoverLegacyPeriod(acc *accumulator, lines []string, i int) error {
	m := discoverOpenClose.FindStringSubmatch(lines[i])
	if m == nil {
		return &errs.ParseError{Kind: errs.KindDate, Input: lines[i], Line: lines[i], Layout: "Jan2,2006"}
	}
	period, err := periodFrom(m[1], m[2], "Jan2,2006", lines[i])
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}

const (
	savingsAPY             = "annual_percentage_yield_earned"
	savingsInterestPeriod  = "interest_earned_this_period"
	savingsInterestYTD     = "interest_earned_year_to_date"
	savingsDeposits        = "deposits_and_credits"
	savingsWithdrawals     = "electronic_withdrawals"
	savingsOtherWithdrawal = "service_charges_fees_and_other_withdrawals"

	savingsRowLayout = "Jan 2, 2006"
)

type discoverSavings struct {
	variant
	peers []config.Account
}

func (f *discoverSavings) Name() string { return config.FormatDiscoverSavings }

func (f *discoverSavings) Parse(doc Document) ([]*models.Statement, error) {
	first := squashAll(splitLines(doc.FirstPage()))
	if err := discoverAccount(f.account, f.peers, first); err != nil {
		return nil, err
	}

	acc, err := fold(squashAll(doc.Lines()), []rule{
		{field: fieldPeriod, prefixes: []string{"statementperiod"}, read: savingsPeriod},
		{field: models.KeyBeginningBalance, prefixes: []string{"beginningbalance"}, read: savingsDotted(models.KeyBeginningBalance)},
		{field: models.KeyEndingBalance, prefixes: []string{"endingbalance"}, read: savingsDotted(models.KeyEndingBalance)},
		{field: savingsDeposits, prefixes: []string{"depositsandcredits"}, read: savingsDotted(savingsDeposits)},
		{field: savingsWithdrawals, prefixes: []string{"electronicwithdrawals"}, read: savingsDotted(savingsWithdrawals)},
		{field: savingsOtherWithdrawal, prefixes: []string{"servicecharges,fees,andotherwithdrawals"}, read: savingsDotted(savingsOtherWithdrawal)},
		{field: savingsAPY, contains: []string{"annualpercentageyieldearned"}, read: savingsTrailing(savingsAPY)},
		{field: savingsInterestPeriod, contains: []string{"interestearnedthisperiod"}, read: savingsTrailing(savingsInterestPeriod)},
		{field: savingsInterestYTD, contains: []string{"interestearnedyear-to-date", "interestpaidyear-to-date"}, read: savingsTrailing(savingsInterestYTD)},
	})
	if err != nil {
		return nil, err
	}
	if err := acc.require(
		models.KeyBeginningBalance, models.KeyEndingBalance, models.KeyBeginningDate, models.KeyEndingDate,
		savingsDeposits, savingsWithdrawals, savingsOtherWithdrawal,
		savingsAPY, savingsInterestPeriod, savingsInterestYTD,
	); err != nil {
		return nil, err
	}

	rows, discarded, err := savingsRows(doc.Lines(), acc.period)
	if err != nil {
		return nil, err
	}
	f.discarded(doc.Name, "transactions", discarded)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no transactions found in savings statement %s", acc.period)
	}

	meta := models.Metadata{
		BeginningDate:    acc.period.Begin,
		EndingDate:       acc.period.End,
		Date:             money.Midpoint(acc.period.Begin, acc.period.End),
		BeginningBalance: acc.amount(models.KeyBeginningBalance),
		EndingBalance:    acc.amount(models.KeyEndingBalance),
	}
	for _, name := range []string{savingsDeposits, savingsWithdrawals, savingsOtherWithdrawal, savingsAPY, savingsInterestPeriod, savingsInterestYTD} {
		meta.SetField(name, acc.amount(name))
	}
	stmt := &models.Statement{AccountNumber: f.account.Number, Metadata: meta, Rows: rows}
	if final := stmt.FinalBalance(); !final.Equal(meta.EndingBalance) {
		return nil, &errs.ReconciliationError{
			Period:   acc.period.String(),
			Check:    "final running balance equals ending balance",
			Expected: meta.EndingBalance,
			Computed: final,
		}
	}

	if acc.period.Begin.Month() == acc.period.End.Month() && acc.period.Begin.Year() == acc.period.End.Year() {
		return []*models.Statement{stmt}, nil
	}
	return f.split(stmt)
}

// split cuts a statement spanning several months into one statement per
// calendar month. A month without rows carries its balance forward. Rows
// dated after the period are an error.
func (f *discoverSavings) split(stmt *models.Statement) ([]*models.Statement, error) {
	period := stmt.Metadata.Period()
	openedOn, opened, err := f.account.OpenedOnDate()
	if err != nil {
		return nil, err
	}
	if period.Begin.Day() != 1 && !(opened && period.Begin.Equal(openedOn)) {
		return nil, fmt.Errorf("multi-month savings statement %s must start on the first of the month", period)
	}
	if !period.End.Equal(money.LastOfMonth(period.End)) {
		return nil, fmt.Errorf("multi-month savings statement %s must end on the last day of the month", period)
	}

	var out []*models.Statement
	balance := stmt.Metadata.BeginningBalance
	next := 0
	for month := money.FirstOfMonth(period.Begin); !month.After(period.End); month = month.AddDate(0, 1, 0) {
		begin := month
		if month.Equal(money.FirstOfMonth(period.Begin)) {
			begin = period.Begin
		}
		end := money.LastOfMonth(month)

		meta := models.Metadata{
			BeginningDate:    begin,
			EndingDate:       end,
			Date:             money.Midpoint(begin, end),
			BeginningBalance: balance,
		}
		if apy, ok := stmt.Metadata.Field(savingsAPY); ok {
			meta.SetField(savingsAPY, apy)
		}
		var rows []models.Row
		for next < len(stmt.Rows) && !stmt.Rows[next].Date.After(end) {
			rows = append(rows, stmt.Rows[next])
			balance = balance.Add(stmt.Rows[next].Amount)
			next++
		}
		meta.EndingBalance = balance
		out = append(out, &models.Statement{AccountNumber: stmt.AccountNumber, Metadata: meta, Rows: rows})
	}
	if next < len(stmt.Rows) {
		late := stmt.Rows[next]
		return nil, &errs.ParseError{
			Kind:  errs.KindDate,
			Input: late.Date.Format(savingsRowLayout),
			Line:  late.Description,
			Err:   fmt.Errorf("%d rows dated after statement period %s", len(stmt.Rows)-next, period),
		}
	}
	return out, nil
}

// savingsPeriod reads "statementperiod:jan01,2024-jan31,2024".
func savingsPeriod(acc *accumulator, lines []string, i int) error {
	matches := discoverSavingsDate.FindAllStringSubmatch(lines[i], -1)
	if len(matches) != 1 {
		return &errs.ParseError{
			Kind:  errs.KindDate,
			Input: lines[i],
			Line:  lines[i],
			Err:   fmt.Errorf("expected 1 date range, found %d", len(matches)),
		}
	}
	period, err := periodFrom(matches[0][1], matches[0][2], "Jan02,2006", lines[i])
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}

// savingsDotted reads the value after the leader dots of
// "beginningbalance......$1,000.00".
func savingsDotted(field string) func(*accumulator, []string, int) error {
	return func(acc *accumulator, lines []string, i int) error {
		var elems []string
		for _, e := range strings.Split(lines[i], "..") {
			if e = strings.Trim(e, "."); e != "" {
				elems = append(elems, e)
			}
		}
		if len(elems) < 2 {
			return &errs.ParseError{Kind: errs.KindAmount, Input: lines[i], Line: lines[i]}
		}
		d, err := money.ParseAmount(elems[1])
		if err != nil {
			return withLine(err, lines[i])
		}
		acc.amounts[field] = d
		return nil
	}
}

// savingsTrailing reads the last dotted element as an amount or percentage.
func savingsTrailing(field string) func(*accumulator, []string, int) error {
	return func(acc *accumulator, lines []string, i int) error {
		elems := strings.Split(lines[i], "..")
		d, err := dollarOrPercent(strings.Trim(elems[len(elems)-1], "."))
		if err != nil {
			return withLine(err, lines[i])
		}
		acc.amounts[field] = d
		return nil
	}
}

// savingsRows reads "Jan 5 Jan 5 Description $1,000.00" rows. The year is the
// statement's; a period crossing New Year moves January rows to the ending
// year.
func savingsRows(lines []string, period models.Period) ([]models.Row, int, error) {
	var rows []models.Row
	discarded := 0
	months := map[time.Month]bool{}
	for _, line := range lines {
		m := discoverSavingsRow.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[4] == "" {
			discarded++
			continue
		}
		date, err := parseDate(fmt.Sprintf("%s, %d", m[1], period.Begin.Year()), savingsRowLayout, line)
		if err != nil {
			return nil, 0, err
		}
		amount, err := money.ParseAmount(m[4])
		if err != nil {
			return nil, 0, withLine(err, line)
		}
		description := strings.TrimSpace(m[3])
		if strings.Contains(squash(description), "withdrawal") {
			amount = amount.Neg()
		}
		months[date.Month()] = true
		rows = append(rows, models.Row{Date: date, Description: description, Amount: amount, Table: "transactions"})
	}
	if months[time.January] && months[time.December] {
		for i := range rows {
			if rows[i].Date.Month() == time.January {
				rows[i].Date = rows[i].Date.AddDate(period.End.Year()-rows[i].Date.Year(), 0, 0)
			}
		}
	}
	sortByDateReversingTies(rows)
	return rows, discarded, nil
}
