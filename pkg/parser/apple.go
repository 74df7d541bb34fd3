package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

const (
	appleDateLayout = "01/02/2006"
	appleAsOfLayout = "as of Jan 2, 2006"

	appleTablePayments     = "payments"
	appleTableTransactions = "transactions"

	appleTotalPayments  = "Total payments"
	appleTotalCharges   = "Total charges, credits and returns"
	appleTotalDailyCash = "Total Daily Cash"

	applePreviousMonthly = "previous_monthly_balance"
	applePreviousTotal   = "previous_total_balance"
	appleTotalBalance    = "total_balance"
)

var (
	// Table headers only count after a line break: a page that opens with
	// "Payments" has no payments table.
	applePayments = region{
		name:  appleTablePayments,
		start: "\nPayments\nDate Description Amount\n",
		ends:  []string{"\n" + appleTotalPayments},
	}
	appleTransactions = region{
		name:  appleTableTransactions,
		start: "\nTransactions\nDate Description Daily Cash Amount\n",
		ends:  []string{"\n" + appleTotalCharges, "\n" + appleTotalDailyCash},
	}

	applePaymentLead     = regexp.MustCompile(`^(?:\d{2}/\d{2}/\d{4}|Total payments)`)
	appleTransactionLead = regexp.MustCompile(`^(?:\d{2}/\d{2}/\d{4}|Total Daily Cash|Total charges, credits and returns)`)
	appleRowDate         = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	appleBalanceAmount   = regexp.MustCompile(`[-+]?\$[0-9.]+`)
	appleDollarAmounts   = regexp.MustCompile(`\$[\d.]+`)
)

type appleCard struct {
	variant
}

func (f *appleCard) Name() string { return config.FormatAppleCard }

func (f *appleCard) Parse(doc Document) ([]*models.Statement, error) {
	previous, total, err := appleBalances(doc.FirstPage())
	if err != nil {
		return nil, err
	}

	var payments, transactions []models.Row
	var summaries []models.Summary
	for _, page := range doc.Pages {
		tables, err := readAppleTables(page)
		if err != nil {
			return nil, err
		}
		for name, n := range tables.discarded {
			f.discarded(doc.Name, name, n)
		}
		payments = append(payments, tables.payments...)
		transactions = append(transactions, tables.transactions...)
		summaries = append(summaries, tables.summaries...)
	}
	rows := append(payments, transactions...)
	sortByDateReversingTies(rows)

	totals := map[string]decimal.Decimal{}
	for _, s := range summaries {
		if _, ok := totals[s.Label]; !ok {
			totals[s.Label] = s.Amount
		}
	}
	var missing []string
	for _, label := range []string{appleTotalPayments, appleTotalCharges, appleTotalDailyCash} {
		if _, ok := totals[label]; !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return nil, &errs.MissingFieldError{Fields: missing}
	}
	paid := totals[appleTotalPayments].Abs()

	meta := models.Metadata{
		BeginningBalance: previous.Amount,
		EndingBalance:    total.Amount,
		Date:             total.Date,
	}
	meta.SetField("total_payments", paid)
	meta.SetField("total_daily_cash", totals[appleTotalDailyCash])
	meta.SetField("total_charges_credits_returns", totals[appleTotalCharges])

	return []*models.Statement{{
		AccountNumber:     f.account.Number,
		Metadata:          meta,
		Rows:              rows,
		Summaries:         summaries,
		ExpectedSummaries: 3,
		Identities: []models.Identity{{
			Name: "previous total + charges - payments = total balance",
			Parts: []models.Part{
				{Label: "previous total balance", Value: previous.Amount},
				{Label: appleTotalCharges, Value: totals[appleTotalCharges]},
				{Label: appleTotalPayments, Value: paid.Neg()},
			},
			Want: total.Amount,
		}},
		Tolerance: money.Cent,
	}}, nil
}

// appleBalances reads the balance block of page one and returns the opening
// and closing balances.
func appleBalances(page string) (balanceAsOf, balanceAsOf, error) {
	if legacy, ok := findLegacy(page, appleLegacy); ok {
		return legacy.Previous, legacy.Total, nil
	}

	lines := splitLines(page)
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = strings.ToLower(l)
	}
	acc, err := foldKeyed(keys, lines, []rule{
		{field: applePreviousMonthly, contains: []string{"previous monthly balance", "prior monthly balance"}, read: appleBalance(applePreviousMonthly)},
		{field: applePreviousTotal, contains: []string{"previous total balance", "prior total balance"}, read: appleBalance(applePreviousTotal)},
		{
			field:    appleTotalBalance,
			contains: []string{"total balance"},
			excludes: []string{"previous total balance", "prior total balance"},
			read:     appleBalance(appleTotalBalance),
		},
	})
	if err != nil {
		return balanceAsOf{}, balanceAsOf{}, err
	}
	if err := acc.require(applePreviousMonthly, applePreviousTotal, appleTotalBalance); err != nil {
		return balanceAsOf{}, balanceAsOf{}, err
	}

	monthly := balanceAsOf{Amount: acc.amounts[applePreviousMonthly], Date: acc.dates[applePreviousMonthly]}
	previous := balanceAsOf{Amount: acc.amounts[applePreviousTotal], Date: acc.dates[applePreviousTotal]}
	total := balanceAsOf{Amount: acc.amounts[appleTotalBalance], Date: acc.dates[appleTotalBalance]}

	// A zero monthly balance next to a credit total balance is how the card
	// prints a carried-over credit.
	if !monthly.Amount.Equal(previous.Amount) && !(monthly.Amount.IsZero() && previous.Amount.IsNegative()) {
		return balanceAsOf{}, balanceAsOf{}, &errs.ReconciliationError{
			Check:    "previous monthly balance equals previous total balance",
			Expected: previous.Amount,
			Computed: monthly.Amount,
		}
	}
	if !monthly.Date.Equal(previous.Date) {
		return balanceAsOf{}, balanceAsOf{}, fmt.Errorf("previous monthly balance date %s differs from previous total balance date %s",
			monthly.Date.Format(appleDateLayout), previous.Date.Format(appleDateLayout))
	}
	return previous, total, nil
}

// appleBalance reads "<label> $1,234.56" followed by an "as of" date line.
func appleBalance(field string) func(*accumulator, []string, int) error {
	return func(acc *accumulator, lines []string, i int) error {
		line := strings.ReplaceAll(lines[i], ",", "")
		token := appleBalanceAmount.FindString(line)
		if token == "" {
			return &errs.ParseError{Kind: errs.KindAmount, Input: lines[i], Line: lines[i]}
		}
		amount, err := money.ParseAmount(token)
		if err != nil {
			return withLine(err, lines[i])
		}
		if i+1 >= len(lines) {
			return &errs.ParseError{Kind: errs.KindDate, Layout: appleAsOfLayout, Line: lines[i]}
		}
		date, err := parseDate(lines[i+1], appleAsOfLayout, lines[i+1])
		if err != nil {
			return err
		}
		acc.amounts[field] = amount
		acc.dates[field] = date
		return nil
	}
}

type appleTables struct {
	payments     []models.Row
	transactions []models.Row
	summaries    []models.Summary
	discarded    map[string]int
}

// readAppleTables extracts the payments and transactions tables of one page.
func readAppleTables(page string) (appleTables, error) {
	out := appleTables{discarded: map[string]int{}}

	if lines, ok := applePayments.lines(page); ok {
		body := strings.Join(lines, "\n")
		for _, line := range lines {
			switch applePaymentLead.FindString(line) {
			case "":
				out.discarded[appleTablePayments]++
			case appleTotalPayments:
				amounts := appleDollarAmounts.FindAllString(strings.ReplaceAll(body, ",", ""), -1)
				if len(amounts) == 0 {
					return out, &errs.ParseError{Kind: errs.KindAmount, Input: line, Line: line}
				}
				total, err := money.ParseAmount(amounts[len(amounts)-1])
				if err != nil {
					return out, withLine(err, line)
				}
				out.summaries = append(out.summaries, models.Summary{
					Label:  appleTotalPayments,
					Tables: []string{appleTablePayments},
					Column: models.ColumnAmount,
					Amount: total.Abs().Neg(),
				})
			default:
				row, ok, err := appleDatedRow(line)
				if err != nil {
					return out, err
				}
				if !ok {
					out.discarded[appleTablePayments]++
					continue
				}
				row.Amount = row.Amount.Abs().Neg()
				row.Table = appleTablePayments
				out.payments = append(out.payments, row)
			}
		}
	}

	lines, ok := appleTransactions.lines(page)
	if !ok {
		return out, nil
	}
	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "credit adjustment"):
			row, ok, err := appleDatedRow(line)
			if err != nil {
				return out, err
			}
			if !ok {
				out.discarded[appleTableTransactions]++
				continue
			}
			row.Table = appleTableTransactions
			out.transactions = append(out.transactions, row)

		case strings.Contains(lower, "promo daily cash"), strings.Contains(lower, "daily cash at uber"),
			strings.Contains(lower, "daily cash adjustment"):
			// Extra cash lines carry no date; they belong to the row above.
			parts := rsplit(line, 2)
			if len(parts) < 3 || len(out.transactions) == 0 {
				out.discarded[appleTableTransactions]++
				continue
			}
			value, err := money.ParseAmount(parts[2])
			if err != nil {
				return out, withLine(err, line)
			}
			row := models.Row{
				Date:        out.transactions[len(out.transactions)-1].Date,
				Description: parts[0],
				Percentage:  parts[1],
				Table:       appleTableTransactions,
			}
			if strings.Contains(lower, "daily cash adjustment") {
				row.Amount = value
			} else {
				row.Cashback = value
			}
			out.transactions = append(out.transactions, row)

		default:
			switch appleTransactionLead.FindString(line) {
			case "":
				out.discarded[appleTableTransactions]++
			case appleTotalDailyCash, appleTotalCharges:
				label := appleTotalCharges
				column := models.ColumnAmount
				if strings.HasPrefix(line, appleTotalDailyCash) {
					label, column = appleTotalDailyCash, models.ColumnCashback
				}
				tokens := strings.Fields(line)
				total, err := money.ParseAmount(tokens[len(tokens)-1])
				if err != nil {
					return out, withLine(err, line)
				}
				out.summaries = append(out.summaries, models.Summary{
					Label:  label,
					Tables: []string{appleTableTransactions},
					Column: column,
					Amount: total,
				})
			default:
				row, ok, err := appleChargeRow(line)
				if err != nil {
					return out, err
				}
				if !ok {
					out.discarded[appleTableTransactions]++
					continue
				}
				out.transactions = append(out.transactions, row)
			}
		}
	}
	return out, nil
}

// appleDatedRow reads "MM/DD/YYYY description amount".
func appleDatedRow(line string) (models.Row, bool, error) {
	head := strings.SplitN(line, " ", 2)
	if len(head) < 2 || !appleRowDate.MatchString(head[0]) {
		return models.Row{}, false, nil
	}
	parts := rsplit(head[1], 1)
	if len(parts) < 2 {
		return models.Row{}, false, nil
	}
	date, err := parseDate(head[0], appleDateLayout, line)
	if err != nil {
		return models.Row{}, false, err
	}
	amount, err := money.ParseAmount(parts[1])
	if err != nil {
		return models.Row{}, false, withLine(err, line)
	}
	return models.Row{Date: date, Description: parts[0], Amount: amount}, true, nil
}

// appleChargeRow reads "MM/DD/YYYY description percentage cashback amount".
// Percentage and cashback are sometimes printed on the next line, in which
// case they are left empty.
func appleChargeRow(line string) (models.Row, bool, error) {
	head := strings.SplitN(line, " ", 2)
	if len(head) < 2 {
		return models.Row{}, false, nil
	}
	parts := rsplit(head[1], 3)
	if len(parts) < 4 {
		return models.Row{}, false, nil
	}
	date, err := parseDate(head[0], appleDateLayout, line)
	if err != nil {
		return models.Row{}, false, err
	}
	amount, err := money.ParseAmount(parts[3])
	if err != nil {
		return models.Row{}, false, withLine(err, line)
	}
	row := models.Row{
		Date:        date,
		Description: parts[0],
		Amount:      amount,
		Table:       appleTableTransactions,
	}
	if strings.Contains(parts[1], "%") {
		row.Percentage = parts[1]
	}
	if strings.Contains(parts[2], "$") {
		if row.Cashback, err = money.ParseAmount(parts[2]); err != nil {
			return models.Row{}, false, withLine(err, line)
		}
	}
	return row, true, nil
}
