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

var (
	chaseCheckingDate = regexp.MustCompile(`(\w+)\s*(\d{2}),(\d{4})`)
	chaseSapphireDate = regexp.MustCompile(`(\d{2}/\d{2}/\d{2})-(\d{2}/\d{2}/\d{2})`)
)

// Chase statements only carry balances; rows come from the CSV export.
type chaseChecking struct {
	variant
}

func (f *chaseChecking) Name() string { return config.FormatChaseChecking }

func (f *chaseChecking) Parse(doc Document) ([]*models.Statement, error) {
	acc, err := fold(squashAll(doc.Lines()), []rule{
		{field: fieldPeriod, contains: []string{"through"}, read: chaseCheckingPeriod},
		{field: models.KeyBeginningBalance, prefixes: []string{"beginningbalance"}, read: dollarField(models.KeyBeginningBalance)},
		{field: models.KeyEndingBalance, prefixes: []string{"endingbalance"}, read: dollarField(models.KeyEndingBalance)},
	})
	if err != nil {
		return nil, err
	}
	if err := acc.require(models.KeyBeginningBalance, models.KeyEndingBalance, models.KeyBeginningDate, models.KeyEndingDate); err != nil {
		return nil, err
	}

	meta := models.Metadata{
		BeginningDate:    acc.period.Begin,
		EndingDate:       acc.period.End,
		Date:             money.Midpoint(acc.period.Begin, acc.period.End),
		BeginningBalance: acc.amount(models.KeyBeginningBalance),
		EndingBalance:    acc.amount(models.KeyEndingBalance),
	}
	return []*models.Statement{{AccountNumber: f.account.Number, Metadata: meta, MetadataOnly: true}}, nil
}

// chaseCheckingPeriod reads "january01,2024throughjanuary31,2024".
func chaseCheckingPeriod(acc *accumulator, lines []string, i int) error {
	line := strings.ReplaceAll(lines[i], "through", "")
	matches := chaseCheckingDate.FindAllStringSubmatch(line, -1)
	if len(matches) != 2 {
		return &errs.ParseError{
			Kind:  errs.KindDate,
			Input: line,
			Line:  lines[i],
			Err:   fmt.Errorf("expected 2 dates, found %d", len(matches)),
		}
	}
	dates := make([]string, 2)
	for n, m := range matches {
		dates[n] = fmt.Sprintf("%s %s, %s", m[1], m[2], m[3])
	}
	period, err := periodFrom(dates[0], dates[1], "January 2, 2006", lines[i])
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}

var sapphireAmounts = []string{
	models.KeyBeginningBalance,
	"payments_and_credits",
	"purchases",
	"balance_transfers",
	"cash_advances",
	"fees_charged",
	"interest_charged",
	models.KeyEndingBalance,
}

type chaseSapphire struct {
	variant
}

func (f *chaseSapphire) Name() string { return config.FormatChaseSapphire }

func (f *chaseSapphire) Parse(doc Document) ([]*models.Statement, error) {
	lines := squashAll(doc.Lines())
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "`", "")
	}
	acc, err := fold(lines, []rule{
		{field: fieldPeriod, prefixes: []string{"opening/closingdate"}, read: sapphirePeriod},
		{field: models.KeyBeginningBalance, prefixes: []string{"previousbalance"}, read: dollarField(models.KeyBeginningBalance)},
		{field: models.KeyEndingBalance, prefixes: []string{"newbalance$", "newbalance-$"}, read: dollarField(models.KeyEndingBalance)},
		{field: "payments_and_credits", prefixes: []string{"payment,credits"}, read: dollarField("payments_and_credits")},
		{field: "purchases", prefixes: []string{"purchases+", "purchases$"}, read: dollarField("purchases")},
		{field: "balance_transfers", prefixes: []string{"balancetransfers"}, read: dollarField("balance_transfers")},
		{field: "cash_advances", prefixes: []string{"cashadvances"}, read: dollarField("cash_advances")},
		{field: "fees_charged", prefixes: []string{"feescharged"}, read: dollarField("fees_charged")},
		{field: "interest_charged", prefixes: []string{"interestcharged"}, read: dollarField("interest_charged")},
	})
	if err != nil {
		return nil, err
	}
	if err := acc.require(append(sapphireAmounts, models.KeyBeginningDate, models.KeyEndingDate)...); err != nil {
		return nil, err
	}
	// Card balances are printed as money owed; the ledger records them as
	// negative.
	negateAll(acc, sapphireAmounts...)

	meta := models.Metadata{
		BeginningDate:    acc.period.Begin,
		EndingDate:       acc.period.End,
		Date:             acc.period.End,
		BeginningBalance: acc.amount(models.KeyBeginningBalance),
		EndingBalance:    acc.amount(models.KeyEndingBalance),
	}
	for _, name := range sapphireAmounts[1:7] {
		meta.SetField(name, acc.amount(name))
	}
	return []*models.Statement{{AccountNumber: f.account.Number, Metadata: meta, MetadataOnly: true}}, nil
}

// sapphirePeriod reads "opening/closingdate01/05/24-02/04/24".
func sapphirePeriod(acc *accumulator, lines []string, i int) error {
	m := chaseSapphireDate.FindStringSubmatch(lines[i])
	if m == nil {
		return &errs.ParseError{Kind: errs.KindDate, Input: lines[i], Line: lines[i], Layout: "01/02/06"}
	}
	period, err := periodFrom(m[1], m[2], "01/02/06", lines[i])
	if err != nil {
		return err
	}
	acc.period = period
	return nil
}
