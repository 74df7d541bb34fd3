package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/config"
	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

const (
	pncChecks         = "Checks and Substitute Checks"
	pncDeposits       = "Deposits and Other Additions"
	pncDebitCard      = "Banking/Debit Card Withdrawals and Purchases"
	pncCheckCard      = "Banking/Check Card Withdrawals and Purchases"
	pncOnline         = "Online and Electronic Banking Deductions"
	pncOtherDeduction = "Other Deductions"
	pncDailyBalance   = "Daily Balance Detail"

	pncDepositsField   = "Deposits and other additions"
	pncDeductionsField = "Checks and other deductions"
	pncAverageField    = "Average monthly balance"
	pncChargesField    = "Charges and fees"

	pncRowLayout  = "01/02/2006"
	pncFileLayout = "Jan 2 2006"
)

var (
	pncHeaders = []string{pncChecks, pncDeposits, pncDebitCard, pncCheckCard, pncOnline, pncOtherDeduction, pncDailyBalance}
	// Tables whose amounts leave the account.
	pncDeductionTables = []string{pncChecks, pncDebitCard, pncCheckCard, pncOnline, pncOtherDeduction}

	pncAccountNumber  = regexp.MustCompile(`Primary account number:\s(?:\d{2}|X{2})-(?:\d{4}|X{4})-(\d{4})`)
	pncBalanceSummary = regexp.MustCompile(`(?i)balance\s*summary\nbeginning\s*deposits\s*and\s*checks\s*and\s*other\s*ending\nbalance\s*other\s*additions\s*deductions\s*balance\n(\d*\.?\d+)\s*(\d*\.?\d+)\s*(\d*\.?\d+)\s*(\d*\.?\d+)\naverage\s*monthly\s*charges\nbalance\s*and\s*fees\n(\d*\.?\d+)\s*(\d*\.?\d+)`)
	pncFileDate       = regexp.MustCompile(`Statement_(\w+_\d+_\d{4})`)
	pncRowLead        = regexp.MustCompile(`^\d{2}/\d{2}`)
	pncCheckDate      = regexp.MustCompile(`\d{2}/\d{2}`)
	pncCheckAmount    = regexp.MustCompile(`\d+\.\d{2}`)
	pncCheckPair      = regexp.MustCompile(`(\d{2}/\d{2}) (\S+)`)
)

// PNC Virtual Wallet statements. Spend, Reserve and Growth accounts share the
// layout and are told apart by the title line.
type pnc struct {
	variant
}

func (f *pnc) Name() string { return config.FormatPNC }

func (f *pnc) Parse(doc Document) ([]*models.Statement, error) {
	if len(doc.Pages) == 0 {
		return nil, &errs.MissingFieldError{Fields: []string{models.KeyAccountNumber}}
	}
	if err := f.checkAccount(doc); err != nil {
		return nil, err
	}

	date, err := pncStatementDate(doc.Name)
	if err != nil {
		return nil, err
	}

	var (
		summary []decimal.Decimal
		rows    []models.Row
	)
	for _, page := range doc.Pages {
		if summary == nil {
			if summary, err = pncSummary(page); err != nil {
				return nil, err
			}
		}
		pageRows, discarded, err := pncTables(page, date.Year())
		if err != nil {
			return nil, err
		}
		f.discarded(doc.Name, "tables", discarded)
		rows = append(rows, pageRows...)
	}
	if summary == nil {
		return nil, &errs.MissingFieldError{Fields: []string{"balance summary"}}
	}
	if len(rows) == 0 {
		rows = []models.Row{{
			Date:        date,
			Description: "No monthly activity",
			Amount:      money.Zero,
			Table:       pncOtherDeduction,
		}}
	}

	months := map[time.Month]bool{}
	for _, r := range rows {
		months[r.Date.Month()] = true
	}
	if len(months) == 2 && months[time.January] && months[time.December] {
		for i := range rows {
			if rows[i].Date.Month() == time.December {
				rows[i].Date = rows[i].Date.AddDate(-1, 0, 0)
			}
		}
	}
	sortByDate(rows)

	meta := models.Metadata{
		Date:             date,
		BeginningBalance: summary[0],
		EndingBalance:    summary[3],
	}
	meta.SetField(pncDepositsField, summary[1])
	meta.SetField(pncDeductionsField, summary[2])
	meta.SetField(pncAverageField, summary[4])
	meta.SetField(pncChargesField, summary[5])
	meta.SetNote("acct_type", f.account.Title)

	return []*models.Statement{{
		AccountNumber: f.account.Number,
		Metadata:      meta,
		Rows:          rows,
		Summaries: []models.Summary{
			{Label: pncDepositsField, Tables: []string{pncDeposits}, Column: models.ColumnAmount, Amount: summary[1]},
			{Label: pncDeductionsField, Tables: pncDeductionTables, Column: models.ColumnAmount, Amount: summary[2].Neg()},
		},
		ExpectedSummaries: 2,
		Tolerance:         money.Cent,
	}}, nil
}

// checkAccount verifies the title and the primary account number printed on
// page one against the account the file was filed under.
func (f *pnc) checkAccount(doc Document) error {
	lines := splitLines(doc.FirstPage())
	title := lines[0]
	if f.account.Title == "" || !strings.Contains(title, f.account.Title) {
		return &errs.AccountMismatchError{Field: "title", Expected: f.account.Title, Found: title}
	}

	found := map[string]bool{}
	for _, l := range lines {
		if m := pncAccountNumber.FindStringSubmatch(l); m != nil {
			found[m[1]] = true
		}
	}
	numbers := make([]string, 0, len(found))
	for n := range found {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	switch {
	case len(numbers) == 0:
		return &errs.MissingFieldError{Fields: []string{models.KeyAccountNumber}}
	case len(numbers) > 1:
		return &errs.AmbiguousAccountError{Candidates: numbers}
	case numbers[0] != f.account.Number:
		return &errs.AccountMismatchError{Field: "account number", Expected: f.account.Number, Found: numbers[0]}
	}
	return nil
}

// pncStatementDate reads the closing date from "Statement_Jan_31_2024.pdf".
func pncStatementDate(name string) (time.Time, error) {
	m := pncFileDate.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, &errs.ParseError{Kind: errs.KindDate, Input: name, Layout: "Statement_Jan_2_2006"}
	}
	return money.ParseDate(strings.ReplaceAll(m[1], "_", " "), pncFileLayout)
}

// pncSummary returns beginning, deposits, deductions, ending, average and
// charges, or nil when the page holds no balance summary.
func pncSummary(page string) ([]decimal.Decimal, error) {
	m := pncBalanceSummary.FindStringSubmatch(strings.ReplaceAll(page, ",", ""))
	if m == nil {
		return nil, nil
	}
	out := make([]decimal.Decimal, 0, 6)
	for _, token := range m[1:] {
		d, err := money.ParseAmount(token)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

type pncSpan struct {
	header     string
	start, end int
}

// pncSpans locates every table header on a page. A table runs until the next
// header, whatever its kind, or the end of the page.
func pncSpans(lines []string) []pncSpan {
	var spans []pncSpan
	for i, l := range lines {
		for _, h := range pncHeaders {
			if strings.Contains(l, h) {
				spans = append(spans, pncSpan{header: h, start: i})
			}
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := range spans {
		spans[i].end = len(lines)
		if i+1 < len(spans) {
			spans[i].end = spans[i+1].start
		}
	}
	return spans
}

func pncTables(page string, year int) ([]models.Row, int, error) {
	lines := splitLines(page)
	var (
		rows      []models.Row
		discarded int
	)
	for _, span := range pncSpans(lines) {
		body := lines[span.start:span.end]
		var (
			read []models.Row
			n    int
			err  error
		)
		switch span.header {
		case pncDailyBalance:
			continue
		case pncChecks:
			read, n, err = pncCheckRows(body, year)
		default:
			read, n, err = pncListRows(body, year)
		}
		if err != nil {
			return nil, 0, err
		}
		deduction := span.header != pncDeposits
		for i := range read {
			read[i].Table = span.header
			if deduction {
				read[i].Amount = read[i].Amount.Abs().Neg()
			}
		}
		rows = append(rows, read...)
		discarded += n
	}
	return rows, discarded, nil
}

// pncCheckRows reads check lines, which may hold several
// "MM/DD number amount" entries side by side.
func pncCheckRows(lines []string, year int) ([]models.Row, int, error) {
	var (
		amounts  []string
		pairs    [][]string
		consumed int
	)
	for _, l := range lines {
		l = strings.ReplaceAll(l, ",", "")
		if !pncCheckDate.MatchString(l) || !pncCheckAmount.MatchString(l) {
			continue
		}
		consumed++
		amounts = append(amounts, pncCheckAmount.FindAllString(l, -1)...)
		for _, m := range pncCheckPair.FindAllStringSubmatch(l, -1) {
			pairs = append(pairs, m)
		}
	}
	if len(amounts) != len(pairs) {
		return nil, 0, &errs.ParseError{
			Kind:  errs.KindAmount,
			Input: strings.Join(amounts, " "),
			Err:   fmt.Errorf("checks table holds %d amounts for %d checks", len(amounts), len(pairs)),
		}
	}
	rows := make([]models.Row, 0, len(pairs))
	for i, p := range pairs {
		date, err := parseDate(fmt.Sprintf("%s/%d", p[1], year), pncRowLayout, p[0])
		if err != nil {
			return nil, 0, err
		}
		amount, err := money.ParseAmount(amounts[i])
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, models.Row{
			Date:        date,
			Description: "Check with number " + p[2],
			Amount:      amount,
		})
	}
	// Header and column titles are not counted as discards.
	return rows, max(0, len(lines)-consumed-2), nil
}

// pncListRows reads "MM/DD amount description" lines. A line that follows a
// row and does not start with a date continues its description.
func pncListRows(lines []string, year int) ([]models.Row, int, error) {
	var rows []models.Row
	used := 0
	for i := 0; i < len(lines); i++ {
		if !pncRowLead.MatchString(lines[i]) {
			continue
		}
		used++
		parts := fields(lines[i], 3)
		if len(parts) < 2 {
			return nil, 0, &errs.ParseError{Kind: errs.KindAmount, Input: lines[i], Line: lines[i]}
		}
		description := ""
		if len(parts) == 3 {
			description = parts[2]
		}
		if i+1 < len(lines) && !pncRowLead.MatchString(lines[i+1]) {
			description = strings.TrimSpace(description + " " + strings.TrimSpace(lines[i+1]))
			used++
		}
		date, err := parseDate(fmt.Sprintf("%s/%d", parts[0], year), pncRowLayout, lines[i])
		if err != nil {
			return nil, 0, err
		}
		amount, err := money.ParseAmount(parts[1])
		if err != nil {
			return nil, 0, withLine(err, lines[i])
		}
		rows = append(rows, models.Row{Date: date, Description: description, Amount: amount})
	}
	return rows, max(0, len(lines)-used-2), nil
}
