package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

// fieldPeriod is the rule name under which statement periods are recorded.
const fieldPeriod = "statement_period"

// rule matches metadata lines. Once a rule's field has been recorded, later
// lines never overwrite it.
type rule struct {
	field    string
	prefixes []string
	contains []string
	excludes []string
	read     func(acc *accumulator, lines []string, i int) error
}

func (r rule) matches(line string) bool {
	for _, x := range r.excludes {
		if strings.Contains(line, x) {
			return false
		}
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	for _, c := range r.contains {
		if strings.Contains(line, c) {
			return true
		}
	}
	return false
}

type accumulator struct {
	amounts map[string]decimal.Decimal
	dates   map[string]time.Time
	period  models.Period
	seen    map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		amounts: map[string]decimal.Decimal{},
		dates:   map[string]time.Time{},
		seen:    map[string]bool{},
	}
}

func (a *accumulator) amount(field string) decimal.Decimal {
	return a.amounts[field]
}

// fold runs every rule over every line, first match per field wins.
func fold(lines []string, rules []rule) (*accumulator, error) {
	return foldKeyed(lines, lines, rules)
}

// foldKeyed matches rules against keys and hands the aligned lines to the
// readers, for layouts whose labels are matched case-insensitively but whose
// values must be read verbatim.
func foldKeyed(keys, lines []string, rules []rule) (*accumulator, error) {
	acc := newAccumulator()
	for i, key := range keys {
		for _, r := range rules {
			if acc.seen[r.field] || !r.matches(key) {
				continue
			}
			if err := r.read(acc, lines, i); err != nil {
				return nil, err
			}
			acc.seen[r.field] = true
		}
	}
	return acc, nil
}

// require returns a MissingFieldError naming exactly the absent fields.
// beginning_date and ending_date are satisfied by a recorded period.
func (a *accumulator) require(names ...string) error {
	var missing []string
	for _, n := range names {
		switch n {
		case models.KeyBeginningDate, models.KeyEndingDate:
			if a.period.IsZero() {
				missing = append(missing, n)
			}
		default:
			_, amount := a.amounts[n]
			_, date := a.dates[n]
			if !amount && !date {
				missing = append(missing, n)
			}
		}
	}
	if len(missing) > 0 {
		return &errs.MissingFieldError{Fields: missing}
	}
	return nil
}

var (
	dollarPattern        = regexp.MustCompile(`[-+]?\$\d{1,3}(?:,\d{3})*\.?\d{0,2}`)
	dollarPercentPattern = regexp.MustCompile(`[-+]?(?:\$\d{1,3}(?:,\d{3})*\.?\d{0,2}|\d+(?:\.\d+)?%)`)
)

// dollarAmount reads the first "$1,234.56" style amount in line.
func dollarAmount(line string) (decimal.Decimal, error) {
	token := dollarPattern.FindString(line)
	if token == "" {
		return decimal.Zero, &errs.ParseError{Kind: errs.KindAmount, Input: line, Line: line}
	}
	d, err := money.ParseAmount(token)
	if err != nil {
		return decimal.Zero, withLine(err, line)
	}
	return d, nil
}

// dollarOrPercent reads an amount or a percentage, the latter as a fraction.
func dollarOrPercent(line string) (decimal.Decimal, error) {
	token := dollarPercentPattern.FindString(line)
	if token == "" {
		return decimal.Zero, &errs.ParseError{Kind: errs.KindAmount, Input: line, Line: line}
	}
	var (
		d   decimal.Decimal
		err error
	)
	if strings.HasSuffix(token, "%") {
		d, err = money.ParsePercent(token)
	} else {
		d, err = money.ParseAmount(token)
	}
	if err != nil {
		return decimal.Zero, withLine(err, line)
	}
	return d, nil
}

// dollarField records the first dollar amount of the matching line.
func dollarField(field string) func(*accumulator, []string, int) error {
	return func(acc *accumulator, lines []string, i int) error {
		d, err := dollarAmount(lines[i])
		if err != nil {
			return err
		}
		acc.amounts[field] = d
		return nil
	}
}

func parseDate(text, layout, line string) (time.Time, error) {
	t, err := money.ParseDate(text, layout)
	if err != nil {
		return time.Time{}, withLine(err, line)
	}
	return t, nil
}

func withLine(err error, line string) error {
	var pe *errs.ParseError
	if errors.As(err, &pe) && pe.Line == "" {
		pe.Line = line
	}
	return err
}

// periodFrom parses both dates of a range and rejects reversed ones.
func periodFrom(begin, end, layout, line string) (models.Period, error) {
	b, err := parseDate(begin, layout, line)
	if err != nil {
		return models.Period{}, err
	}
	e, err := parseDate(end, layout, line)
	if err != nil {
		return models.Period{}, err
	}
	return models.NewPeriod(b, e)
}

// negateAll flips the sign of the named amounts in place.
func negateAll(acc *accumulator, names ...string) {
	for _, n := range names {
		if v, ok := acc.amounts[n]; ok {
			acc.amounts[n] = v.Neg()
		}
	}
}
