// Package money turns statement text into exact amounts and calendar dates.
package money

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/errs"
)

// Places is the number of fractional digits every amount is quantized to.
const Places = 2

var (
	amountPattern  = regexp.MustCompile(`\(?[-+]?\s*\$?\s*[-+]?\s*(?:\d[\d,]*(?:\.\d*)?|\.\d+)\)?`)
	percentPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?\s*%`)

	// Zero is the quantized zero amount.
	Zero = decimal.Zero
	// Cent is the tolerance used by balance checks.
	Cent = decimal.New(1, -Places)
)

// ParseAmount extracts the first amount found in text. Currency symbols,
// thousands separators and blanks are dropped; a leading sign, a trailing
// minus ("45.10-") or enclosing parentheses make the amount negative. The
// result is rounded half-even to two places.
func ParseAmount(text string) (decimal.Decimal, error) {
	loc := amountPattern.FindStringIndex(text)
	if loc == nil {
		return Zero, &errs.ParseError{Kind: errs.KindAmount, Input: text}
	}
	token := text[loc[0]:loc[1]]

	negative := strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")")
	if trailingMinus(text, loc[1]) {
		negative = !negative
	}
	clean := strings.NewReplacer("(", "", ")", "", "$", "", ",", "", " ", "").Replace(token)
	for len(clean) > 0 && (clean[0] == '-' || clean[0] == '+') {
		if clean[0] == '-' {
			negative = !negative
		}
		clean = clean[1:]
	}
	clean = strings.TrimSuffix(clean, ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Zero, &errs.ParseError{Kind: errs.KindAmount, Input: text, Err: err}
	}
	if negative {
		d = d.Neg()
	}
	return Quantize(d), nil
}

// trailingMinus reports whether a "-" directly follows the amount ending at
// end and closes the token.
func trailingMinus(text string, end int) bool {
	if end >= len(text) || text[end] != '-' {
		return false
	}
	return end+1 == len(text) || text[end+1] == ' ' || text[end+1] == '\t' || text[end+1] == '\n'
}

// MustAmount is ParseAmount for literals known to be valid.
func MustAmount(text string) decimal.Decimal {
	d, err := ParseAmount(text)
	if err != nil {
		panic(err)
	}
	return d
}

// ParsePercent reads "4.30%" as the fraction 0.0430.
func ParsePercent(text string) (decimal.Decimal, error) {
	token := percentPattern.FindString(text)
	if token == "" {
		return Zero, &errs.ParseError{Kind: errs.KindAmount, Input: text}
	}
	token = strings.TrimSpace(strings.TrimSuffix(token, "%"))
	d, err := decimal.NewFromString(strings.TrimPrefix(token, "+"))
	if err != nil {
		return Zero, &errs.ParseError{Kind: errs.KindAmount, Input: text, Err: err}
	}
	return d.Shift(-2), nil
}

// Quantize rounds d half-even to two places.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// WithinCent reports whether a and b differ by at most one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// ParseDate parses text with an explicit Go reference layout. There are no
// fallback layouts.
func ParseDate(text, layout string) (time.Time, error) {
	t, err := time.Parse(layout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &errs.ParseError{Kind: errs.KindDate, Input: text, Layout: layout, Err: err}
	}
	return t, nil
}
