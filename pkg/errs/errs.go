// Package errs holds the typed failures raised while turning statements into
// ledgers. Every type carries enough context (file, period, expected and
// computed values) for a person to open the source document and fix it.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind of token a ParseError failed on.
type Kind string

const (
	KindAmount Kind = "amount"
	KindDate   Kind = "date"
)

// ParseError is returned when an amount or date token is absent or malformed.
type ParseError struct {
	Kind   Kind
	Input  string
	Layout string
	Line   string
	File   string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to parse %s from %q", e.Kind, e.Input)
	if e.Layout != "" {
		fmt.Fprintf(&b, " with layout %q", e.Layout)
	}
	if e.Line != "" && e.Line != e.Input {
		fmt.Fprintf(&b, " (line %q)", e.Line)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError lists the required metadata fields a full scan did not find.
type MissingFieldError struct {
	File   string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	msg := fmt.Sprintf("required fields not found: %s", strings.Join(e.Fields, ", "))
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

// ReconciliationError reports a self-reported total that disagrees with the
// sum of the rows it summarizes.
type ReconciliationError struct {
	File     string
	Period   string
	Check    string
	Expected decimal.Decimal
	Computed decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	msg := fmt.Sprintf("%s does not reconcile: expected %s, computed %s",
		e.Check, e.Expected.StringFixed(2), e.Computed.StringFixed(2))
	if e.Period != "" {
		msg += " for " + e.Period
	}
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

// ContinuityError is raised when a month does not start where the previous
// month ended.
type ContinuityError struct {
	Account  string
	Period   string
	Expected decimal.Decimal // previous month's ending balance
	Computed decimal.Decimal // this month's beginning balance
}

func (e *ContinuityError) Error() string {
	return fmt.Sprintf("balance continuity broken for %s %s: beginning balance %s does not match previous ending balance %s",
		e.Account, e.Period, e.Computed.StringFixed(2), e.Expected.StringFixed(2))
}

// DuplicateFileError means two files of the same kind map to one (year, month).
type DuplicateFileError struct {
	Period string
	Kind   string
	First  string
	Second string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("duplicate %s for %s: %s and %s", e.Kind, e.Period, e.First, e.Second)
}

// MissingPeriodError names every month absent from a requested range.
type MissingPeriodError struct {
	Account   string
	Missing   []string
	Available []string
}

func (e *MissingPeriodError) Error() string {
	return fmt.Sprintf("missing statements for %s: %s. Available: %s",
		e.Account, strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// IncompletePeriodError is a month holding only one of metadata.json and
// transactions.csv.
type IncompletePeriodError struct {
	Period  string
	Missing []string
}

func (e *IncompletePeriodError) Error() string {
	return fmt.Sprintf("missing %s for %s", strings.Join(e.Missing, ", "), e.Period)
}

// AmbiguousAccountError is returned when the account a document belongs to
// cannot be determined uniquely from its content.
type AmbiguousAccountError struct {
	File       string
	Candidates []string
}

func (e *AmbiguousAccountError) Error() string {
	msg := fmt.Sprintf("ambiguous account number, found %s", strings.Join(e.Candidates, ", "))
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

// AccountMismatchError means a document names an account other than the one
// it was filed under. Field is what was compared ("title", "account number").
type AccountMismatchError struct {
	File     string
	Field    string
	Expected string
	Found    string
}

func (e *AccountMismatchError) Error() string {
	msg := fmt.Sprintf("statement %s %q does not match account %q", e.Field, e.Found, e.Expected)
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

// DateOrderError is a statement period whose end is not after its start.
type DateOrderError struct {
	File  string
	Start time.Time
	End   time.Time
}

func (e *DateOrderError) Error() string {
	msg := fmt.Sprintf("statement end date %s is not after start date %s",
		e.End.Format("Jan 02, 2006"), e.Start.Format("Jan 02, 2006"))
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

// InFile stamps path onto err when err carries a file field and it is still
// empty. Anything else is wrapped with the path.
func InFile(err error, path string) error {
	if err == nil {
		return nil
	}
	var (
		pe  *ParseError
		mfe *MissingFieldError
		re  *ReconciliationError
		ae  *AmbiguousAccountError
		me  *AccountMismatchError
		de  *DateOrderError
	)
	switch {
	case errors.As(err, &pe):
		if pe.File == "" {
			pe.File = path
		}
	case errors.As(err, &mfe):
		if mfe.File == "" {
			mfe.File = path
		}
	case errors.As(err, &re):
		if re.File == "" {
			re.File = path
		}
	case errors.As(err, &ae):
		if ae.File == "" {
			ae.File = path
		}
	case errors.As(err, &me):
		if me.File == "" {
			me.File = path
		}
	case errors.As(err, &de):
		if de.File == "" {
			de.File = path
		}
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
	return err
}
