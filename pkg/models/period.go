package models

import (
	"fmt"
	"time"

	"github.com/yurifrl/ledgerline/pkg/errs"
)

// Period is the date range one statement covers, inclusive on both ends.
type Period struct {
	Begin time.Time
	End   time.Time
}

// NewPeriod rejects ranges whose end is not strictly after the beginning.
func NewPeriod(begin, end time.Time) (Period, error) {
	if !end.After(begin) {
		return Period{}, &errs.DateOrderError{Start: begin, End: end}
	}
	return Period{Begin: begin, End: end}, nil
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Begin) && !t.After(p.End)
}

func (p Period) IsZero() bool {
	return p.Begin.IsZero() && p.End.IsZero()
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Begin.Format(DateLayoutCSV), p.End.Format(DateLayoutCSV))
}

// YearMonth keys one ledger cell.
type YearMonth struct {
	Year  int
	Month time.Month
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// First returns midnight UTC of the month's first day.
func (ym YearMonth) First() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Dir returns the "YYYY" and "MM" directory names of the month.
func (ym YearMonth) Dir() (string, string) {
	return fmt.Sprintf("%04d", ym.Year), fmt.Sprintf("%02d", int(ym.Month))
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d/%02d", ym.Year, int(ym.Month))
}

// MonthsBetween lists every month from start to end inclusive.
func MonthsBetween(start, end YearMonth) []YearMonth {
	var out []YearMonth
	for ym := start; !end.Before(ym); ym = ym.Next() {
		out = append(out, ym)
	}
	return out
}
