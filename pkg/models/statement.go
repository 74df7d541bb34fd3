package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SignConvention tells how the amounts a statement prints relate to the
// ledger convention (outflows negative).
type SignConvention string

const (
	SignAsPrinted SignConvention = "as_printed"
	// SignNegated is used by cards that print charges as positive numbers.
	SignNegated SignConvention = "negated"
)

// Column a summary totals.
type Column string

const (
	ColumnAmount   Column = "amount"
	ColumnCashback Column = "cashback"
)

// Row is a line item as extracted from a statement, before the ledger sign
// convention is applied.
type Row struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Cashback    decimal.Decimal
	Percentage  string
	Table       string
	// Category is the institution's own classification, when its export
	// carries one.
	Category string
}

// Summary is a total the statement prints for one or more of its tables.
type Summary struct {
	Label  string
	Tables []string
	Column Column
	Amount decimal.Decimal
}

// Part is one signed term of an Identity.
type Part struct {
	Label string
	Value decimal.Decimal
}

// Identity is an equation between printed figures, e.g. previous balance plus
// charges minus payments equals the new balance. It must hold exactly.
type Identity struct {
	Name  string
	Parts []Part
	Want  decimal.Decimal
}

// Got sums the identity's parts.
func (i Identity) Got() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Parts {
		total = total.Add(p.Value)
	}
	return total
}

// Statement is everything extracted from one statement for one account and
// month.
type Statement struct {
	AccountNumber string
	AccountName   string
	Source        string
	Metadata      Metadata
	Rows          []Row
	Summaries     []Summary

	// ExpectedSummaries is the exact number of summaries the format prints.
	// Zero disables the count check.
	ExpectedSummaries int
	Identities        []Identity

	// Tolerance bounds |beginning + Σ rows - ending|. Zero means exact.
	Tolerance decimal.Decimal

	// MetadataOnly statements carry balances but no rows; their transactions
	// come from a bulk CSV export.
	MetadataOnly bool

	Sign SignConvention
}

// Label identifies the statement in messages.
func (s *Statement) Label() string {
	return fmt.Sprintf("%s %s", s.AccountNumber, s.Metadata.Month())
}

// RunningBalances returns beginning balance plus the cumulative sum of the
// rows, one entry per row.
func (s *Statement) RunningBalances() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Rows))
	total := s.Metadata.BeginningBalance
	for i, r := range s.Rows {
		total = total.Add(r.Amount)
		out[i] = total
	}
	return out
}

// FinalBalance is the running balance after the last row, or the beginning
// balance when there are no rows.
func (s *Statement) FinalBalance() decimal.Decimal {
	total := s.Metadata.BeginningBalance
	for _, r := range s.Rows {
		total = total.Add(r.Amount)
	}
	return total
}

// Ledger applies the sign convention and returns the transactions and
// metadata to persist.
func (s *Statement) Ledger() ([]Transaction, Metadata) {
	meta := s.Metadata.Clone()
	if s.Sign == SignNegated {
		meta = meta.Negate()
	}
	balances := s.RunningBalances()
	out := make([]Transaction, 0, len(s.Rows))
	for i, r := range s.Rows {
		amount, balance := r.Amount, balances[i]
		if s.Sign == SignNegated {
			amount, balance = amount.Neg(), balance.Neg()
		}
		out = append(out, NewTransaction(s.AccountNumber, s.AccountName, s.Source, r.Date, r.Description, amount, balance))
	}
	return out, meta
}
