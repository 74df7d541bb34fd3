package main

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/csv"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/money"
)

type filters struct {
	startDate string
	endDate   string
	minAmount string
	maxAmount string
	payee     string
}

func (f *filters) toFilter() (csv.Filter, error) {
	out := csv.Filter{Payee: f.payee}
	var err error
	if f.startDate != "" {
		if out.Start, err = money.ParseDate(f.startDate, models.DateLayoutCSV); err != nil {
			return csv.Filter{}, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if f.endDate != "" {
		if out.End, err = money.ParseDate(f.endDate, models.DateLayoutCSV); err != nil {
			return csv.Filter{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if out.Min, err = bound("--min", f.minAmount); err != nil {
		return csv.Filter{}, err
	}
	if out.Max, err = bound("--max", f.maxAmount); err != nil {
		return csv.Filter{}, err
	}
	return out, nil
}

func bound(flag, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := money.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", flag, err)
	}
	return &d, nil
}
