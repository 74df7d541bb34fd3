package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Keys of metadata.json. They are part of the on-disk schema read by the
// downstream reporting stage and must not change.
const (
	KeyBeginningBalance = "Beginning balance"
	KeyEndingBalance    = "Ending balance"
	KeyBeginningDate    = "beginning_date"
	KeyEndingDate       = "ending_date"
	KeyDate             = "date"
	KeyAccountNumber    = "Account number"
)

// Metadata is the per-account, per-month record a statement reports about
// itself. Once validated it is the unit of truth for its (account, month).
type Metadata struct {
	AccountNumber    string
	BeginningDate    time.Time
	EndingDate       time.Time
	Date             time.Time
	BeginningBalance decimal.Decimal
	EndingBalance    decimal.Decimal

	// Fields holds institution sub-totals and rates, keyed as in metadata.json.
	Fields map[string]decimal.Decimal
	// Notes holds non-numeric extras such as the source document.
	Notes map[string]string
}

// Period returns the statement period. It is zero when the institution does
// not print one.
func (m Metadata) Period() Period {
	return Period{Begin: m.BeginningDate, End: m.EndingDate}
}

// Month is the ledger cell the metadata belongs to.
func (m Metadata) Month() YearMonth {
	return YearMonthOf(m.Date)
}

func (m *Metadata) SetField(key string, v decimal.Decimal) {
	if m.Fields == nil {
		m.Fields = map[string]decimal.Decimal{}
	}
	m.Fields[key] = v
}

func (m *Metadata) SetNote(key, v string) {
	if m.Notes == nil {
		m.Notes = map[string]string{}
	}
	m.Notes[key] = v
}

// Field returns a sub-total and whether it was present.
func (m Metadata) Field(key string) (decimal.Decimal, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// Clone returns a copy that shares no maps with m.
func (m Metadata) Clone() Metadata {
	out := m
	out.Fields = nil
	out.Notes = nil
	for k, v := range m.Fields {
		out.SetField(k, v)
	}
	for k, v := range m.Notes {
		out.SetNote(k, v)
	}
	return out
}

// Negate flips the sign of the balances. Sub-totals keep the sign they were
// printed with.
func (m Metadata) Negate() Metadata {
	out := m.Clone()
	out.BeginningBalance = m.BeginningBalance.Neg()
	out.EndingBalance = m.EndingBalance.Neg()
	return out
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		KeyBeginningBalance: formatDecimal(m.BeginningBalance),
		KeyEndingBalance:    formatDecimal(m.EndingBalance),
	}
	if m.AccountNumber != "" {
		out[KeyAccountNumber] = m.AccountNumber
	}
	for key, t := range map[string]time.Time{
		KeyBeginningDate: m.BeginningDate,
		KeyEndingDate:    m.EndingDate,
		KeyDate:          m.Date,
	} {
		if !t.IsZero() {
			out[key] = t.Format(DateLayoutMetadata)
		}
	}
	for k, v := range m.Fields {
		out[k] = formatDecimal(v)
	}
	for k, v := range m.Notes {
		out[k] = v
	}
	return json.Marshal(out)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*m = Metadata{}
	for key, value := range raw {
		var err error
		switch key {
		case KeyBeginningBalance:
			m.BeginningBalance, err = decimalValue(value)
		case KeyEndingBalance:
			m.EndingBalance, err = decimalValue(value)
		case KeyBeginningDate:
			m.BeginningDate, err = dateValue(value)
		case KeyEndingDate:
			m.EndingDate, err = dateValue(value)
		case KeyDate:
			m.Date, err = dateValue(value)
		case KeyAccountNumber:
			m.AccountNumber = fmt.Sprint(value)
		default:
			switch v := value.(type) {
			case json.Number:
				d, derr := decimal.NewFromString(v.String())
				if derr != nil {
					return fmt.Errorf("invalid number for %q: %w", key, derr)
				}
				m.SetField(key, d)
			case string:
				if d, derr := decimal.NewFromString(v); derr == nil {
					m.SetField(key, d)
				} else {
					m.SetNote(key, v)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("invalid value for %q: %w", key, err)
		}
	}
	return nil
}

func formatDecimal(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}

func decimalValue(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case json.Number:
		return decimal.NewFromString(x.String())
	}
	return decimal.Zero, fmt.Errorf("unexpected type %T", v)
}

func dateValue(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
	return time.Parse(DateLayoutMetadata, s)
}
