package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ledgerline/pkg/errs"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransactionIDIsStable(t *testing.T) {
	a := TransactionID("5843", day(2024, 1, 5), "  Payment   - Thank You ", dec("-1200.00"))
	b := TransactionID(" 5843", day(2024, 1, 5), "payment - thank you", dec("-1200"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	c := TransactionID("5843", day(2024, 1, 6), "payment - thank you", dec("-1200"))
	assert.NotEqual(t, a, c)
	d := TransactionID("5843", day(2024, 1, 5), "payment - thank you", dec("-1200.01"))
	assert.NotEqual(t, a, d)
}

func TestNewPeriodRejectsReversedDates(t *testing.T) {
	_, err := NewPeriod(day(2024, 2, 1), day(2024, 1, 31))
	var de *errs.DateOrderError
	require.True(t, errors.As(err, &de))

	p, err := NewPeriod(day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, p.Contains(day(2024, 1, 1)))
	assert.True(t, p.Contains(day(2024, 1, 31)))
	assert.False(t, p.Contains(day(2024, 2, 1)))
}

func TestYearMonth(t *testing.T) {
	dec2023 := YearMonth{Year: 2023, Month: time.December}
	assert.Equal(t, YearMonth{Year: 2024, Month: time.January}, dec2023.Next())
	assert.Equal(t, dec2023, dec2023.Next().Prev())
	assert.Equal(t, "2023/12", dec2023.String())

	months := MonthsBetween(YearMonth{2023, time.November}, YearMonth{2024, time.February})
	require.Len(t, months, 4)
	assert.Equal(t, YearMonth{2024, time.February}, months[3])
	assert.Empty(t, MonthsBetween(YearMonth{2024, time.March}, YearMonth{2024, time.February}))
}

func TestMetadataJSON(t *testing.T) {
	meta := Metadata{
		AccountNumber:    "4589",
		BeginningDate:    day(2024, 1, 1),
		EndingDate:       day(2024, 1, 31),
		Date:             day(2024, 1, 16),
		BeginningBalance: dec("-100.5"),
		EndingBalance:    dec("-250.00"),
	}
	meta.SetField("purchases", dec("-149.50"))
	meta.SetField("annual_percentage_yield_earned", dec("0.043"))
	meta.SetNote("source", "/statements/2024/01/jan.pdf")

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "-100.50", raw[KeyBeginningBalance])
	assert.Equal(t, "01-16-2024", raw[KeyDate])
	assert.Equal(t, "0.043", raw["annual_percentage_yield_earned"])

	var back Metadata
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, meta.BeginningBalance.Equal(back.BeginningBalance))
	assert.True(t, meta.EndingBalance.Equal(back.EndingBalance))
	assert.Equal(t, meta.Period(), back.Period())
	assert.Equal(t, "4589", back.AccountNumber)
	assert.Equal(t, "/statements/2024/01/jan.pdf", back.Notes["source"])
	purchases, ok := back.Field("purchases")
	require.True(t, ok)
	assert.Equal(t, "-149.5", purchases.String())
}

func TestMetadataJSONAcceptsNumbers(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`{"Beginning balance": "10.00", "Ending balance": "12.00", "annual_percentage_yield_earned": 0.043, "date": "03-15-2024"}`), &m)
	require.NoError(t, err)
	apy, ok := m.Field("annual_percentage_yield_earned")
	require.True(t, ok)
	assert.Equal(t, "0.043", apy.String())
	assert.Equal(t, YearMonth{2024, time.March}, m.Month())
}

func TestStatementLedgerNegates(t *testing.T) {
	st := &Statement{
		AccountNumber: "5843",
		AccountName:   "Apple-5843",
		Source:        "apple.pdf",
		Metadata: Metadata{
			BeginningBalance: dec("100.00"),
			EndingBalance:    dec("130.00"),
			Date:             day(2024, 1, 31),
		},
		Rows: []Row{
			{Date: day(2024, 1, 5), Description: "Coffee", Amount: dec("50.00")},
			{Date: day(2024, 1, 9), Description: "Payment", Amount: dec("-20.00")},
		},
		Sign: SignNegated,
	}
	assert.True(t, st.FinalBalance().Equal(dec("130.00")))

	txs, meta := st.Ledger()
	require.Len(t, txs, 2)
	assert.Equal(t, "-50.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "-150.00", txs[0].Balance.StringFixed(2))
	assert.Equal(t, "20.00", txs[1].Amount.StringFixed(2))
	assert.Equal(t, "-130.00", txs[1].Balance.StringFixed(2))
	assert.Equal(t, Undefined, txs[0].Category)
	assert.Equal(t, "Apple-5843", txs[0].Account)
	assert.Equal(t, TransactionID("5843", day(2024, 1, 5), "Coffee", dec("-50")), txs[0].TransactionID)
	assert.True(t, meta.BeginningBalance.Equal(dec("-100")))
	assert.True(t, st.Metadata.BeginningBalance.Equal(dec("100")), "statement metadata is left untouched")
}
