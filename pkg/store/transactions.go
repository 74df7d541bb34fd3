package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/models"
)

// transactionRecord is one line of transactions.csv.
type transactionRecord struct {
	Date          string `csv:"Date"`
	Description   string `csv:"Description"`
	Amount        string `csv:"Amount"`
	Balance       string `csv:"Balance"`
	Category      string `csv:"Category"`
	FlowType      string `csv:"Flow Type"`
	TransactionID string `csv:"TransactionID"`
	Account       string `csv:"Account"`
	Source        string `csv:"Source"`
}

// WriteTransactions writes transactions.csv. An empty slice still produces
// the header line.
func WriteTransactions(path string, txs []models.Transaction) error {
	records := make([]*transactionRecord, 0, len(txs))
	for _, t := range txs {
		records = append(records, &transactionRecord{
			Date:          t.DateString(),
			Description:   t.Description,
			Amount:        t.Amount.StringFixed(2),
			Balance:       t.Balance.StringFixed(2),
			Category:      t.Category,
			FlowType:      t.FlowType,
			TransactionID: t.TransactionID,
			Account:       t.Account,
			Source:        t.Source,
		})
	}
	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, data)
}

// ReadTransactions reads transactions.csv.
func ReadTransactions(path string) ([]models.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []*transactionRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	out := make([]models.Transaction, 0, len(records))
	for i, r := range records {
		date, err := time.Parse(models.DateLayoutCSV, r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid date %q: %w", path, i+2, r.Date, err)
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid amount %q: %w", path, i+2, r.Amount, err)
		}
		balance, err := decimal.NewFromString(r.Balance)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid balance %q: %w", path, i+2, r.Balance, err)
		}
		out = append(out, models.Transaction{
			Date:          date,
			Description:   r.Description,
			Amount:        amount,
			Balance:       balance,
			Category:      r.Category,
			FlowType:      r.FlowType,
			TransactionID: r.TransactionID,
			Account:       r.Account,
			Source:        r.Source,
		})
	}
	return out, nil
}
