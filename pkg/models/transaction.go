package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Undefined is the category and flow type of a transaction nobody has
// classified yet.
const Undefined = "Undefined"

// Transaction is one ledger row. Amount follows the global convention:
// money leaving the account is negative, money arriving is positive.
type Transaction struct {
	Date          time.Time
	Description   string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	Category      string
	FlowType      string
	TransactionID string
	Account       string
	Source        string
}

// NewTransaction builds an unclassified transaction and derives its id from
// the account number.
func NewTransaction(accountNumber, accountName, source string, date time.Time, description string, amount, balance decimal.Decimal) Transaction {
	return Transaction{
		Date:          date,
		Description:   description,
		Amount:        amount,
		Balance:       balance,
		Category:      Undefined,
		FlowType:      Undefined,
		TransactionID: TransactionID(accountNumber, date, description, amount),
		Account:       accountName,
		Source:        source,
	}
}

// DateString renders the date the way transactions.csv stores it.
func (t Transaction) DateString() string {
	return t.Date.Format(DateLayoutCSV)
}

const (
	// DateLayoutCSV is the date layout of transactions.csv.
	DateLayoutCSV = "2006-01-02"
	// DateLayoutMetadata is the date layout of metadata.json.
	DateLayoutMetadata = "01-02-2006"
)
