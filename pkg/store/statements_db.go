package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// Processed is one statements_db.csv row: a raw document and the month
// folder it was turned into.
type Processed struct {
	AccountNumber string `csv:"account_number"`
	Month         int    `csv:"month"`
	Year          int    `csv:"year"`
	RawPath       string `csv:"raw_documents_path"`
	ProcessedPath string `csv:"processed_documents_path"`
}

// StatementsDB is the bookkeeping of documents already processed for an
// account.
type StatementsDB struct {
	path string
	rows []Processed
	raw  map[string]bool
}

// LoadStatementsDB reads path. A missing file is an empty database.
func LoadStatementsDB(path string) (*StatementsDB, error) {
	db := &StatementsDB{path: path, raw: map[string]bool{}}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return db, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Processed
	if err := gocsv.UnmarshalFile(f, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for _, r := range rows {
		db.Add(r)
	}
	return db, nil
}

// Has reports whether the raw document was already processed.
func (db *StatementsDB) Has(raw string) bool {
	return db.raw[raw]
}

// Add records a row. Rows equal to an existing one are dropped.
func (db *StatementsDB) Add(r Processed) {
	for _, existing := range db.rows {
		if existing == r {
			return
		}
	}
	db.rows = append(db.rows, r)
	db.raw[r.RawPath] = true
}

func (db *StatementsDB) Rows() []Processed {
	return db.rows
}

// Save writes the database back to where it was loaded from.
func (db *StatementsDB) Save() error {
	rows := db.rows
	if rows == nil {
		rows = []Processed{}
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(db.path), err)
	}
	return writeAtomic(db.path, data)
}
