// Package store reads and writes the per-account directory tree:
//
//	<account>/details.json
//	<account>/statements_db.csv
//	<account>/Statements/<YYYY>/<MM>/*.pdf
//	<account>/Processed Data/<YYYY>/<MM>/metadata.json
//	<account>/Processed Data/<YYYY>/<MM>/transactions.csv
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yurifrl/ledgerline/pkg/models"
)

const (
	StatementsDir    = "Statements"
	ProcessedDir     = "Processed Data"
	DetailsFile      = "details.json"
	StatementsDBFile = "statements_db.csv"
	MetadataFile     = "metadata.json"
	TransactionsFile = "transactions.csv"
)

// Layout resolves the paths of one account directory.
type Layout struct {
	Dir string
}

func NewLayout(dir string) Layout {
	return Layout{Dir: dir}
}

func (l Layout) Details() string      { return filepath.Join(l.Dir, DetailsFile) }
func (l Layout) StatementsDB() string { return filepath.Join(l.Dir, StatementsDBFile) }
func (l Layout) Statements() string   { return filepath.Join(l.Dir, StatementsDir) }
func (l Layout) Processed() string    { return filepath.Join(l.Dir, ProcessedDir) }

// StatementMonth is Statements/<YYYY>/<MM>.
func (l Layout) StatementMonth(ym models.YearMonth) string {
	y, m := ym.Dir()
	return filepath.Join(l.Dir, StatementsDir, y, m)
}

// ProcessedMonth is Processed Data/<YYYY>/<MM>.
func (l Layout) ProcessedMonth(ym models.YearMonth) string {
	y, m := ym.Dir()
	return filepath.Join(l.Dir, ProcessedDir, y, m)
}

func (l Layout) Metadata(ym models.YearMonth) string {
	return filepath.Join(l.ProcessedMonth(ym), MetadataFile)
}

func (l Layout) Transactions(ym models.YearMonth) string {
	return filepath.Join(l.ProcessedMonth(ym), TransactionsFile)
}

// Skeleton creates the Statements and Processed Data directories.
func (l Layout) Skeleton() error {
	for _, dir := range []string{l.Statements(), l.Processed()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// StatementFiles lists the PDFs under Statements, sorted by path.
func (l Layout) StatementFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.Statements(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list statements in %s: %w", l.Statements(), err)
	}
	sort.Strings(files)
	return files, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteJSON writes v indented with four spaces. The file is replaced
// atomically so an interrupted run never leaves half a document behind.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// WriteMetadata writes metadata.json.
func WriteMetadata(path string, meta models.Metadata) error {
	return WriteJSON(path, meta)
}

func ReadMetadata(path string) (models.Metadata, error) {
	var meta models.Metadata
	if err := ReadJSON(path, &meta); err != nil {
		return models.Metadata{}, err
	}
	return meta, nil
}

// Details is details.json, the account's identity card.
type Details struct {
	Name string `json:"name"`
	// AcctN is the account number.
	AcctN string `json:"acct_n"`
	// OpenDate is the first month of the ledger, "MM/YYYY".
	OpenDate string `json:"open_date"`
}

func ReadDetails(path string) (Details, error) {
	var d Details
	if err := ReadJSON(path, &d); err != nil {
		return Details{}, err
	}
	return d, nil
}

func WriteDetails(path string, d Details) error {
	return WriteJSON(path, d)
}

// WritePlaceholder stores v, named name, in the Statements folder of ym.
func (l Layout) WritePlaceholder(ym models.YearMonth, name string, v any) (string, error) {
	path := filepath.Join(l.StatementMonth(ym), name)
	return path, WriteJSON(path, v)
}
