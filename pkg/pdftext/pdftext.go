// Package pdftext extracts the plain text of a PDF, one string per page.
package pdftext

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dslipak/pdf"

	"github.com/yurifrl/ledgerline/pkg/parser"
)

// Extractor turns a statement file into a parser.Document.
type Extractor interface {
	Extract(path string) (parser.Document, error)
}

// PDF reads documents with github.com/dslipak/pdf.
type PDF struct{}

func New() *PDF {
	return &PDF{}
}

func (PDF) Extract(path string) (parser.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return parser.Document{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return parser.Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return parser.Document{}, fmt.Errorf("failed to read pdf %s: %w", path, err)
	}

	doc := parser.Document{Name: filepath.Base(path)}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return parser.Document{}, fmt.Errorf("failed to extract page %d of %s: %w", i, path, err)
		}
		doc.Pages = append(doc.Pages, text)
	}
	return doc, nil
}
