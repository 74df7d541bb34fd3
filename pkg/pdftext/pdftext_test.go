package pdftext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMissingFile(t *testing.T) {
	_, err := New().Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestExtractNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("Date,Description,Amount\n"), 0o644))

	_, err := New().Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read pdf")
}
