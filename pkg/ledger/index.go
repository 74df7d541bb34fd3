package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
	"github.com/yurifrl/ledgerline/pkg/store"
)

// Files are the two documents of one processed month.
type Files struct {
	Metadata     string
	Transactions string
}

// Index maps each processed month to its files.
type Index map[models.YearMonth]Files

// Months returns the indexed months in calendar order.
func (idx Index) Months() []models.YearMonth {
	out := make([]models.YearMonth, 0, len(idx))
	for ym := range idx {
		out = append(out, ym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Latest is the last indexed month.
func (idx Index) Latest() (models.YearMonth, bool) {
	months := idx.Months()
	if len(months) == 0 {
		return models.YearMonth{}, false
	}
	return months[len(months)-1], true
}

// BuildIndex walks "Processed Data/<YYYY>/<MM>" under accountDir. Folder
// names are read as numbers, so "2024/3" and "2024/03" are the same month.
func BuildIndex(accountDir string) (Index, error) {
	root := store.NewLayout(accountDir).Processed()
	idx := Index{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || (name != store.MetadataFile && name != store.TransactionsFile) {
			return nil
		}

		monthDir := filepath.Dir(path)
		year, yerr := strconv.Atoi(filepath.Base(filepath.Dir(monthDir)))
		month, merr := strconv.Atoi(filepath.Base(monthDir))
		if yerr != nil || merr != nil || month < 1 || month > 12 {
			return fmt.Errorf("unexpected folder layout for %s", path)
		}
		ym := models.YearMonth{Year: year, Month: time.Month(month)}

		files := idx[ym]
		if name == store.MetadataFile {
			if files.Metadata != "" {
				return &errs.DuplicateFileError{Period: ym.String(), Kind: "metadata", First: files.Metadata, Second: path}
			}
			files.Metadata = path
		} else {
			if files.Transactions != "" {
				return &errs.DuplicateFileError{Period: ym.String(), Kind: "transactions", First: files.Transactions, Second: path}
			}
			files.Transactions = path
		}
		idx[ym] = files
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return Index{}, nil
	}
	if err != nil {
		return nil, err
	}

	for _, ym := range idx.Months() {
		files := idx[ym]
		var missing []string
		if files.Metadata == "" {
			missing = append(missing, "metadata")
		}
		if files.Transactions == "" {
			missing = append(missing, "transactions")
		}
		if len(missing) > 0 {
			return nil, &errs.IncompletePeriodError{Period: ym.String(), Missing: missing}
		}
	}
	return idx, nil
}

var (
	yearThenMonth = regexp.MustCompile(`(\d{4})\D+(\d{1,2})`)
	monthThenYear = regexp.MustCompile(`(\d{1,2})\D+(\d{4})`)
	packedMonth   = regexp.MustCompile(`^(\d{4})(\d{2})$`)
)

// ParseYearMonth accepts "2024-09", "2024/9", "09/2024", "202409" and
// "2024-09-15".
func ParseYearMonth(s string) (models.YearMonth, error) {
	for _, try := range []struct {
		re          *regexp.Regexp
		year, month int
	}{
		{yearThenMonth, 1, 2},
		{monthThenYear, 2, 1},
		{packedMonth, 1, 2},
	} {
		m := try.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[try.year])
		month, _ := strconv.Atoi(m[try.month])
		if month < 1 || month > 12 {
			return models.YearMonth{}, fmt.Errorf("invalid month in %q", s)
		}
		return models.YearMonth{Year: year, Month: time.Month(month)}, nil
	}
	return models.YearMonth{}, fmt.Errorf("invalid month %q: want forms like 2024-09, 09/2024, 202409 or 2024-09-15", s)
}
