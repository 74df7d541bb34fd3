// Package reconcile checks extracted statements against the totals they
// print about themselves. It never mutates what it checks, so the CLI "check"
// output and the batch gate share the same report.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ledgerline/pkg/errs"
	"github.com/yurifrl/ledgerline/pkg/models"
)

// Status of one check.
type Status int

const (
	Passed Status = iota
	Failed
)

func (s Status) String() string {
	if s == Passed {
		return "ok"
	}
	return "failed"
}

// Entry records one check and the figures it compared.
type Entry struct {
	Check    string
	Expected decimal.Decimal
	Computed decimal.Decimal
	Status   Status
}

// Report lists every check run against one statement, in order.
type Report struct {
	Period string
	Items  []Entry
}

func (r *Report) add(check string, expected, computed decimal.Decimal, ok bool) {
	status := Passed
	if !ok {
		status = Failed
	}
	r.Items = append(r.Items, Entry{Check: check, Expected: expected, Computed: computed, Status: status})
}

// FailedCount returns how many checks failed.
func (r *Report) FailedCount() int {
	n := 0
	for _, e := range r.Items {
		if e.Status == Failed {
			n++
		}
	}
	return n
}

// Err returns the first failed check as a ReconciliationError, or nil.
func (r *Report) Err() error {
	for _, e := range r.Items {
		if e.Status == Failed {
			return &errs.ReconciliationError{
				Period:   r.Period,
				Check:    e.Check,
				Expected: e.Expected,
				Computed: e.Computed,
			}
		}
	}
	return nil
}

// Build runs every check that applies to stmt:
//
//   - the number of printed summaries, when the format fixes it;
//   - each summary against the signed sum of its tables;
//   - each identity between printed figures, exactly;
//   - the final running balance against the ending balance, within the
//     statement's tolerance.
//
// Metadata-only statements skip the balance check; their rows are checked by
// CheckFill once they come from an export.
func Build(stmt *models.Statement) *Report {
	r := &Report{Period: period(stmt.Metadata)}

	if stmt.ExpectedSummaries > 0 {
		got := decimal.NewFromInt(int64(len(stmt.Summaries)))
		want := decimal.NewFromInt(int64(stmt.ExpectedSummaries))
		r.add("number of summaries", want, got, got.Equal(want))
	}

	for _, s := range stmt.Summaries {
		computed := tableSum(stmt.Rows, s.Tables, s.Column)
		r.add(fmt.Sprintf("%s (%s)", s.Label, strings.Join(s.Tables, ", ")), s.Amount, computed, computed.Equal(s.Amount))
	}

	for _, id := range stmt.Identities {
		got := id.Got()
		r.add(id.Name, id.Want, got, got.Equal(id.Want))
	}

	if !stmt.MetadataOnly {
		final := stmt.FinalBalance()
		diff := final.Sub(stmt.Metadata.EndingBalance).Abs()
		r.add("final running balance equals ending balance", stmt.Metadata.EndingBalance, final, diff.LessThanOrEqual(stmt.Tolerance))
	}
	return r
}

// Check returns the first failing check of stmt, stamped with its source.
func Check(stmt *models.Statement) error {
	if err := Build(stmt).Err(); err != nil {
		return errs.InFile(err, stmt.Source)
	}
	return nil
}

// CategoryGroup maps export categories to the metadata sub-total they add
// up to. A group without categories collects every row no other group
// claims.
type CategoryGroup struct {
	Field      string
	Categories []string
}

// Claims reports whether category belongs to the group, ignoring case.
func (g CategoryGroup) Claims(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range g.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// DiscoverCategories splits a Discover card export the way its statement
// summarizes it.
var DiscoverCategories = []CategoryGroup{
	{Field: "payments_and_credits", Categories: []string{"payments and credits", "awards and rebate credits"}},
	{Field: "fees_charged", Categories: []string{"fees"}},
	{Field: "purchases"},
}

// BuildFill checks rows taken from a bulk export against the metadata of the
// statement they fill: the final balance must match exactly and every group
// must add up to its sub-total when the metadata carries one.
func BuildFill(rows []models.Row, meta models.Metadata, groups []CategoryGroup) *Report {
	r := &Report{Period: period(meta)}

	sums := make([]decimal.Decimal, len(groups))
	final := meta.BeginningBalance
	for _, row := range rows {
		final = final.Add(row.Amount)
		if i := claim(groups, row.Category); i >= 0 {
			sums[i] = sums[i].Add(row.Amount)
		}
	}
	for i, g := range groups {
		want, ok := meta.Field(g.Field)
		if !ok {
			continue
		}
		r.add(g.Field, want, sums[i], sums[i].Equal(want))
	}
	r.add("final running balance equals ending balance", meta.EndingBalance, final, final.Equal(meta.EndingBalance))
	return r
}

// CheckFill is BuildFill returning the first failure.
func CheckFill(rows []models.Row, meta models.Metadata, groups []CategoryGroup) error {
	return BuildFill(rows, meta, groups).Err()
}

func claim(groups []CategoryGroup, category string) int {
	rest := -1
	for i, g := range groups {
		if len(g.Categories) == 0 {
			rest = i
			continue
		}
		if g.Claims(category) {
			return i
		}
	}
	return rest
}

func tableSum(rows []models.Row, tables []string, column models.Column) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if !contains(tables, row.Table) {
			continue
		}
		if column == models.ColumnCashback {
			total = total.Add(row.Cashback)
		} else {
			total = total.Add(row.Amount)
		}
	}
	return total
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func period(meta models.Metadata) string {
	if p := meta.Period(); !p.IsZero() {
		return p.String()
	}
	if !meta.Date.IsZero() {
		return meta.Month().String()
	}
	return ""
}
