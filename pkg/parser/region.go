package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yurifrl/ledgerline/pkg/models"
)

// region is a table bounded by literal markers.
type region struct {
	name  string
	start string
	// ends are alternative end markers; the one found furthest into the text
	// closes the region.
	ends []string
}

// extract returns the text from the start marker through the end of the line
// holding the end marker. ok is false when the start marker is absent. A
// missing end marker extends the region to the end of the text.
func (r region) extract(text string) (string, bool) {
	start := strings.Index(text, r.start)
	if start < 0 {
		return "", false
	}
	end := -1
	for _, marker := range r.ends {
		if i := strings.Index(text[start:], marker); i >= 0 && start+i > end {
			end = start + i
		}
	}
	if end < 0 {
		return text[start:], true
	}
	// The marker starts with "\n"; keep the whole line it opens.
	lineEnd := strings.Index(text[end+1:], "\n")
	if lineEnd < 0 {
		return text[start:], true
	}
	return text[start : end+1+lineEnd], true
}

// lines extracts the region and splits it, dropping nothing.
func (r region) lines(text string) ([]string, bool) {
	body, ok := r.extract(text)
	if !ok {
		return nil, false
	}
	return strings.Split(body, "\n"), true
}

// rsplit splits s on single spaces from the right into at most n+1 fields.
func rsplit(s string, n int) []string {
	var tail []string
	for i := 0; i < n; i++ {
		idx := strings.LastIndex(s, " ")
		if idx < 0 {
			break
		}
		tail = append(tail, s[idx+1:])
		s = s[:idx]
	}
	out := make([]string, 0, len(tail)+1)
	out = append(out, s)
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// fields splits s on runs of whitespace into at most n fields.
func fields(s string, n int) []string {
	return whitespace.Split(strings.TrimSpace(s), n)
}

// squash lower-cases a line and drops every blank, the form metadata labels
// are matched in.
func squash(line string) string {
	return strings.ReplaceAll(strings.ToLower(line), " ", "")
}

func squashAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = squash(l)
	}
	return out
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// sortByDateReversingTies orders rows by date; rows sharing a date come out
// in the reverse of the order they were read in.
func sortByDateReversingTies(rows []models.Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}

// sortByDate orders rows by date keeping the read order of ties.
func sortByDate(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}
