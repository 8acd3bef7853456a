package report

import (
	"strings"

	"golang.org/x/text/cases"

	"keswan/internal/core"
)

// Criteria is the period and free-text selection applied before any
// aggregation.
type Criteria struct {
	Period core.Period
	Query  string
}

// HasPeriod reports whether an explicit year or month was selected.
func (c Criteria) HasPeriod() bool {
	return c.Period.Year != core.YearUnset || c.Period.HasMonth()
}

// Apply runs the period filter, then the text filter.
func (c Criteria) Apply(records []core.ServiceRecord) []core.ServiceRecord {
	return FilterByText(FilterByPeriod(records, c.Period), c.Query)
}

// FilterByPeriod keeps the records whose date falls inside p.
func FilterByPeriod(records []core.ServiceRecord, p core.Period) []core.ServiceRecord {
	out := make([]core.ServiceRecord, 0, len(records))
	for _, r := range records {
		if p.Matches(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByText keeps the records where any searchable field contains query,
// ignoring case. A blank query keeps everything.
func FilterByText(records []core.ServiceRecord, query string) []core.ServiceRecord {
	out := make([]core.ServiceRecord, 0, len(records))
	query = strings.TrimSpace(query)
	if query == "" {
		return append(out, records...)
	}
	fold := cases.Fold()
	needle := fold.String(query)
	for _, r := range records {
		for _, field := range searchable(r) {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func searchable(r core.ServiceRecord) []string {
	return []string{
		r.OwnerName,
		r.Officer,
		r.Facility,
		r.Diagnosis,
		r.Species,
		r.Date.Short(),
		r.Date.Long(),
	}
}
