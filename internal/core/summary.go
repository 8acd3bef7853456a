package core

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// StatItem is one bucket of a grouped statistic.
type StatItem struct {
	Label      string  `json:"label"`
	Key        string  `json:"key"` // natural sort key; equals Label except for months
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage,omitempty"`
}

// MedicineTotal is the accumulated dose of one medicine.
type MedicineTotal struct {
	Total decimal.Decimal `json:"total"`
	Unit  string          `json:"unit"`
}

// CaseRow is one village/species/diagnosis triple of a CaseTally.
type CaseRow struct {
	Village   string `json:"village"`
	Species   string `json:"species"`
	Diagnosis string `json:"diagnosis"`
	Count     int64  `json:"count"`
}

// CaseTally accumulates counts keyed by village, species and diagnosis.
// Accumulation order has no effect on the result; Rows applies ordering.
type CaseTally struct {
	m map[string]map[string]map[string]int64
}

func (t *CaseTally) Increment(village, species, diagnosis string, n int64) {
	if t.m == nil {
		t.m = make(map[string]map[string]map[string]int64)
	}
	bySpecies, ok := t.m[village]
	if !ok {
		bySpecies = make(map[string]map[string]int64)
		t.m[village] = bySpecies
	}
	byDiagnosis, ok := bySpecies[species]
	if !ok {
		byDiagnosis = make(map[string]int64)
		bySpecies[species] = byDiagnosis
	}
	byDiagnosis[diagnosis] += n
}

// Get returns the count for a triple, 0 when absent.
func (t CaseTally) Get(village, species, diagnosis string) int64 {
	return t.m[village][species][diagnosis]
}

// Villages returns the number of distinct villages.
func (t CaseTally) Villages() int {
	return len(t.m)
}

func (t CaseTally) Total() int64 {
	var total int64
	for _, bySpecies := range t.m {
		for _, byDiagnosis := range bySpecies {
			for _, n := range byDiagnosis {
				total += n
			}
		}
	}
	return total
}

// Rows returns every triple sorted by village, species, then diagnosis.
func (t CaseTally) Rows() []CaseRow {
	rows := make([]CaseRow, 0)
	for v, bySpecies := range t.m {
		for s, byDiagnosis := range bySpecies {
			for d, n := range byDiagnosis {
				rows = append(rows, CaseRow{Village: v, Species: s, Diagnosis: d, Count: n})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Village != b.Village {
			return a.Village < b.Village
		}
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		return a.Diagnosis < b.Diagnosis
	})
	return rows
}

func (t CaseTally) MarshalJSON() ([]byte, error) {
	if t.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.m)
}

// RecapData is the medicine and case summary of one reporting period.
type RecapData struct {
	Medicines map[string]MedicineTotal `json:"medicines"`
	Cases     CaseTally                `json:"cases"`
	// UnitConflicts lists medicines recorded with more than one specific unit.
	UnitConflicts []string `json:"unitConflicts,omitempty"`
}

// MedicineNames returns the medicine names in lexicographic order.
func (r RecapData) MedicineNames() []string {
	names := make([]string, 0, len(r.Medicines))
	for name := range r.Medicines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
