package report

import (
	"fmt"
	"sort"
	"strings"

	"keswan/internal/core"
)

// Dimension selects the grouping key of Aggregate.
type Dimension string

const (
	DimensionMonth     Dimension = "month"
	DimensionOfficer   Dimension = "officer"
	DimensionFacility  Dimension = "facility"
	DimensionDiagnosis Dimension = "diagnosis"
	DimensionVillage   Dimension = "village"
	DimensionSpecies   Dimension = "species"
	DimensionMedicine  Dimension = "medicine"
)

// Dimensions lists every supported dimension.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionMonth, DimensionOfficer, DimensionFacility, DimensionDiagnosis,
		DimensionVillage, DimensionSpecies, DimensionMedicine,
	}
}

var dimensionLabels = map[Dimension]string{
	DimensionMonth:     "Bulan",
	DimensionOfficer:   "Petugas",
	DimensionFacility:  "Fasilitas",
	DimensionDiagnosis: "Diagnosa",
	DimensionVillage:   "Desa",
	DimensionSpecies:   "Jenis Ternak",
	DimensionMedicine:  "Nama Obat",
}

// Label is the column header used when the dimension is exported.
func (d Dimension) Label() string {
	if l, ok := dimensionLabels[d]; ok {
		return l
	}
	return string(d)
}

func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Weighting selects what one record adds to its bucket.
type Weighting string

const (
	// WeightVisits counts records.
	WeightVisits Weighting = "visits"
	// WeightLivestock counts animals.
	WeightLivestock Weighting = "livestock"
)

func ParseWeighting(s string) (Weighting, error) {
	switch Weighting(s) {
	case WeightVisits, WeightLivestock:
		return Weighting(s), nil
	case "":
		return WeightVisits, nil
	}
	return "", fmt.Errorf("unknown weighting %q", s)
}

// TieBreak orders buckets with equal counts.
type TieBreak int

const (
	// TieBreakFirstSeen keeps first-occurrence order of the input.
	TieBreakFirstSeen TieBreak = iota
	// TieBreakKey orders by natural key: chronological for months,
	// lexicographic otherwise.
	TieBreakKey
)

type Options struct {
	Dimension Dimension
	Weighting Weighting
	TieBreak  TieBreak
}

type bucket struct {
	key, label string
}

// Aggregate groups records by opts.Dimension. Items are ordered by
// descending count. Empty input yields an empty, non-nil slice.
func Aggregate(records []core.ServiceRecord, opts Options) []core.StatItem {
	index := make(map[string]int)
	items := make([]core.StatItem, 0)
	for _, r := range records {
		weight := int64(1)
		if opts.Weighting == WeightLivestock {
			weight = int64(r.LivestockCount)
		}
		for _, b := range buckets(r, opts.Dimension) {
			i, ok := index[b.key]
			if !ok {
				i = len(items)
				index[b.key] = i
				items = append(items, core.StatItem{Label: b.label, Key: b.key})
			}
			items[i].Count += weight
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		if opts.TieBreak == TieBreakKey {
			return items[i].Key < items[j].Key
		}
		return false
	})
	return items
}

// WithPercentages returns a copy of items carrying each bucket's share of
// the total. A zero total yields zero percentages.
func WithPercentages(items []core.StatItem) []core.StatItem {
	var total int64
	for _, it := range items {
		total += it.Count
	}
	out := make([]core.StatItem, len(items))
	for i, it := range items {
		out[i] = it
		if total > 0 {
			out[i].Percentage = float64(it.Count) / float64(total) * 100
		} else {
			out[i].Percentage = 0
		}
	}
	return out
}

// Total sums the counts of items.
func Total(items []core.StatItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Count
	}
	return total
}

func buckets(r core.ServiceRecord, d Dimension) []bucket {
	one := func(v string) []bucket {
		v = strings.TrimSpace(v)
		return []bucket{{key: v, label: v}}
	}
	switch d {
	case DimensionMonth:
		key := fmt.Sprintf("%04d-%02d", r.Date.Year(), r.Date.MonthNumber())
		return []bucket{{key: key, label: core.MonthYearLabel(r.Date.Year(), r.Date.MonthNumber())}}
	case DimensionOfficer:
		return one(r.Officer)
	case DimensionFacility:
		return one(r.Facility)
	case DimensionDiagnosis:
		return one(r.Diagnosis)
	case DimensionVillage:
		return one(r.Village())
	case DimensionSpecies:
		return one(r.Species)
	case DimensionMedicine:
		// A medicine given twice in one visit is credited once.
		seen := make(map[string]bool, len(r.Treatments))
		out := make([]bucket, 0, len(r.Treatments))
		for _, t := range r.Treatments {
			name := strings.TrimSpace(t.Medicine)
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, bucket{key: name, label: name})
		}
		return out
	default:
		return nil
	}
}
