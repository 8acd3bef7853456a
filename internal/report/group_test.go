package report

import (
	"math"
	"reflect"
	"testing"

	"keswan/internal/core"
)

func TestAggregateByOfficerVisits(t *testing.T) {
	got := Aggregate(sampleRecords(), Options{Dimension: DimensionOfficer, Weighting: WeightVisits})
	want := []core.StatItem{
		{Label: "Budi", Key: "Budi", Count: 2},
		{Label: "Ani", Key: "Ani", Count: 2},
		{Label: "Citra", Key: "Citra", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestAggregateTieBreakByKey(t *testing.T) {
	got := Aggregate(sampleRecords(), Options{Dimension: DimensionOfficer, TieBreak: TieBreakKey})
	if got[0].Label != "Ani" || got[1].Label != "Budi" {
		t.Fatalf("expected lexicographic tie break, got %+v", got)
	}
}

func TestAggregateLivestockWeighted(t *testing.T) {
	got := Aggregate(sampleRecords(), Options{Dimension: DimensionVillage, Weighting: WeightLivestock})
	want := []core.StatItem{
		{Label: "Desa C", Key: "Desa C", Count: 10},
		{Label: "Desa A", Key: "Desa A", Count: 7}, // "Desa A" and "Desa A " merge
		{Label: "Desa B", Key: "Desa B", Count: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestAggregateByMonth(t *testing.T) {
	got := Aggregate(sampleRecords(), Options{Dimension: DimensionMonth, TieBreak: TieBreakKey})
	want := []core.StatItem{
		{Label: "Januari 2024", Key: "2024-01", Count: 2},
		{Label: "Februari 2024", Key: "2024-02", Count: 2},
		{Label: "Desember 2023", Key: "2023-12", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestAggregateByMedicineCreditsOncePerRecord(t *testing.T) {
	records := []core.ServiceRecord{
		rec("1", core.NewDate(2024, 1, 1), "F", "O", "V", "Sapi", "D", 1,
			core.Treatment{Medicine: "A", Dose: 1}, core.Treatment{Medicine: "A", Dose: 2}, core.Treatment{Medicine: "B", Dose: 1}),
		rec("2", core.NewDate(2024, 1, 2), "F", "O", "V", "Sapi", "D", 1,
			core.Treatment{Medicine: "B", Dose: 1}),
	}
	got := Aggregate(records, Options{Dimension: DimensionMedicine})
	want := []core.StatItem{
		{Label: "B", Key: "B", Count: 2},
		{Label: "A", Key: "A", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, Options{Dimension: DimensionFacility})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
	if p := WithPercentages(got); len(p) != 0 {
		t.Fatalf("expected empty percentages, got %+v", p)
	}
}

func TestAggregateProperties(t *testing.T) {
	records := sampleRecords()
	for _, dim := range []Dimension{DimensionMonth, DimensionOfficer, DimensionFacility, DimensionDiagnosis, DimensionVillage, DimensionSpecies} {
		for _, w := range []Weighting{WeightVisits, WeightLivestock} {
			opts := Options{Dimension: dim, Weighting: w}
			items := Aggregate(records, opts)

			var want int64
			for _, r := range records {
				if w == WeightLivestock {
					want += int64(r.LivestockCount)
				} else {
					want++
				}
			}
			if got := Total(items); got != want {
				t.Errorf("%s/%s: total %d, want %d", dim, w, got, want)
			}
			for i := 1; i < len(items); i++ {
				if items[i].Count > items[i-1].Count {
					t.Errorf("%s/%s: not sorted at %d: %+v", dim, w, i, items)
				}
			}
			if again := Aggregate(records, opts); !reflect.DeepEqual(items, again) {
				t.Errorf("%s/%s: not idempotent", dim, w)
			}

			var sum float64
			for _, it := range WithPercentages(items) {
				sum += it.Percentage
			}
			if math.Abs(sum-100) > 1e-9 {
				t.Errorf("%s/%s: percentages sum to %v", dim, w, sum)
			}
		}
	}
}

func TestWithPercentagesZeroTotal(t *testing.T) {
	got := WithPercentages([]core.StatItem{{Label: "a"}, {Label: "b"}})
	for _, it := range got {
		if it.Percentage != 0 {
			t.Fatalf("expected zero percentage, got %+v", got)
		}
	}
}

func TestWithPercentagesDoesNotMutate(t *testing.T) {
	items := []core.StatItem{{Label: "a", Count: 1}, {Label: "b", Count: 3}}
	got := WithPercentages(items)
	if items[0].Percentage != 0 {
		t.Fatalf("input mutated")
	}
	if got[0].Percentage != 25 || got[1].Percentage != 75 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestParseDimensionAndWeighting(t *testing.T) {
	if d, err := ParseDimension("village"); err != nil || d != DimensionVillage {
		t.Fatalf("got %v %v", d, err)
	}
	if _, err := ParseDimension("planet"); err == nil {
		t.Fatalf("expected error")
	}
	if w, err := ParseWeighting(""); err != nil || w != WeightVisits {
		t.Fatalf("got %v %v", w, err)
	}
	if _, err := ParseWeighting("kg"); err == nil {
		t.Fatalf("expected error")
	}
}
