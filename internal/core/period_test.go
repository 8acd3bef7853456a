package core

import (
	"testing"
	"time"
)

func TestPeriodMatches(t *testing.T) {
	d := NewDate(2024, 5, 10)
	cases := []struct {
		p    Period
		want bool
	}{
		{Period{}, true},
		{Period{Year: AllYears}, true},
		{Period{Year: 2024}, true},
		{Period{Year: 2023}, false},
		{Period{Year: 2024, Month: 5}, true},
		{Period{Year: 2024, Month: 6}, false},
		{Period{Year: AllYears, Month: 5}, true},
		{Period{Month: 4}, false},
	}
	for i, tc := range cases {
		if got := tc.p.Matches(d); got != tc.want {
			t.Fatalf("case %d (%+v): got %v want %v", i, tc.p, got, tc.want)
		}
	}
}

func TestPeriodLabels(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		p           Period
		month, year string
	}{
		{Period{Year: 2024}, "SemuaBulan", "2024"},
		{Period{Year: AllYears, Month: 1}, "Januari", "SemuaTahun"},
		{Period{}, "SemuaBulan", "2026"},
		{Period{Month: 1}, "Januari", "SemuaTahun"},
		{Period{Year: 2025, Month: 12}, "Desember", "2025"},
	}
	for _, tc := range cases {
		if got := tc.p.MonthLabel(); got != tc.month {
			t.Errorf("%+v month label: got %q want %q", tc.p, got, tc.month)
		}
		if got := tc.p.YearLabel(now); got != tc.year {
			t.Errorf("%+v year label: got %q want %q", tc.p, got, tc.year)
		}
	}
}

func TestMonthByName(t *testing.T) {
	if m, ok := MonthByName("Agustus"); !ok || m != 8 {
		t.Fatalf("got %d %v", m, ok)
	}
	if _, ok := MonthByName("August"); ok {
		t.Fatalf("expected miss for english name")
	}
	if MonthName(0) != "" || MonthName(13) != "" {
		t.Fatalf("expected empty names out of range")
	}
}
