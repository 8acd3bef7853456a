package export

import (
	"strings"
	"testing"
	"time"

	"keswan/internal/core"
)

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		kind string
		p    core.Period
		ext  string
		want string
	}{
		{KindFacility, core.Period{Year: 2024}, "xlsx", "Laporan_SemuaBulan_2024.xlsx"},
		{KindRecap, core.Period{Year: core.AllYears, Month: 1}, ".xlsx", "Rekap_Januari_SemuaTahun.xlsx"},
		{KindRecap, core.Period{}, "pdf", "Rekap_SemuaBulan_2026.pdf"},
		{KindRecap, core.Period{Month: 1}, "xlsx", "Rekap_Januari_SemuaTahun.xlsx"},
		{KindStatistics, core.Period{Year: 2025, Month: 3}, "xlsx", "Statistik_Maret_2025.xlsx"},
	}
	for _, tc := range cases {
		if got := Filename(tc.kind, tc.p, tc.ext, now); got != tc.want {
			t.Errorf("got %q want %q", got, tc.want)
		}
	}

	if got := Filename(KindRecap, core.Period{Year: 2024}, "xlsx", now); !strings.Contains(got, "SemuaBulan_2024") {
		t.Fatalf("got %q", got)
	}
	if got := Filename(KindRecap, core.Period{Year: core.AllYears, Month: 1}, "xlsx", now); !strings.Contains(got, "Januari_SemuaTahun") {
		t.Fatalf("got %q", got)
	}
}
