package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"keswan/internal/core"
	"keswan/internal/log"
)

func rawFields() map[string]any {
	return map[string]any{
		core.FieldFacility:       "Puskeswan Kota",
		core.FieldOfficer:        " Budi ",
		core.FieldOwnerName:      "Sari",
		core.FieldOwnerAddress:   "Desa A",
		core.FieldSpecies:        "Sapi",
		core.FieldLivestockCount: float64(3),
		core.FieldDiagnosis:      "Scabies",
		core.FieldTreatments: []any{
			map[string]any{core.FieldMedicineName: "Ivermectin", core.FieldDose: "2,5", core.FieldUnit: "ml"},
		},
	}
}

func TestNormalize(t *testing.T) {
	stored := time.Date(2024, 1, 15, 22, 30, 0, 0, time.UTC)
	got, err := Normalize(core.RawRecord{ID: "abc", StoredAt: stored, Fields: rawFields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "abc" || !got.Date.Equal(core.NewDate(2024, 1, 15).Time) {
		t.Fatalf("unexpected id/date: %+v", got)
	}
	if got.Officer != "Budi" {
		t.Fatalf("expected trimmed officer, got %q", got.Officer)
	}
	if len(got.Treatments) != 1 || got.Treatments[0].Dose != 2.5 {
		t.Fatalf("unexpected treatments: %+v", got.Treatments)
	}
}

func TestNormalizeSynthesizesCaseDevelopment(t *testing.T) {
	stored := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	got, err := Normalize(core.RawRecord{ID: "a", StoredAt: stored, Fields: rawFields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []core.CaseDevelopment{{Status: core.DefaultCaseStatus, Count: 3}}
	if len(got.CaseDevelopments) != 1 || got.CaseDevelopments[0] != want[0] {
		t.Fatalf("expected %+v, got %+v", want, got.CaseDevelopments)
	}

	legacy := rawFields()
	legacy[core.FieldLegacyCaseStatus] = "Mati"
	got, err = Normalize(core.RawRecord{ID: "b", StoredAt: stored, Fields: legacy})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CaseDevelopments[0].Status != "Mati" || got.CaseDevelopments[0].Count != 3 {
		t.Fatalf("expected legacy status, got %+v", got.CaseDevelopments)
	}

	blank := rawFields()
	blank[core.FieldLegacyCaseStatus] = "   "
	got, err = Normalize(core.RawRecord{ID: "c", StoredAt: stored, Fields: blank})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CaseDevelopments[0].Status != core.DefaultCaseStatus {
		t.Fatalf("blank legacy status should fall back, got %+v", got.CaseDevelopments)
	}
}

func TestLegacyCaseDevelopmentCountFallback(t *testing.T) {
	c := legacyCaseDevelopment(map[string]any{}, 0)
	if c.Count != 1 || c.Status != core.DefaultCaseStatus {
		t.Fatalf("unexpected %+v", c)
	}
}

func TestNormalizeKeepsExplicitCaseDevelopments(t *testing.T) {
	f := rawFields()
	f[core.FieldCaseDevelopments] = []any{
		map[string]any{core.FieldStatus: "Sembuh", core.FieldCount: json.Number("2")},
		map[string]any{core.FieldStatus: "Mati", core.FieldCount: 1},
	}
	got, err := Normalize(core.RawRecord{ID: "x", StoredAt: time.Now(), Fields: f})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.CaseDevelopments) != 2 || got.CaseDevelopments[1].Status != "Mati" {
		t.Fatalf("unexpected %+v", got.CaseDevelopments)
	}
}

func TestNormalizeRejects(t *testing.T) {
	stored := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		mutate func(map[string]any)
		cause  error
	}{
		{"missing facility", func(f map[string]any) { delete(f, core.FieldFacility) }, core.ErrEmptyFacility},
		{"no treatments", func(f map[string]any) { delete(f, core.FieldTreatments) }, core.ErrNoTreatments},
		{"treatments not a list", func(f map[string]any) { f[core.FieldTreatments] = "Ivermectin" }, nil},
		{"bad dose", func(f map[string]any) {
			f[core.FieldTreatments] = []any{map[string]any{core.FieldMedicineName: "X", core.FieldDose: "abc"}}
		}, core.ErrInvalidQuantity},
		{"fractional livestock", func(f map[string]any) { f[core.FieldLivestockCount] = 2.5 }, nil},
		{"huge negative livestock", func(f map[string]any) { f[core.FieldLivestockCount] = -1e12 }, nil},
		{"infinite dose", func(f map[string]any) {
			f[core.FieldTreatments] = []any{map[string]any{core.FieldMedicineName: "X", core.FieldDose: math.Inf(1)}}
		}, core.ErrInvalidDose},
		{"case counts exceed", func(f map[string]any) {
			f[core.FieldCaseDevelopments] = []any{map[string]any{core.FieldStatus: "Sembuh", core.FieldCount: 9}}
		}, core.ErrCaseCountExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := rawFields()
			tc.mutate(f)
			_, err := Normalize(core.RawRecord{ID: "bad", StoredAt: stored, Fields: f})
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
			if tc.cause != nil && !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}
		})
	}

	if _, err := Normalize(core.RawRecord{ID: "nil"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected error for nil document, got %v", err)
	}
}

func TestBuildSnapshotDropsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentNormalize})

	bad := rawFields()
	delete(bad, core.FieldTreatments)
	raws := []core.RawRecord{
		{ID: "good-1", StoredAt: time.Now(), Fields: rawFields()},
		{ID: "broken", StoredAt: time.Now(), Fields: bad},
		{ID: "good-2", StoredAt: time.Now(), Fields: rawFields()},
	}
	snap := BuildSnapshot(raws, logger)
	if len(snap.Records) != 2 || snap.Dropped != 1 {
		t.Fatalf("expected 2 records and 1 drop, got %d/%d", len(snap.Records), snap.Dropped)
	}
	if snap.Records[0].ID != "good-1" || snap.Records[1].ID != "good-2" {
		t.Fatalf("unexpected order: %+v", snap.Records)
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Fatalf("expected drop to be logged, got %q", buf.String())
	}

	empty := BuildSnapshot(nil, nil)
	if empty.Records == nil || len(empty.Records) != 0 {
		t.Fatalf("expected empty non-nil snapshot")
	}
}

func TestFieldsRoundTripThroughNormalize(t *testing.T) {
	r := rec("rt", core.NewDate(2024, 6, 1), "F", "O", "V", "Sapi", "D", 2,
		core.Treatment{Category: "Antibiotik", Medicine: "Oxytetracycline", Dose: 10, Unit: "ml"})
	got, err := Normalize(core.RawRecord{ID: r.ID, StoredAt: r.Date.Time, Fields: r.Fields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Treatments[0] != r.Treatments[0] || got.CaseDevelopments[0] != r.CaseDevelopments[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, r)
	}
}
