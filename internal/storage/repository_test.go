package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"keswan/internal/core"
	"keswan/internal/report"
	"keswan/internal/sheets"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keswan.db")
	repo, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func testRecord() core.ServiceRecord {
	return core.ServiceRecord{
		Date:           core.NewDate(2024, 3, 2),
		Facility:       "Puskeswan Kota",
		Officer:        "Budi",
		OwnerName:      "Pak Slamet",
		OwnerAddress:   "Desa A",
		Species:        "Sapi",
		LivestockCount: 3,
		Diagnosis:      "Scabies",
		TreatmentType:  "Injeksi",
		Treatments:     []core.Treatment{{Category: "Antiparasit", Medicine: "Ivermectin", Dose: 2.5, Unit: "ml"}},
		CaseDevelopments: []core.CaseDevelopment{
			{Status: "Sembuh", Count: 2},
			{Status: "Dalam Perawatan", Count: 1},
		},
	}
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 || dirty {
		t.Fatalf("got version %d dirty=%v", v, dirty)
	}
	// a second run is a no-op
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testRecord())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	raws, err := repo.ListRaw(ctx)
	if err != nil {
		t.Fatalf("ListRaw: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 record, got %d", len(raws))
	}

	got, err := report.Normalize(raws[0])
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.ID != created.ID || !got.Date.Equal(created.Date.Time) {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if got.Treatments[0].Dose != 2.5 || got.Treatments[0].Unit != "ml" {
		t.Fatalf("treatment lost: %+v", got.Treatments)
	}
	if len(got.CaseDevelopments) != 2 || got.CaseDevelopments[1].Count != 1 {
		t.Fatalf("case developments lost: %+v", got.CaseDevelopments)
	}
}

func TestListOrdersByServiceDate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	later := testRecord()
	later.ID = "a"
	later.Date = core.NewDate(2024, 5, 1)
	earlier := testRecord()
	earlier.ID = "b"
	earlier.Date = core.NewDate(2023, 12, 31)

	for _, r := range []core.ServiceRecord{later, earlier} {
		if _, err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	raws, err := repo.ListRaw(ctx)
	if err != nil {
		t.Fatalf("ListRaw: %v", err)
	}
	if raws[0].ID != "b" || raws[1].ID != "a" {
		t.Fatalf("unexpected order: %s, %s", raws[0].ID, raws[1].ID)
	}
	if !raws[0].StoredAt.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", raws[0].StoredAt)
	}
}

func TestReplaceAndDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, testRecord())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Diagnosis = "Bloat"
	if err := repo.Replace(ctx, created); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	raw, err := repo.GetRaw(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if raw.Fields[core.FieldDiagnosis] != "Bloat" {
		t.Fatalf("replace not applied: %v", raw.Fields[core.FieldDiagnosis])
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetRaw(ctx, created.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	missing := testRecord()
	missing.ID = "missing"
	if err := repo.Replace(ctx, missing); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected not found on replace, got %v", err)
	}
}

func TestCorruptPayloadIsDroppedByNormalization(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, testRecord()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO service_records (id, service_on, payload, created_at, updated_at) VALUES ('bad', '2024-01-01T00:00:00Z', '{not json', '', '')`)
	if err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	raws, err := repo.ListRaw(ctx)
	if err != nil {
		t.Fatalf("ListRaw: %v", err)
	}
	snap := report.BuildSnapshot(raws, nil)
	if len(snap.Records) != 1 || snap.Dropped != 1 {
		t.Fatalf("got %d records, %d dropped", len(snap.Records), snap.Dropped)
	}
}

func TestSeedReferences(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SeedReferences(ctx, sheets.Facilities, []string{"Puskeswan Kota", "Pos Alfa", "Puskeswan Kota"}); err != nil {
		t.Fatalf("SeedReferences: %v", err)
	}
	got, err := repo.References(ctx, sheets.Facilities)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(got) != 2 || got[0] != "Puskeswan Kota" || got[1] != "Pos Alfa" {
		t.Fatalf("unexpected list: %v", got)
	}

	officers, err := repo.References(ctx, sheets.Officers)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(officers) != 0 {
		t.Fatalf("expected empty officers list, got %v", officers)
	}
}
