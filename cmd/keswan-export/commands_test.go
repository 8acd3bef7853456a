package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keswan/internal/cli"
	"keswan/internal/config"
	"keswan/internal/core"
	"keswan/internal/log"
)

// setupEnv points the CLI at a SQLite database holding two records.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "keswan.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", db)
	t.Setenv("DATA_DIR", dir)
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	app, err := cli.NewApp(context.Background(), &config.Config{
		DataBackend: config.BackendSQLite, SQLiteDBPath: db, DataDir: dir,
		ExportCacheSize: 1, ExportCacheTTL: time.Minute,
	}, log.Discard())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()
	for i, officer := range []string{"Ani", "Budi"} {
		r := core.ServiceRecord{
			Date: core.NewDate(2024, 1, 10+i), Facility: "Pos Alfa", Officer: officer,
			OwnerName: "Pak Udin", OwnerAddress: "Desa A", Species: "Sapi",
			LivestockCount: 1 + i, Diagnosis: "Scabies",
			Treatments: []core.Treatment{{Medicine: "Ivermectin", Dose: 1, Unit: "ml"}},
		}
		if _, err := app.Records.Create(context.Background(), r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecapToFile(t *testing.T) {
	dir := setupEnv(t)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "recap", "--year", "2024", "--month", "Januari", "--format", "pdf", "-o", outDir)
	if err != nil {
		t.Fatalf("recap: %v\n%s", err, out)
	}
	want := filepath.Join(outDir, "Rekap_Januari_2024.pdf")
	if strings.TrimSpace(out) != want {
		t.Fatalf("printed %q, want %q", out, want)
	}
	body, err := os.ReadFile(want)
	if err != nil || !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("unexpected output file: %v", err)
	}
}

func TestStatsPrint(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "stats", "--dimension", "officer", "--weight", "livestock", "--year", "all", "--print")
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Petugas") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "Budi") || !strings.Contains(lines[1], "66.67%") {
		t.Fatalf("Budi should lead with 2 of 3 animals:\n%s", out)
	}
}

func TestInvalidFlags(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "recap", "--month", "13"); err == nil {
		t.Fatal("expected error for month 13")
	}
	if _, err := run(t, "stats", "--dimension", "colour", "--print"); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}
