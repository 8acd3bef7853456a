package export

import (
	"testing"

	"github.com/shopspring/decimal"

	"keswan/internal/core"
)

func TestRecapWorkbookLayout(t *testing.T) {
	var cases core.CaseTally
	cases.Increment("Desa B", "Sapi", "Scabies", 2)
	cases.Increment("Desa A", "Kambing", "Diare", 1)
	recap := core.RecapData{
		Cases: cases,
		Medicines: map[string]core.MedicineTotal{
			"Vitamin B":  {Total: decimal.RequireFromString("1234.5"), Unit: "ml"},
			"Ivermectin": {Total: decimal.RequireFromString("2.5"), Unit: "ml"},
		},
	}

	wb := RecapWorkbook(recap, "Rekap Januari 2024")
	if len(wb.Sheets) != 1 {
		t.Fatalf("expected one sheet, got %d", len(wb.Sheets))
	}
	rows := wb.Sheets[0].Rows

	want := []Row{
		{Kind: RowTitle, Cells: []string{"Rekap Kasus"}},
		{Kind: RowHeader, Cells: []string{"Desa", "Jenis Ternak", "Diagnosa", "Jumlah"}},
		{Kind: RowData, Cells: []string{"Desa A", "Kambing", "Diare", "1"}},
		{Kind: RowData, Cells: []string{"Desa B", "Sapi", "Scabies", "2"}},
		{Kind: RowBlank},
		{Kind: RowTitle, Cells: []string{"Rekap Obat"}},
		{Kind: RowHeader, Cells: []string{"Nama Obat", "Total Dosis", "Satuan"}},
		{Kind: RowData, Cells: []string{"Ivermectin", "2,50", "ml"}},
		{Kind: RowData, Cells: []string{"Vitamin B", "1.234,50", "ml"}},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i].Kind != want[i].Kind || len(rows[i].Cells) != len(want[i].Cells) {
			t.Fatalf("row %d: got %+v want %+v", i, rows[i], want[i])
		}
		for j := range want[i].Cells {
			if rows[i].Cells[j] != want[i].Cells[j] {
				t.Errorf("row %d cell %d: got %q want %q", i, j, rows[i].Cells[j], want[i].Cells[j])
			}
		}
	}
}

func TestRecapWorkbookEmptyRecap(t *testing.T) {
	wb := RecapWorkbook(core.RecapData{}, "Rekap")
	rows := wb.Sheets[0].Rows
	if len(rows) != 5 {
		t.Fatalf("expected titles, headers and spacer only, got %d rows", len(rows))
	}
}

func TestStatsWorkbook(t *testing.T) {
	items := []core.StatItem{
		{Label: "Budi", Count: 3, Percentage: 75},
		{Label: "Ani", Count: 1, Percentage: 25},
	}
	wb := StatsWorkbook("Statistik Petugas", "Petugas", items)
	rows := wb.Sheets[0].Rows
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[2].Cells[0] != "Budi" || rows[2].Cells[1] != "3" || rows[2].Cells[2] != "75,00%" {
		t.Fatalf("unexpected row: %v", rows[2].Cells)
	}
}
