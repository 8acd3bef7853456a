package export

import (
	"strconv"

	"keswan/internal/core"
)

const (
	caseSectionTitle     = "Rekap Kasus"
	medicineSectionTitle = "Rekap Obat"
)

var (
	caseColumns     = []string{"Desa", "Jenis Ternak", "Diagnosa", "Jumlah"}
	medicineColumns = []string{"Nama Obat", "Total Dosis", "Satuan"}
)

// RecapWorkbook renders the case recap and the medicine recap stacked on a
// single sheet named after label.
func RecapWorkbook(recap core.RecapData, label string) *Workbook {
	wb := &Workbook{}
	sheet := wb.AddSheet(label)

	sheet.Title(caseSectionTitle)
	sheet.Header(caseColumns...)
	for _, row := range recap.Cases.Rows() {
		sheet.Data(row.Village, row.Species, row.Diagnosis, strconv.FormatInt(row.Count, 10))
	}

	sheet.Blank(1)

	sheet.Title(medicineSectionTitle)
	sheet.Header(medicineColumns...)
	for _, name := range recap.MedicineNames() {
		m := recap.Medicines[name]
		sheet.Data(name, FormatDose(m.Total), m.Unit)
	}

	sheet.AutoSize()
	return wb
}
