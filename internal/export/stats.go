package export

import (
	"strconv"

	"keswan/internal/core"
)

// StatsWorkbook renders a grouped statistic as a three-column table.
// labelColumn names the grouping dimension, e.g. "Petugas".
func StatsWorkbook(title, labelColumn string, items []core.StatItem) *Workbook {
	wb := &Workbook{}
	sheet := wb.AddSheet(title)
	sheet.Title(title)
	sheet.Header(labelColumn, "Jumlah", "Persentase")
	for _, it := range items {
		sheet.Data(it.Label, strconv.FormatInt(it.Count, 10), printer.Sprintf("%.2f%%", it.Percentage))
	}
	sheet.AutoSize()
	return wb
}
