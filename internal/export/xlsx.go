package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of EncodeXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheetName = "Sheet1"

// EncodeXLSX writes wb as an Excel workbook. An empty workbook still yields
// a valid file holding the default sheet.
func EncodeXLSX(w io.Writer, wb *Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, s := range wb.Sheets {
		if i == 0 {
			if s.Name != defaultSheetName {
				if err := f.SetSheetName(defaultSheetName, s.Name); err != nil {
					return fmt.Errorf("rename sheet %q: %w", s.Name, err)
				}
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			return fmt.Errorf("write sheet %q: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s *Sheet, boldStyle int) error {
	for i, row := range s.Rows {
		if row.Kind == RowBlank || len(row.Cells) == 0 {
			continue
		}
		rowNum := i + 1
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row.Cells))
		for j, v := range row.Cells {
			values[j] = v
		}
		if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
			return err
		}
		if row.Kind == RowTitle || row.Kind == RowHeader {
			if err := f.SetRowStyle(s.Name, rowNum, rowNum, boldStyle); err != nil {
				return err
			}
		}
	}
	for i, width := range s.Widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.Name, col, col, float64(width)); err != nil {
			return err
		}
	}
	return nil
}
