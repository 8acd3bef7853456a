// Package export lays aggregated report data out as sheet grids and encodes
// them as XLSX or PDF documents.
package export

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSheetNameLength is the spreadsheet limit on tab names.
const MaxSheetNameLength = 31

type RowKind int

const (
	RowData RowKind = iota
	RowTitle
	RowHeader
	RowBlank
)

type Row struct {
	Kind  RowKind
	Cells []string
}

// Sheet is one named grid. Widths holds one character width per column
// once AutoSize has run.
type Sheet struct {
	Name   string
	Rows   []Row
	Widths []int
}

// Workbook is an ordered set of sheets.
type Workbook struct {
	Sheets []*Sheet
	names  map[string]int
}

// AddSheet appends a sheet named after label. The name is sanitized and
// made unique within the workbook.
func (wb *Workbook) AddSheet(label string) *Sheet {
	if wb.names == nil {
		wb.names = make(map[string]int)
	}
	base := SheetName(label)
	name := base
	for n := 2; wb.names[name] > 0; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
	}
	wb.names[name]++
	s := &Sheet{Name: name}
	wb.Sheets = append(wb.Sheets, s)
	return s
}

// Empty reports whether the workbook has no sheets.
func (wb *Workbook) Empty() bool {
	return len(wb.Sheets) == 0
}

func (s *Sheet) Title(text string) {
	s.Rows = append(s.Rows, Row{Kind: RowTitle, Cells: []string{text}})
}

func (s *Sheet) Header(cells ...string) {
	s.Rows = append(s.Rows, Row{Kind: RowHeader, Cells: cells})
}

func (s *Sheet) Data(cells ...string) {
	s.Rows = append(s.Rows, Row{Kind: RowData, Cells: cells})
}

func (s *Sheet) Blank(n int) {
	for i := 0; i < n; i++ {
		s.Rows = append(s.Rows, Row{Kind: RowBlank})
	}
}

// AutoSize sets each column width to the longest header or data cell in
// that column plus two. Title and blank rows do not count.
func (s *Sheet) AutoSize() {
	var widths []int
	for _, row := range s.Rows {
		if row.Kind != RowHeader && row.Kind != RowData {
			continue
		}
		for i, cell := range row.Cells {
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}
	s.Widths = widths
}

var sheetNameReplacer = strings.NewReplacer(
	"/", "", "\\", "", "?", "", "*", "", ":", "", "[", "", "]", "",
)

// SheetName strips characters spreadsheets reject in tab names and
// truncates to MaxSheetNameLength runes.
func SheetName(label string) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(label))
	name = strings.TrimSpace(truncate(name, MaxSheetNameLength))
	if name == "" {
		return "Sheet"
	}
	return name
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
