package google

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"keswan/internal/export"
	ports "keswan/internal/sheets"
)

// Google Sheets rejects tab titles longer than this.
const maxTabTitle = 100

// referenceHeaders lists the accepted column headers for each list.
var referenceHeaders = map[ports.ReferenceList][]string{
	ports.Facilities: {"Fasilitas", "Puskeswan", "Facility"},
	ports.Officers:   {"Petugas", "Officer"},
	ports.Villages:   {"Desa", "Village"},
}

// parseReferenceColumn extracts the values below the header naming list.
// Blank and "#" rows are skipped and duplicates dropped, preserving order.
func parseReferenceColumn(values [][]interface{}, list ports.ReferenceList) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	col := -1
	for _, h := range referenceHeaders[list] {
		if col = indexOf(headers, h); col != -1 {
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("unexpected reference header: missing %s; got headers=%v", list, headers)
	}

	seen := map[string]struct{}{}
	var out []string
	for _, row := range values[1:] {
		v := safeGet(toStrings(row), col)
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// sheetValues converts a laid out sheet into the values matrix the API
// expects. Blank rows become a single empty cell so row positions hold.
func sheetValues(s *export.Sheet) [][]interface{} {
	out := make([][]interface{}, 0, len(s.Rows))
	for _, row := range s.Rows {
		if row.Kind == export.RowBlank || len(row.Cells) == 0 {
			out = append(out, []interface{}{""})
			continue
		}
		cells := make([]interface{}, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c
		}
		out = append(out, cells)
	}
	return out
}

// tabName joins the publication title and the sheet name.
func tabName(title, sheet string) string {
	title = strings.TrimSpace(title)
	name := sheet
	if title != "" {
		name = title + " - " + sheet
	}
	if utf8.RuneCountInString(name) > maxTabTitle {
		name = string([]rune(name)[:maxTabTitle])
	}
	return name
}

// quoteTab quotes a tab title for use in A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
