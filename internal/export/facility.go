package export

import (
	"sort"
	"strconv"
	"strings"

	"keswan/internal/core"
)

// FacilityColumns is the header row of every officer group.
var FacilityColumns = []string{
	"No", "Tanggal", "Nama Pemilik", "Desa", "Jenis Ternak", "Jumlah Ternak",
	"Gejala Klinis", "Diagnosa", "Jenis Penanganan", "Pengobatan", "Perkembangan Kasus",
}

// officerGroupSpacing is the number of blank rows after each officer group.
const officerGroupSpacing = 2

// FacilityWorkbook renders one sheet per facility. Sheets follow the order
// of facilities; facilities missing from that list come after it in
// lexicographic order. Facilities without records get no sheet.
func FacilityWorkbook(records []core.ServiceRecord, facilities []string) *Workbook {
	partitions := make(map[string][]core.ServiceRecord)
	for _, r := range records {
		key := strings.TrimSpace(r.Facility)
		partitions[key] = append(partitions[key], r)
	}

	order := make([]string, 0, len(partitions))
	listed := make(map[string]bool, len(facilities))
	for _, f := range facilities {
		f = strings.TrimSpace(f)
		if listed[f] {
			continue
		}
		listed[f] = true
		order = append(order, f)
	}
	var extra []string
	for f := range partitions {
		if !listed[f] {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	wb := &Workbook{}
	for _, facility := range order {
		part := partitions[facility]
		if len(part) == 0 {
			continue
		}
		sheet := wb.AddSheet(facility)
		writeFacilitySheet(sheet, part)
		sheet.AutoSize()
	}
	return wb
}

func writeFacilitySheet(sheet *Sheet, records []core.ServiceRecord) {
	sorted := append([]core.ServiceRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if oa, ob := strings.TrimSpace(a.Officer), strings.TrimSpace(b.Officer); oa != ob {
			return oa < ob
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.ID < b.ID
	})

	for start := 0; start < len(sorted); {
		officer := strings.TrimSpace(sorted[start].Officer)
		end := start
		for end < len(sorted) && strings.TrimSpace(sorted[end].Officer) == officer {
			end++
		}
		sheet.Title(officer)
		sheet.Header(FacilityColumns...)
		for i, r := range sorted[start:end] {
			sheet.Data(
				strconv.Itoa(i+1),
				r.Date.Short(),
				r.OwnerName,
				r.Village(),
				r.SpeciesKey(),
				strconv.Itoa(r.LivestockCount),
				r.Symptoms,
				r.DiagnosisKey(),
				r.TreatmentType,
				treatmentsCell(r.Treatments),
				caseDevelopmentsCell(r.CaseDevelopments),
			)
		}
		sheet.Blank(officerGroupSpacing)
		start = end
	}
}
