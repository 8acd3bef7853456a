package report

import (
	"keswan/internal/core"
)

func rec(id string, date core.Date, facility, officer, village, species, diagnosis string, count int, meds ...core.Treatment) core.ServiceRecord {
	if len(meds) == 0 {
		meds = []core.Treatment{{Medicine: "Vitamin B", Dose: 1, Unit: "ml"}}
	}
	return core.ServiceRecord{
		ID:               id,
		Date:             date,
		Facility:         facility,
		Officer:          officer,
		OwnerName:        "Owner " + id,
		OwnerAddress:     village,
		Species:          species,
		LivestockCount:   count,
		Diagnosis:        diagnosis,
		Treatments:       meds,
		CaseDevelopments: []core.CaseDevelopment{{Status: core.DefaultCaseStatus, Count: count}},
	}
}

func sampleRecords() []core.ServiceRecord {
	return []core.ServiceRecord{
		rec("1", core.NewDate(2024, 1, 5), "Puskeswan Kota", "Budi", "Desa A", "Sapi", "Scabies", 3),
		rec("2", core.NewDate(2024, 1, 20), "Puskeswan Kota", "Ani", "Desa B", "Kambing", "Diare", 2),
		rec("3", core.NewDate(2024, 2, 2), "Puskeswan Desa", "Budi", "Desa A ", "Sapi", "Scabies", 4),
		rec("4", core.NewDate(2023, 12, 31), "Puskeswan Desa", "Citra", "Desa C", "Ayam", "ND", 10),
		rec("5", core.NewDate(2024, 2, 14), "Puskeswan Kota", "Ani", "Desa B", "Sapi", "Bloat", 1),
	}
}
