package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"keswan/internal/core"
)

// BuildRecap accumulates medicine dose totals and village/species/diagnosis
// case counts in one pass. No ordering is applied here.
func BuildRecap(records []core.ServiceRecord) core.RecapData {
	recap := core.RecapData{Medicines: make(map[string]core.MedicineTotal)}
	conflicts := make(map[string]bool)

	for _, r := range records {
		for _, t := range r.Treatments {
			name := strings.TrimSpace(t.Medicine)
			unit := strings.TrimSpace(t.Unit)
			total, ok := recap.Medicines[name]
			if !ok {
				total = core.MedicineTotal{Total: decimal.Zero, Unit: unit}
			} else if isGenericUnit(total.Unit) {
				if !isGenericUnit(unit) {
					total.Unit = unit
				}
			} else if !isGenericUnit(unit) && !strings.EqualFold(unit, total.Unit) && !conflicts[name] {
				conflicts[name] = true
				recap.UnitConflicts = append(recap.UnitConflicts, name)
			}
			total.Total = total.Total.Add(decimal.NewFromFloat(t.Dose))
			recap.Medicines[name] = total
		}
		recap.Cases.Increment(r.Village(), r.SpeciesKey(), r.DiagnosisKey(), int64(r.LivestockCount))
	}
	return recap
}

// isGenericUnit reports whether unit is the placeholder a more specific unit may replace.
func isGenericUnit(unit string) bool {
	unit = strings.TrimSpace(unit)
	return unit == "" || strings.EqualFold(unit, "unit")
}
