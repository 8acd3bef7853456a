package core

import "time"

// RawRecord is a stored document before normalization. Fields holds the
// untyped key/value payload exactly as the backend returned it.
type RawRecord struct {
	ID       string
	StoredAt time.Time
	Fields   map[string]any
}

// Stored document keys.
const (
	FieldFacility         = "facility"
	FieldOfficer          = "officer"
	FieldOwnerName        = "ownerName"
	FieldOwnerAddress     = "ownerAddress"
	FieldSpecies          = "livestockType"
	FieldLivestockCount   = "livestockCount"
	FieldSymptoms         = "symptoms"
	FieldDiagnosis        = "diagnosis"
	FieldTreatmentType    = "treatmentType"
	FieldTreatments       = "treatments"
	FieldCaseDevelopments = "caseDevelopments"
	FieldLegacyCaseStatus = "caseStatus"

	FieldMedicineCategory = "medicineCategory"
	FieldMedicineName     = "medicineName"
	FieldDose             = "dose"
	FieldUnit             = "unit"
	FieldStatus           = "status"
	FieldCount            = "count"
)

// Fields renders a record back into the stored document shape. It is the
// inverse of normalization for every field except the date, which storage
// keeps as the record timestamp.
func (r ServiceRecord) Fields() map[string]any {
	treatments := make([]any, 0, len(r.Treatments))
	for _, t := range r.Treatments {
		treatments = append(treatments, map[string]any{
			FieldMedicineCategory: t.Category,
			FieldMedicineName:     t.Medicine,
			FieldDose:             t.Dose,
			FieldUnit:             t.Unit,
		})
	}
	fields := map[string]any{
		FieldFacility:       r.Facility,
		FieldOfficer:        r.Officer,
		FieldOwnerName:      r.OwnerName,
		FieldOwnerAddress:   r.OwnerAddress,
		FieldSpecies:        r.Species,
		FieldLivestockCount: r.LivestockCount,
		FieldSymptoms:       r.Symptoms,
		FieldDiagnosis:      r.Diagnosis,
		FieldTreatmentType:  r.TreatmentType,
		FieldTreatments:     treatments,
	}
	if len(r.CaseDevelopments) > 0 {
		devs := make([]any, 0, len(r.CaseDevelopments))
		for _, c := range r.CaseDevelopments {
			devs = append(devs, map[string]any{FieldStatus: c.Status, FieldCount: c.Count})
		}
		fields[FieldCaseDevelopments] = devs
	}
	return fields
}
