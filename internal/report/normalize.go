// Package report turns stored service records into grouped statistics and
// recaps. Every function here is pure: inputs are never mutated and no
// state is shared between calls.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"keswan/internal/core"
	"keswan/internal/log"
)

// ErrInvalidRecord wraps every normalization failure.
var ErrInvalidRecord = errors.New("invalid record")

// Snapshot is the normalized record set of one report rendering.
type Snapshot struct {
	Records []core.ServiceRecord
	Dropped int
}

// BuildSnapshot normalizes raws, dropping and logging the ones that fail
// validation. It never fails: one corrupt document must not block a report.
func BuildSnapshot(raws []core.RawRecord, logger *log.Logger) Snapshot {
	snap := Snapshot{Records: make([]core.ServiceRecord, 0, len(raws))}
	for _, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			snap.Dropped++
			if logger != nil {
				logger.Warn("Dropping malformed record from snapshot",
					log.FieldRecordID, raw.ID,
					log.FieldOperation, log.OpNormalize,
					log.FieldError, err.Error())
			}
			continue
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap
}

// Normalize validates a stored document and converts it into a ServiceRecord.
func Normalize(raw core.RawRecord) (core.ServiceRecord, error) {
	f := raw.Fields
	if f == nil {
		return core.ServiceRecord{}, fmt.Errorf("%w: %s: empty document", ErrInvalidRecord, raw.ID)
	}
	rec := core.ServiceRecord{
		ID:            raw.ID,
		Date:          core.DateOf(raw.StoredAt),
		Facility:      str(f[core.FieldFacility]),
		Officer:       str(f[core.FieldOfficer]),
		OwnerName:     str(f[core.FieldOwnerName]),
		OwnerAddress:  str(f[core.FieldOwnerAddress]),
		Species:       str(f[core.FieldSpecies]),
		Symptoms:      str(f[core.FieldSymptoms]),
		Diagnosis:     str(f[core.FieldDiagnosis]),
		TreatmentType: str(f[core.FieldTreatmentType]),
	}

	count, err := optionalInt(f[core.FieldLivestockCount])
	if err != nil {
		return core.ServiceRecord{}, invalid(raw.ID, core.FieldLivestockCount, err)
	}
	rec.LivestockCount = count

	treatments, err := list(f[core.FieldTreatments])
	if err != nil {
		return core.ServiceRecord{}, invalid(raw.ID, core.FieldTreatments, err)
	}
	for i, item := range treatments {
		t, err := treatment(item)
		if err != nil {
			return core.ServiceRecord{}, invalid(raw.ID, fmt.Sprintf("%s[%d]", core.FieldTreatments, i), err)
		}
		rec.Treatments = append(rec.Treatments, t)
	}

	devs, err := list(f[core.FieldCaseDevelopments])
	if err != nil {
		return core.ServiceRecord{}, invalid(raw.ID, core.FieldCaseDevelopments, err)
	}
	for i, item := range devs {
		c, err := caseDevelopment(item)
		if err != nil {
			return core.ServiceRecord{}, invalid(raw.ID, fmt.Sprintf("%s[%d]", core.FieldCaseDevelopments, i), err)
		}
		rec.CaseDevelopments = append(rec.CaseDevelopments, c)
	}
	if len(rec.CaseDevelopments) == 0 {
		rec.CaseDevelopments = []core.CaseDevelopment{legacyCaseDevelopment(f, rec.LivestockCount)}
	}

	if err := rec.Validate(); err != nil {
		return core.ServiceRecord{}, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, raw.ID, err)
	}
	return rec, nil
}

// legacyCaseDevelopment synthesizes the single full-count entry older
// documents imply.
func legacyCaseDevelopment(f map[string]any, livestock int) core.CaseDevelopment {
	status := str(f[core.FieldLegacyCaseStatus])
	if status == "" {
		status = core.DefaultCaseStatus
	}
	count := livestock
	if count <= 0 {
		count = 1
	}
	return core.CaseDevelopment{Status: status, Count: count}
}

func treatment(v any) (core.Treatment, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return core.Treatment{}, fmt.Errorf("expected object, got %T", v)
	}
	dose, err := number(m[core.FieldDose])
	if err != nil {
		return core.Treatment{}, fmt.Errorf("%s: %w", core.FieldDose, err)
	}
	return core.Treatment{
		Category: str(m[core.FieldMedicineCategory]),
		Medicine: str(m[core.FieldMedicineName]),
		Dose:     dose,
		Unit:     str(m[core.FieldUnit]),
	}, nil
}

func caseDevelopment(v any) (core.CaseDevelopment, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return core.CaseDevelopment{}, fmt.Errorf("expected object, got %T", v)
	}
	count, err := optionalInt(m[core.FieldCount])
	if err != nil {
		return core.CaseDevelopment{}, fmt.Errorf("%s: %w", core.FieldCount, err)
	}
	return core.CaseDevelopment{Status: str(m[core.FieldStatus]), Count: count}, nil
}

func invalid(id, field string, err error) error {
	return fmt.Errorf("%w: %s: %s: %w", ErrInvalidRecord, id, field, err)
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func list(v any) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return core.ParseQuantity(n)
	case nil:
		return 0, errors.New("missing number")
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// optionalInt treats a missing value as 0 and rejects fractional counts.
func optionalInt(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	f, err := number(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("expected whole number, got %v", f)
	}
	return int(f), nil
}
