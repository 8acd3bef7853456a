package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultCaseStatus is the outcome assumed for records stored before
// case development breakdowns existed.
const DefaultCaseStatus = "Sembuh"

type (
	Date struct {
		time.Time
	}

	Treatment struct {
		Category string
		Medicine string
		Dose     float64
		Unit     string
	}

	CaseDevelopment struct {
		Status string
		Count  int
	}

	// ServiceRecord is a single field visit by an officer of a facility.
	ServiceRecord struct {
		ID             string
		Date           Date
		Facility       string
		Officer        string
		OwnerName      string
		OwnerAddress   string // village
		Species        string
		LivestockCount int
		Symptoms       string
		Diagnosis      string
		TreatmentType  string
		Treatments     []Treatment
		// Optional for legacy records; never empty once normalized.
		CaseDevelopments []CaseDevelopment
	}
)

var (
	ErrInvalidDate           = errors.New("invalid date")
	ErrEmptyFacility         = errors.New("empty facility")
	ErrEmptyOfficer          = errors.New("empty officer")
	ErrEmptyOwner            = errors.New("empty owner name")
	ErrEmptyAddress          = errors.New("empty owner address")
	ErrEmptySpecies          = errors.New("empty livestock species")
	ErrEmptyDiagnosis        = errors.New("empty diagnosis")
	ErrInvalidLivestockCount = errors.New("livestock count must be positive")
	ErrNoTreatments          = errors.New("at least one treatment is required")
	ErrEmptyMedicine         = errors.New("empty medicine name")
	ErrInvalidDose           = errors.New("dose must be positive")
	ErrEmptyCaseStatus       = errors.New("empty case status")
	ErrInvalidCaseCount      = errors.New("case count must be positive")
	ErrCaseCountExceeded     = errors.New("case development counts exceed livestock count")

	ErrRecordNotFound = errors.New("record not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// MonthNumber returns the month of the year, 1-12.
func (d Date) MonthNumber() int {
	return int(d.Time.Month())
}

// Short formats the date as dd/mm/yyyy.
func (d Date) Short() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// Long formats the date with the Indonesian month name, e.g. "2 Januari 2024".
func (d Date) Long() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", d.Day(), MonthName(d.MonthNumber()), d.Year())
}

func (t Treatment) Validate() error {
	if strings.TrimSpace(t.Medicine) == "" {
		return ErrEmptyMedicine
	}
	if !(t.Dose > 0) || math.IsInf(t.Dose, 1) {
		return ErrInvalidDose
	}
	return nil
}

func (c CaseDevelopment) Validate() error {
	if strings.TrimSpace(c.Status) == "" {
		return ErrEmptyCaseStatus
	}
	if c.Count <= 0 {
		return ErrInvalidCaseCount
	}
	return nil
}

func (r ServiceRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	required := []struct {
		value string
		err   error
	}{
		{r.Facility, ErrEmptyFacility},
		{r.Officer, ErrEmptyOfficer},
		{r.OwnerName, ErrEmptyOwner},
		{r.OwnerAddress, ErrEmptyAddress},
		{r.Species, ErrEmptySpecies},
		{r.Diagnosis, ErrEmptyDiagnosis},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.err
		}
	}
	if r.LivestockCount <= 0 {
		return ErrInvalidLivestockCount
	}
	if len(r.Treatments) == 0 {
		return ErrNoTreatments
	}
	for i, t := range r.Treatments {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("treatment %d: %w", i+1, err)
		}
	}
	total := 0
	for i, c := range r.CaseDevelopments {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("case development %d: %w", i+1, err)
		}
		total += c.Count
	}
	if total > r.LivestockCount {
		return fmt.Errorf("%w: %d > %d", ErrCaseCountExceeded, total, r.LivestockCount)
	}
	return nil
}

// Village returns the trimmed owner address used as the geographic key.
func (r ServiceRecord) Village() string {
	return strings.TrimSpace(r.OwnerAddress)
}

func (r ServiceRecord) SpeciesKey() string {
	return strings.TrimSpace(r.Species)
}

func (r ServiceRecord) DiagnosisKey() string {
	return strings.TrimSpace(r.Diagnosis)
}
