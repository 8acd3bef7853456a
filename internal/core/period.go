package core

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// YearUnset means no year was chosen; labels fall back to the current year.
	YearUnset = 0
	// AllYears explicitly selects every year.
	AllYears  = -1
	AllMonths = 0
)

// Sentinel labels used in export filenames.
const (
	AllMonthsLabel = "SemuaBulan"
	AllYearsLabel  = "SemuaTahun"
)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the Indonesian name of month m (1-12), or "" when out of range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// MonthByName resolves an Indonesian month name (case-sensitive) to 1-12.
func MonthByName(name string) (int, bool) {
	for i, n := range monthNames {
		if n == name {
			return i + 1, true
		}
	}
	return 0, false
}

// Period selects a (year, month) pair where either component may be "all".
type Period struct {
	Year  int
	Month int // 1-12, or AllMonths
}

func (p Period) Validate() error {
	if p.Month < 0 || p.Month > 12 {
		return fmt.Errorf("invalid month: %d", p.Month)
	}
	if p.Year < AllYears {
		return fmt.Errorf("invalid year: %d", p.Year)
	}
	return nil
}

// HasYear reports whether a specific calendar year is selected.
func (p Period) HasYear() bool {
	return p.Year > 0
}

// HasMonth reports whether a specific month is selected.
func (p Period) HasMonth() bool {
	return p.Month >= 1 && p.Month <= 12
}

// Matches reports whether d falls inside the period.
func (p Period) Matches(d Date) bool {
	if p.HasYear() && d.Year() != p.Year {
		return false
	}
	if p.HasMonth() && d.MonthNumber() != p.Month {
		return false
	}
	return true
}

func (p Period) MonthLabel() string {
	if !p.HasMonth() {
		return AllMonthsLabel
	}
	return MonthName(p.Month)
}

// YearLabel returns the selected year, or the AllYears label when the
// records span every year. The year of now is used only when nothing was
// selected.
func (p Period) YearLabel(now time.Time) string {
	switch {
	case p.Year == AllYears, p.Year == YearUnset && p.HasMonth():
		return AllYearsLabel
	case p.HasYear():
		return strconv.Itoa(p.Year)
	default:
		return strconv.Itoa(now.Year())
	}
}

// MonthYearLabel formats a month key the way reports display it, e.g. "Januari 2024".
func MonthYearLabel(year, month int) string {
	return fmt.Sprintf("%s %d", MonthName(month), year)
}
