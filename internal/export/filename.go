package export

import (
	"fmt"
	"strings"
	"time"

	"keswan/internal/core"
)

// Report kinds, used as filename prefixes.
const (
	KindFacility   = "Laporan"
	KindRecap      = "Rekap"
	KindStatistics = "Statistik"
)

// Filename builds "{kind}_{month}_{year}.{ext}" for the selected period.
func Filename(kind string, p core.Period, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_%s_%s.%s", kind, p.MonthLabel(), p.YearLabel(now), ext)
}
