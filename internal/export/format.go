package export

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"keswan/internal/core"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatDose renders a dose total with two decimals and Indonesian digit
// grouping, e.g. 1234.5 -> "1.234,50".
func FormatDose(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// FormatQuantity renders a single dose without trailing zeros, using a
// decimal comma: 2.5 -> "2,5", 10 -> "10".
func FormatQuantity(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func treatmentsCell(ts []core.Treatment) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		part := strings.TrimSpace(t.Medicine) + " " + FormatQuantity(t.Dose)
		if u := strings.TrimSpace(t.Unit); u != "" {
			part += " " + u
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func caseDevelopmentsCell(cs []core.CaseDevelopment) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, strings.TrimSpace(c.Status)+" ("+strconv.Itoa(c.Count)+")")
	}
	return strings.Join(parts, "; ")
}
