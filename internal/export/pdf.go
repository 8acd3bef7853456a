package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const ContentTypePDF = "application/pdf"

const (
	pdfMargin     = 10.0
	pdfRowHeight  = 5.0
	pdfBlankSpace = 3.0
	pdfFontSize   = 7.0
	// Upper bound on millimetres per character of column width.
	pdfMaxCharWidth = 2.2
)

// EncodePDF writes wb as a landscape A4 document, one section per sheet,
// preserving row order and column proportions.
func EncodePDF(w io.Writer, wb *Workbook) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if wb.Empty() {
		pdf.AddPage()
	}
	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pdfMargin

	for _, s := range wb.Sheets {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, tr(s.Name), "", 1, "L", false, 0, "")

		widths := columnWidths(s.Widths, usable)
		for _, row := range s.Rows {
			switch row.Kind {
			case RowBlank:
				pdf.Ln(pdfBlankSpace)
			case RowTitle:
				pdf.SetFont("Helvetica", "B", pdfFontSize+1)
				pdf.CellFormat(0, pdfRowHeight+1, tr(firstCell(row)), "", 1, "L", false, 0, "")
			case RowHeader:
				pdf.SetFont("Helvetica", "B", pdfFontSize)
				pdf.SetFillColor(230, 230, 230)
				writePDFRow(pdf, tr, row.Cells, widths, true)
			default:
				pdf.SetFont("Helvetica", "", pdfFontSize)
				writePDFRow(pdf, tr, row.Cells, widths, false)
			}
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writePDFRow(pdf *fpdf.Fpdf, tr func(string) string, cells []string, widths []float64, fill bool) {
	for i, cell := range cells {
		width := pdfMaxCharWidth * 10
		if i < len(widths) {
			width = widths[i]
		}
		pdf.CellFormat(width, pdfRowHeight, tr(cell), "1", 0, "L", fill, 0, "")
	}
	pdf.Ln(pdfRowHeight)
}

// columnWidths scales character widths to millimetres so the row fits usable.
func columnWidths(chars []int, usable float64) []float64 {
	total := 0
	for _, c := range chars {
		total += c
	}
	out := make([]float64, len(chars))
	if total == 0 {
		return out
	}
	perChar := usable / float64(total)
	if perChar > pdfMaxCharWidth {
		perChar = pdfMaxCharWidth
	}
	for i, c := range chars {
		out[i] = float64(c) * perChar
	}
	return out
}

func firstCell(row Row) string {
	if len(row.Cells) == 0 {
		return ""
	}
	return row.Cells[0]
}
