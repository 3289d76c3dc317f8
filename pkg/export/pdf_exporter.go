package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfPageWidth = 277.0 // A4 landscape minus margins

// PDFExporter renders a Dataset into a landscape tabular PDF. Column widths
// are sized from the widest cell, counting Hangul and other wide runes as
// two cells so Korean names do not overflow their column.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, translate(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	widths := columnWidths(data)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, col := range data.Columns {
		pdf.CellFormat(widths[i], 8, translate(col.Title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, col := range data.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			align := "L"
			if col.Numeric {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, translate(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths distributes the page width in proportion to each column's
// widest content.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Columns))
	total := 0.0
	for i, col := range data.Columns {
		w := displayWidth(col.Title)
		for _, row := range data.Rows {
			if i < len(row) && displayWidth(row[i]) > w {
				w = displayWidth(row[i])
			}
		}
		if w < 4 {
			w = 4
		}
		weights[i] = w
		total += w
	}

	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pdfPageWidth * w / total
	}
	return widths
}

// displayWidth approximates rendered width in character cells. Hangul
// syllables and jamo occupy two cells.
func displayWidth(s string) float64 {
	w := 0.0
	for _, r := range s {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3, // Hangul syllables
			r >= 0x1100 && r <= 0x11FF, // Hangul jamo
			r >= 0x3130 && r <= 0x318F: // compatibility jamo
			w += 2
		default:
			w++
		}
	}
	return w
}
