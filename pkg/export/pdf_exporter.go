package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const utf8Family = "schedule-utf8"

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath points at a UTF-8 TrueType
// font; when empty the core Arial font is used and non-Latin glyphs degrade.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with an optional title and table body.
// widths holds relative column weights; nil means equal columns.
func (e *PDFExporter) Render(data Dataset, title string, widths []float64) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)

	family := "Arial"
	text := func(s string) string { return s }
	if e.fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", e.fontPath)
		pdf.AddUTF8Font(utf8Family, "B", e.fontPath)
		family = utf8Family
	} else {
		text = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	cols := columnWidths(len(data.Headers), widths, 277.0)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 13)
		pdf.CellFormat(0, 9, text(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont(family, "B", 9)
	for i, header := range data.Headers {
		pdf.CellFormat(cols[i], 7, text(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 8)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(cols[i], 6, text(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int, weights []float64, total float64) []float64 {
	out := make([]float64, n)
	if len(weights) != n {
		for i := range out {
			out[i] = total / float64(n)
		}
		return out
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}
