package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders agendas into a landscape table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

// column widths in mm, keyed by header; notes takes the remainder.
var pdfColumnWidths = map[string]float64{
	"id":        62,
	"title":     60,
	"date":      24,
	"start":     22,
	"end":       22,
	"series_id": 0,
}

// Render creates a PDF document with the agenda title and one row per event.
func (e *PDFExporter) Render(agenda Agenda) ([]byte, error) {
	data := agenda.Dataset()
	// ids are noise in print; keep the human columns only
	headers := []string{"date", "start", "end", "title", "notes"}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if agenda.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(agenda.Title), "", 1, "C", false, 0, "")
	}
	if !agenda.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 6, "Generated "+agenda.GeneratedAt.UTC().Format(time.RFC3339), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	widths := make([]float64, len(headers))
	fixed := 0.0
	for i, h := range headers {
		widths[i] = pdfColumnWidths[h]
		fixed += widths[i]
	}
	for i, h := range headers {
		if h == "notes" {
			widths[i] = usable - fixed
		}
	}

	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(data.Rows) == 0 {
		pdf.CellFormat(usable, 7, "No appointments in range", "1", 1, "C", false, 0, "")
	}
	for _, row := range data.Rows {
		for i, header := range headers {
			pdf.CellFormat(widths[i], 7, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
