package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// TimetableGrid is a weekly grid of cell captions indexed [period-1][day].
type TimetableGrid struct {
	Title    string
	Days     []string
	Periods  int
	Cells    [][]string
	Subtitle string
}

// PDFExporter renders weekly timetables into landscape A4 pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws one page per grid.
func (e *PDFExporter) Render(grids []TimetableGrid) ([]byte, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("pdf requires at least one timetable")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, grid := range grids {
		if len(grid.Days) == 0 || grid.Periods <= 0 {
			return nil, fmt.Errorf("timetable %q has no days or periods", grid.Title)
		}
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(grid.Title), "", 1, "C", false, 0, "")
		if grid.Subtitle != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 6, tr(grid.Subtitle), "", 1, "C", false, 0, "")
		}
		pdf.Ln(3)

		periodWidth := 14.0
		colWidth := (277.0 - periodWidth) / float64(len(grid.Days))

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(periodWidth, 8, "", "1", 0, "C", true, 0, "")
		for _, day := range grid.Days {
			pdf.CellFormat(colWidth, 8, tr(day), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for period := 1; period <= grid.Periods; period++ {
			pdf.CellFormat(periodWidth, 14, fmt.Sprintf("%d.", period), "1", 0, "C", false, 0, "")
			for day := range grid.Days {
				pdf.CellFormat(colWidth, 14, tr(cell(grid.Cells, period-1, day)), "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(cells [][]string, row, col int) string {
	if row >= len(cells) || col >= len(cells[row]) {
		return ""
	}
	return cells[row][col]
}
