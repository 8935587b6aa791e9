// Package pdf renders simple tabular reports.
package pdf

import (
	"errors"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 190.0
	lineHeight = 7.0
)

// KV is a label/value line in the summary block.
type KV struct {
	Label string
	Value string
}

type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Widths in mm; columns share the page width evenly when empty.
	Widths []float64
}

type Document struct {
	Title    string
	Subtitle string
	Summary  []KV
	Tables   []Table
}

func Render(w io.Writer, doc Document) error {
	if doc.Title == "" {
		return errors.New("document title is required")
	}

	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(doc.Title, true)
	p.AddPage()

	p.SetFont("Helvetica", "B", 16)
	p.CellFormat(pageWidth, 10, doc.Title, "", 1, "L", false, 0, "")
	if doc.Subtitle != "" {
		p.SetFont("Helvetica", "", 10)
		p.CellFormat(pageWidth, 6, doc.Subtitle, "", 1, "L", false, 0, "")
	}
	p.Ln(4)

	if len(doc.Summary) > 0 {
		for _, kv := range doc.Summary {
			p.SetFont("Helvetica", "B", 11)
			p.CellFormat(70, lineHeight, kv.Label, "", 0, "L", false, 0, "")
			p.SetFont("Helvetica", "", 11)
			p.CellFormat(pageWidth-70, lineHeight, kv.Value, "", 1, "L", false, 0, "")
		}
		p.Ln(4)
	}

	for _, table := range doc.Tables {
		renderTable(p, table)
		p.Ln(6)
	}

	if err := p.Error(); err != nil {
		return err
	}
	return p.Output(w)
}

func renderTable(p *fpdf.Fpdf, t Table) {
	if len(t.Headers) == 0 {
		return
	}
	widths := columnWidths(t)

	if t.Title != "" {
		p.SetFont("Helvetica", "B", 12)
		p.CellFormat(pageWidth, 8, t.Title, "", 1, "L", false, 0, "")
	}

	p.SetFont("Helvetica", "B", 10)
	p.SetFillColor(230, 230, 230)
	for i, h := range t.Headers {
		p.CellFormat(widths[i], lineHeight, h, "1", 0, "L", true, 0, "")
	}
	p.Ln(-1)

	p.SetFont("Helvetica", "", 10)
	if len(t.Rows) == 0 {
		p.CellFormat(pageWidth, lineHeight, "No data", "1", 1, "C", false, 0, "")
		return
	}
	for _, row := range t.Rows {
		for i := range t.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			align := "L"
			if i > 0 {
				align = "R"
			}
			p.CellFormat(widths[i], lineHeight, value, "1", 0, align, false, 0, "")
		}
		p.Ln(-1)
	}
}

func columnWidths(t Table) []float64 {
	if len(t.Widths) == len(t.Headers) {
		return t.Widths
	}
	widths := make([]float64, len(t.Headers))
	for i := range widths {
		widths[i] = pageWidth / float64(len(t.Headers))
	}
	return widths
}
