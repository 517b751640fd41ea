package order

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

// PackingListPDF renders the supplier packing list for a batch: the summary
// totals followed by the per-student detail lines.
func PackingListPDF(b Batch, orders []Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Clothing Batch #%d", b.Number))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Cutoff: %s - %d orders", b.Cutoff.Format("Mon, 02 Jan 2006 15:04"), len(orders)))
	pdf.Ln(12)

	// summary totals
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Totals")
	pdf.Ln(9)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 7, "Garment", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Size", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range Summarize(orders) {
		pdf.CellFormat(60, 7, line.Garment, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, line.Size, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	// detail lines
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Detail")
	pdf.Ln(9)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 7, "Student", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, "Garment", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Size", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, ord := range orders {
		pdf.CellFormat(70, 7, ord.StudentName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, ord.Garment, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, ord.Size, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", ord.Quantity), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering packing list pdf")
	}
	return buf.Bytes(), nil
}
