package event

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

// RosterPDF renders a printable roster sheet for one class of an event.
func RosterPDF(evt Event, cls Class) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, evt.Name)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("%s - %s", evt.Venue, evt.StartsAt.Format("Mon, 02 Jan 2006 15:04")))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 13)
	title := cls.Name
	if cls.Instrument != "" {
		title += " (" + cls.Instrument + ")"
	}
	pdf.Cell(0, 9, title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 7, "Student", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, "Signed up", "1", 0, "L", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for i, entry := range cls.Roster {
		pdf.CellFormat(12, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 7, entry.StudentName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, entry.AddedAt.Format("02 Jan 2006"), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("%d of %d slots filled", len(cls.Roster), cls.Slots))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering roster pdf")
	}
	return buf.Bytes(), nil
}
