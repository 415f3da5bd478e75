// Package invoice renders completed payments into fixed-layout PDF
// documents on local disk.
package invoice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ErrRender covers any failure to produce or write the document. Callers
// treat it as non-fatal to payment acknowledgment.
var ErrRender = errors.New("invoice render failed")

// PDFRenderer writes invoices under a configured directory, one file per
// session, named invoice_<session_id>.pdf.
type PDFRenderer struct {
	dir string
}

func NewPDFRenderer(dir string) *PDFRenderer {
	return &PDFRenderer{dir: dir}
}

// Render produces the invoice document and returns its path. Output is
// deterministic in its displayed fields: the same session id and amount
// always yield the same session line and amount line.
func (r *PDFRenderer) Render(sessionID string, amount decimal.Decimal) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Invoice")
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Session ID: %s", sessionID))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Amount Paid: %s USD", amount.StringFixed(2)))

	path := filepath.Join(r.dir, fmt.Sprintf("invoice_%s.pdf", sessionID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	return path, nil
}
