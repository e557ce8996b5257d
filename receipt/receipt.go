// Package receipt renders a printable PDF for a placed order. Amounts are
// the server's figures; nothing is recomputed.
package receipt

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/phpdave11/gofpdf"

	"storefront/model"
)

// Render writes the receipt for o to w.
func Render(o model.Order, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order "+o.ID, false)
	pdf.SetAuthor("FashionHub", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Order     : "+tr(o.ID))
	pdf.Ln(6)
	placed := "-"
	if !o.CreatedAt.IsZero() {
		placed = o.CreatedAt.Format("2006-01-02 15:04")
	}
	pdf.Cell(0, 6, "Placed    : "+placed)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status    : "+string(o.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Ship to:")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(safe(o.ShippingAddress, "-")), "", "", false)
	if notes := strings.TrimSpace(o.Notes); notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr("Notes: "+notes), "", "", false)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(95, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range o.Items {
		pdf.CellFormat(95, 7, tr(truncate(it.Name, 50)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, model.FormatUSD(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, model.FormatUSD(it.TotalPrice), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 8, fmt.Sprintf("%d item(s)", o.TotalItems), "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, "Total: "+model.FormatUSD(o.TotalAmount), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt %s: %w", o.ID, err)
	}
	return pdf.Output(w)
}

// Bytes renders o and returns the document with its download filename.
func Bytes(o model.Order) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := Render(o, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), Filename(o), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func Filename(o model.Order) string {
	id := unsafeChars.ReplaceAllString(o.ID, "_")
	if id == "" {
		id = "order"
	}
	return "RECEIPT_" + id + ".pdf"
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
