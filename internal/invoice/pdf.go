package invoice

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"fieldforce/m/domain"
)

// RenderPDF draws a simple A4 invoice document from the stored snapshot
// fields and line items.
func RenderPDF(inv *domain.Invoice, items []domain.InvoiceItem) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Invoice "+inv.InvoiceNo)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	writeLine := func(label, value string) {
		if value == "" {
			return
		}
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	writeLine("Date", inv.InvoiceDate.Format("02 Jan 2006"))
	if inv.DueDate != nil {
		writeLine("Due", inv.DueDate.Format("02 Jan 2006"))
	}
	writeLine("Status", string(inv.Status))
	writeLine("Billed by", deref(inv.CompanyName))
	writeLine("Address", deref(inv.CompanyAddress))
	writeLine("GSTIN", deref(inv.CompanyGst))
	writeLine("Billed to", deref(inv.CustomerAddress))
	writeLine("Customer GSTIN", deref(inv.CustomerGst))
	pdf.Ln(4)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(15, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Discount", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Tax", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		pdf.CellFormat(70, 7, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, item.Discount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, item.Tax.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, item.LineTotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	writeLine("Subtotal", inv.Subtotal.StringFixed(2)+" "+inv.Currency)
	writeLine("Discount", inv.TotalDiscount.StringFixed(2))
	writeLine("Tax", inv.TaxAmount.StringFixed(2))
	writeLine("Shipping", inv.Shipping.StringFixed(2))
	writeLine("Total", inv.Total.StringFixed(2)+" "+inv.Currency)

	pdf.SetFont("Arial", "", 9)
	pdf.Ln(4)
	writeLine("Bank", deref(inv.BankName))
	writeLine("Account", deref(inv.BankAccountNumber))
	writeLine("IFSC", deref(inv.IfscCode))
	writeLine("UPI", deref(inv.UpiID))
	writeLine("Terms", deref(inv.TermsAndConditions))
	writeLine("Notes", deref(inv.Notes))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
