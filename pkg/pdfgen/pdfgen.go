package pdfgen

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ReceiptData is the snapshot handed to the renderer. The renderer never
// reads from storage; everything it needs is copied in.
type ReceiptData struct {
	ReceiptNumber string
	Title         string
	ReceiptDate   time.Time
	PaymentMethod string
	TransactionID string

	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	CustomerGSTIN   string

	CompanyName    string
	CompanyAddress string
	CompanyGSTIN   string
	CompanyPAN     string

	Currency string
	Items    []ItemData

	SubTotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	TaxableAmount decimal.Decimal
	CGSTAmount    decimal.Decimal
	SGSTAmount    decimal.Decimal
	IGSTAmount    decimal.Decimal
	TotalTax      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// ItemData is one rendered line item
type ItemData struct {
	Name       string
	HSNCode    string
	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	Discount   decimal.Decimal
	TaxRate    decimal.Decimal
	GrandTotal decimal.Decimal
}

// Renderer turns receipt data into a PDF document. Implementations must
// respect context cancellation; a timed-out render returns ctx.Err().
type Renderer interface {
	Render(ctx context.Context, data *ReceiptData) ([]byte, error)
}

// FPDFRenderer renders receipts with gofpdf
type FPDFRenderer struct{}

// NewFPDFRenderer creates a new gofpdf-backed renderer
func NewFPDFRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

type renderResult struct {
	pdf []byte
	err error
}

// Render produces the PDF in a worker goroutine so the caller's deadline
// is honored. On timeout the caller sees ctx.Err() and no artifact; the
// abandoned worker finishes and its output is discarded.
func (r *FPDFRenderer) Render(ctx context.Context, data *ReceiptData) ([]byte, error) {
	done := make(chan renderResult, 1)
	go func() {
		pdf, err := r.render(data)
		done <- renderResult{pdf: pdf, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.pdf, res.err
	}
}

func (r *FPDFRenderer) render(data *ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "PAYMENT RECEIPT")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, data.CompanyName)
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	if data.CompanyAddress != "" {
		pdf.Cell(0, 5, data.CompanyAddress)
		pdf.Ln(5)
	}
	if data.CompanyGSTIN != "" {
		pdf.Cell(0, 5, "GSTIN: "+data.CompanyGSTIN)
		pdf.Ln(5)
	}
	if data.CompanyPAN != "" {
		pdf.Cell(0, 5, "PAN: "+data.CompanyPAN)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, "Receipt No: RCP-"+data.ReceiptNumber)
	pdf.Cell(95, 6, "Date: "+data.ReceiptDate.Format("02 Jan 2006"))
	pdf.Ln(6)
	if data.PaymentMethod != "" {
		pdf.Cell(95, 6, "Payment Method: "+data.PaymentMethod)
	}
	if data.TransactionID != "" {
		pdf.Cell(95, 6, "Transaction: "+data.TransactionID)
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Received From")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, data.CustomerName)
	pdf.Ln(5)
	if data.CustomerEmail != "" {
		pdf.Cell(0, 5, data.CustomerEmail)
		pdf.Ln(5)
	}
	if data.CustomerAddress != "" {
		pdf.Cell(0, 5, data.CustomerAddress)
		pdf.Ln(5)
	}
	if data.CustomerGSTIN != "" {
		pdf.Cell(0, 5, "GSTIN: "+data.CustomerGSTIN)
		pdf.Ln(5)
	}
	pdf.Ln(6)

	// Line item table
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(60, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "HSN", "1", 0, "L", true, 0, "")
	pdf.CellFormat(18, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(28, 7, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(22, 7, "Disc.", "1", 0, "R", true, 0, "")
	pdf.CellFormat(14, 7, "Tax%", "1", 0, "R", true, 0, "")
	pdf.CellFormat(28, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, it := range data.Items {
		pdf.CellFormat(60, 7, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, it.HSNCode, "1", 0, "L", false, 0, "")
		pdf.CellFormat(18, 7, it.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 7, money(data.Currency, it.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, money(data.Currency, it.Discount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(14, 7, it.TaxRate.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 7, money(data.Currency, it.GrandTotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totalRow := func(label string, amount decimal.Decimal, bold bool) {
		if bold {
			pdf.SetFont("Arial", "B", 10)
		} else {
			pdf.SetFont("Arial", "", 9)
		}
		pdf.CellFormat(134, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, money(data.Currency, amount), "", 1, "R", false, 0, "")
	}

	totalRow("Subtotal", data.SubTotal, false)
	if !data.TotalDiscount.IsZero() {
		totalRow("Discount", data.TotalDiscount.Neg(), false)
		totalRow("Taxable", data.TaxableAmount, false)
	}
	if !data.CGSTAmount.IsZero() || !data.SGSTAmount.IsZero() {
		totalRow("CGST", data.CGSTAmount, false)
		totalRow("SGST", data.SGSTAmount, false)
	}
	if !data.IGSTAmount.IsZero() {
		totalRow("IGST", data.IGSTAmount, false)
	}
	totalRow("Total Tax", data.TotalTax, false)
	totalRow("Grand Total", data.GrandTotal, true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func money(currency string, amount decimal.Decimal) string {
	return currency + " " + amount.StringFixed(2)
}
