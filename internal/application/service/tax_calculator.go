package service

import (
	"github.com/shopspring/decimal"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

var (
	decimalHundred = decimal.NewFromInt(100)
	decimalTwo     = decimal.NewFromInt(2)
)

// LineInput is one raw line item before tax computation
type LineInput struct {
	Name        string
	Description string
	HSNCode     string
	Unit        string
	SortOrder   int

	Quantity decimal.Decimal
	Rate     decimal.Decimal

	// When both are set, the percentage wins and the fixed amount is ignored
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal

	TaxRate decimal.Decimal
}

// TaxTotals is the receipt-level aggregate of all computed lines
type TaxTotals struct {
	SubTotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	TaxableAmount decimal.Decimal
	CGST          decimal.Decimal
	SGST          decimal.Decimal
	IGST          decimal.Decimal
	TotalTax      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// TaxCalculator computes GST line amounts and receipt totals. It is pure:
// no storage, no clock, same inputs always produce the same outputs.
//
// Each line is rounded to 2 decimal places (half-up) after all of its
// arithmetic; receipt totals are sums of the rounded lines, so stored totals
// always reconcile against stored items exactly.
type TaxCalculator struct{}

// NewTaxCalculator creates a new tax calculator
func NewTaxCalculator() *TaxCalculator {
	return &TaxCalculator{}
}

// CalculateItems validates and computes every line, then aggregates totals.
// interState selects IGST; otherwise the tax splits evenly into CGST+SGST,
// with SGST absorbing the odd paisa so the halves always sum to the tax.
func (c *TaxCalculator) CalculateItems(lines []LineInput, interState bool) ([]entity.ReceiptItem, *TaxTotals, error) {
	if len(lines) == 0 {
		return nil, nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "items", Message: "at least one line item is required"},
		})
	}

	items := make([]entity.ReceiptItem, 0, len(lines))
	totals := &TaxTotals{
		SubTotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		TaxableAmount: decimal.Zero,
		CGST:          decimal.Zero,
		SGST:          decimal.Zero,
		IGST:          decimal.Zero,
		TotalTax:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}

	for i, line := range lines {
		item, err := c.calculateLine(&line, interState)
		if err != nil {
			return nil, nil, err
		}
		if item.SortOrder == 0 {
			item.SortOrder = i
		}

		totals.SubTotal = totals.SubTotal.Add(item.LineTotal)
		totals.TotalDiscount = totals.TotalDiscount.Add(item.DiscountAmount)
		totals.TaxableAmount = totals.TaxableAmount.Add(item.TaxableAmount)
		totals.CGST = totals.CGST.Add(item.CGSTAmount)
		totals.SGST = totals.SGST.Add(item.SGSTAmount)
		totals.IGST = totals.IGST.Add(item.IGSTAmount)
		totals.TotalTax = totals.TotalTax.Add(item.TaxAmount)
		totals.GrandTotal = totals.GrandTotal.Add(item.GrandTotal)

		items = append(items, *item)
	}

	return items, totals, nil
}

func (c *TaxCalculator) calculateLine(line *LineInput, interState bool) (*entity.ReceiptItem, error) {
	if err := c.validateLine(line); err != nil {
		return nil, err
	}

	lineTotal := line.Quantity.Mul(line.Rate).Round(2)

	// Percentage wins when both discount forms are supplied
	var discount decimal.Decimal
	if line.DiscountPercentage.IsPositive() {
		discount = lineTotal.Mul(line.DiscountPercentage).Div(decimalHundred).Round(2)
	} else {
		discount = line.DiscountAmount.Round(2)
	}
	if discount.GreaterThan(lineTotal) {
		return nil, apperror.ErrDiscountExceedsAmount
	}

	taxable := lineTotal.Sub(discount)
	tax := taxable.Mul(line.TaxRate).Div(decimalHundred).Round(2)

	var cgst, sgst, igst decimal.Decimal
	if interState {
		igst = tax
	} else {
		cgst = tax.Div(decimalTwo).Round(2)
		sgst = tax.Sub(cgst)
	}

	unit := line.Unit
	if unit == "" {
		unit = "Nos"
	}

	return &entity.ReceiptItem{
		Name:               line.Name,
		Description:        line.Description,
		HSNCode:            line.HSNCode,
		Unit:               unit,
		Quantity:           line.Quantity,
		Rate:               line.Rate,
		DiscountPercentage: line.DiscountPercentage,
		DiscountAmount:     discount,
		TaxRate:            line.TaxRate,
		LineTotal:          lineTotal,
		TaxableAmount:      taxable,
		CGSTAmount:         cgst,
		SGSTAmount:         sgst,
		IGSTAmount:         igst,
		TaxAmount:          tax,
		GrandTotal:         taxable.Add(tax),
		SortOrder:          line.SortOrder,
	}, nil
}

func (c *TaxCalculator) validateLine(line *LineInput) error {
	var fieldErrors []apperror.FieldError

	if line.Name == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "name is required"})
	}
	if !line.Quantity.IsPositive() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "quantity", Message: "quantity must be positive"})
	}
	if line.Rate.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "rate", Message: "rate cannot be negative"})
	}
	if line.DiscountPercentage.IsNegative() || line.DiscountPercentage.GreaterThan(decimalHundred) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "discount_percentage", Message: "discount percentage must be between 0 and 100"})
	}
	if line.DiscountAmount.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "discount_amount", Message: "discount amount cannot be negative"})
	}
	if line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(decimalHundred) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "tax_rate", Message: "tax rate must be between 0 and 100"})
	}

	if len(fieldErrors) > 0 {
		return &apperror.AppError{
			Code:    apperror.ErrInvalidLineItem.Code,
			Message: apperror.ErrInvalidLineItem.Message,
			Errors:  fieldErrors,
		}
	}
	return nil
}
