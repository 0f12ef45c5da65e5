package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateItems_IntraStateGST(t *testing.T) {
	calc := NewTaxCalculator()

	items, totals, err := calc.CalculateItems([]LineInput{
		{
			Name:     "Pro plan (monthly)",
			Quantity: dec("1"),
			Rate:     dec("99"),
			TaxRate:  dec("18"),
		},
	}, false)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.True(t, item.LineTotal.Equal(dec("99")), "line total %s", item.LineTotal)
	assert.True(t, item.TaxAmount.Equal(dec("17.82")), "tax %s", item.TaxAmount)
	assert.True(t, item.CGSTAmount.Equal(dec("8.91")), "cgst %s", item.CGSTAmount)
	assert.True(t, item.SGSTAmount.Equal(dec("8.91")), "sgst %s", item.SGSTAmount)
	assert.True(t, item.IGSTAmount.IsZero())
	assert.True(t, item.GrandTotal.Equal(dec("116.82")), "grand %s", item.GrandTotal)

	assert.True(t, totals.GrandTotal.Equal(dec("116.82")))
	assert.True(t, totals.TotalTax.Equal(dec("17.82")))
}

func TestCalculateItems_InterStateUsesIGST(t *testing.T) {
	calc := NewTaxCalculator()

	items, totals, err := calc.CalculateItems([]LineInput{
		{Name: "Consulting", Quantity: dec("1"), Rate: dec("1000"), TaxRate: dec("18")},
	}, true)
	require.NoError(t, err)

	item := items[0]
	assert.True(t, item.IGSTAmount.Equal(dec("180")))
	assert.True(t, item.CGSTAmount.IsZero())
	assert.True(t, item.SGSTAmount.IsZero())
	assert.True(t, totals.IGST.Equal(dec("180")))
	assert.True(t, totals.CGST.IsZero())
}

func TestCalculateItems_SplitHalvesAlwaysSumToTax(t *testing.T) {
	calc := NewTaxCalculator()

	// 6.25 @ 5% -> tax 0.31, an odd paisa that cannot split evenly
	items, _, err := calc.CalculateItems([]LineInput{
		{Name: "Odd paisa line", Quantity: dec("1"), Rate: dec("6.25"), TaxRate: dec("5")},
	}, false)
	require.NoError(t, err)

	item := items[0]
	assert.True(t, item.TaxAmount.Equal(dec("0.31")), "tax %s", item.TaxAmount)
	assert.True(t, item.CGSTAmount.Add(item.SGSTAmount).Equal(item.TaxAmount),
		"cgst %s + sgst %s != tax %s", item.CGSTAmount, item.SGSTAmount, item.TaxAmount)
}

func TestCalculateItems_PercentageDiscountWins(t *testing.T) {
	calc := NewTaxCalculator()

	items, _, err := calc.CalculateItems([]LineInput{
		{
			Name:               "Discounted line",
			Quantity:           dec("1"),
			Rate:               dec("200"),
			DiscountPercentage: dec("10"),
			DiscountAmount:     dec("50"), // ignored: percentage takes precedence
			TaxRate:            dec("18"),
		},
	}, false)
	require.NoError(t, err)

	item := items[0]
	assert.True(t, item.DiscountAmount.Equal(dec("20")), "discount %s", item.DiscountAmount)
	assert.True(t, item.TaxableAmount.Equal(dec("180")))
}

func TestCalculateItems_DiscountExceedsLineTotal(t *testing.T) {
	calc := NewTaxCalculator()

	_, _, err := calc.CalculateItems([]LineInput{
		{Name: "Over-discounted", Quantity: dec("1"), Rate: dec("100"), DiscountAmount: dec("150"), TaxRate: dec("18")},
	}, false)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrDiscountExceedsAmount, err)
}

func TestCalculateItems_ValidationErrors(t *testing.T) {
	calc := NewTaxCalculator()

	tests := []struct {
		name string
		line LineInput
	}{
		{"missing name", LineInput{Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("18")}},
		{"zero quantity", LineInput{Name: "x", Quantity: dec("0"), Rate: dec("10"), TaxRate: dec("18")}},
		{"negative rate", LineInput{Name: "x", Quantity: dec("1"), Rate: dec("-1"), TaxRate: dec("18")}},
		{"tax rate above 100", LineInput{Name: "x", Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("101")}},
		{"discount percent above 100", LineInput{Name: "x", Quantity: dec("1"), Rate: dec("10"), DiscountPercentage: dec("110"), TaxRate: dec("18")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := calc.CalculateItems([]LineInput{tc.line}, false)
			require.Error(t, err)
			require.True(t, apperror.IsAppError(err))
			appErr := apperror.GetAppError(err)
			assert.Equal(t, apperror.ErrInvalidLineItem.Code, appErr.Code)
			assert.NotEmpty(t, appErr.Errors)
		})
	}
}

func TestCalculateItems_EmptyLinesRejected(t *testing.T) {
	calc := NewTaxCalculator()

	_, _, err := calc.CalculateItems(nil, false)
	require.Error(t, err)
	require.True(t, apperror.IsAppError(err))
	assert.NotEmpty(t, apperror.GetAppError(err).Errors)
}

func TestCalculateItems_TotalsReconcileOnReceipt(t *testing.T) {
	calc := NewTaxCalculator()

	// Several awkwardly-rounding lines; totals must still reconcile exactly
	// because they are sums of the already-rounded lines.
	_, totals, err := calc.CalculateItems([]LineInput{
		{Name: "a", Quantity: dec("3"), Rate: dec("33.33"), TaxRate: dec("18")},
		{Name: "b", Quantity: dec("1"), Rate: dec("6.25"), TaxRate: dec("5")},
		{Name: "c", Quantity: dec("7"), Rate: dec("14.99"), DiscountPercentage: dec("12.5"), TaxRate: dec("28")},
	}, false)
	require.NoError(t, err)

	receipt := &entity.Receipt{
		SubTotal:      totals.SubTotal,
		TotalDiscount: totals.TotalDiscount,
		TaxableAmount: totals.TaxableAmount,
		TotalTax:      totals.TotalTax,
		GrandTotal:    totals.GrandTotal,
	}
	assert.True(t, receipt.TotalsReconcile())
	assert.True(t, totals.CGST.Add(totals.SGST).Equal(totals.TotalTax))
}

func TestCalculateItems_SortOrderDefaultsToPosition(t *testing.T) {
	calc := NewTaxCalculator()

	items, _, err := calc.CalculateItems([]LineInput{
		{Name: "first", Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("18")},
		{Name: "second", Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("18")},
		{Name: "pinned", Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("18"), SortOrder: 9},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 0, items[0].SortOrder)
	assert.Equal(t, 1, items[1].SortOrder)
	assert.Equal(t, 9, items[2].SortOrder)
}
