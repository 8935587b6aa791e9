package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceFreeShippingBoundary(t *testing.T) {
	pricing := Pricing{FreeShippingThreshold: decimal.NewFromInt(5000), FlatShippingFee: decimal.NewFromInt(200)}

	atThreshold := pricing.Price([]Line{{UnitPrice: decimal.NewFromInt(2500), Quantity: 2}})
	assert.True(t, atThreshold.ShippingCost.IsZero())
	assert.True(t, atThreshold.Total.Equal(decimal.NewFromInt(5000)))

	justBelow := pricing.Price([]Line{{UnitPrice: decimal.RequireFromString("4999.99"), Quantity: 1}})
	assert.True(t, justBelow.ShippingCost.Equal(decimal.NewFromInt(200)))
	assert.True(t, justBelow.Total.Equal(decimal.RequireFromString("5199.99")))
	assert.True(t, justBelow.Tax.IsZero())
}

func TestPriceSumsLineTotals(t *testing.T) {
	pricing := Pricing{FreeShippingThreshold: decimal.NewFromInt(5000), FlatShippingFee: decimal.NewFromInt(200)}
	quote := pricing.Price([]Line{
		{UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	})
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, quote.Total.Equal(quote.Subtotal.Add(quote.ShippingCost)))
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-2026-00001", FormatOrderNumber("ord", 2026, 1))
	assert.Equal(t, "RA-2026-12345", FormatOrderNumber(" RA ", 2026, 12345))
	assert.Equal(t, "ORD-2027-100000", FormatOrderNumber("", 2027, 100000))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), yearStart(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)))
}
