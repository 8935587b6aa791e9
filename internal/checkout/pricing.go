package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/resinart/storefront-api/pkg/config"
)

// Pricing holds the shipping rule applied to every order.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func PricingFromConfig(cfg config.ShopConfig) Pricing {
	return Pricing{FreeShippingThreshold: cfg.Threshold(), FlatShippingFee: cfg.ShippingFee()}
}

// Line is one priced order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is the money breakdown of an order. Tax is not modeled and stays zero.
type Quote struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// Price sums the lines and applies free shipping at or above the threshold.
func (p Pricing) Price(lines []Line) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}
	shipping := p.FlatShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := decimal.Zero
	return Quote{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
	}
}
