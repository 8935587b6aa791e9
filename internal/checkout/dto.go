package checkout

import "github.com/resinart/storefront-api/pkg/enums"

// PlaceOrderRequest is the checkout payload.
type PlaceOrderRequest struct {
	ShippingAddress string              `json:"shippingAddress" validate:"required,max=1000"`
	ShippingPhone   string              `json:"shippingPhone" validate:"required,max=32"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	Notes           *string             `json:"notes" validate:"omitempty,max=1000"`
}
