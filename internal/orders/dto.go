package orders

import (
	"time"

	"github.com/resinart/storefront-api/pkg/enums"
)

// ListParams filters order listings.
type ListParams struct {
	Page   int
	Limit  int
	Status enums.OrderStatus
	Search string
}

type CancelRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateStatusRequest is the admin payload for moving an order. Courier fields upsert the delivery row.
type UpdateStatusRequest struct {
	Status            enums.OrderStatus `json:"status" validate:"required"`
	Description       *string           `json:"description" validate:"omitempty,max=500"`
	TrackingNumber    *string           `json:"trackingNumber" validate:"omitempty,max=120"`
	CourierCompany    *string           `json:"courierCompany" validate:"omitempty,max=120"`
	EstimatedDelivery *time.Time        `json:"estimatedDelivery"`
}

func (r UpdateStatusRequest) hasDelivery() bool {
	return r.TrackingNumber != nil || r.CourierCompany != nil || r.EstimatedDelivery != nil
}
