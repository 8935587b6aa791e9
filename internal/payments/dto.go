package payments

import "github.com/resinart/storefront-api/pkg/enums"

type UpdateStatusRequest struct {
	Status         enums.PaymentStatus `json:"status" validate:"required"`
	TransactionRef *string             `json:"transactionRef" validate:"omitempty,max=191"`
}
