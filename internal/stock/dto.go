package stock

import (
	"github.com/google/uuid"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

// AdjustRequest is the admin stock correction. Change is signed.
type AdjustRequest struct {
	Change    int                       `json:"change" validate:"required"`
	Reason    enums.StockMovementReason `json:"reason" validate:"required"`
	Reference *string                   `json:"reference" validate:"omitempty,max=191"`
}

// AdjustResult reports the product after an adjustment together with its journal entry.
type AdjustResult struct {
	ProductID uuid.UUID            `json:"productId"`
	Name      string               `json:"name"`
	Stock     int                  `json:"stock"`
	LowStock  bool                 `json:"lowStock"`
	Movement  models.StockMovement `json:"movement"`
}
