package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/pkg/db/models"
)

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ReviewDTO is the public view of a review. Only the author's name is exposed.
type ReviewDTO struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  uuid.UUID  `json:"productId"`
	UserID     uuid.UUID  `json:"userId"`
	UserName   string     `json:"userName"`
	OrderID    *uuid.UUID `json:"orderId,omitempty"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
	IsApproved bool       `json:"isApproved"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func FromModel(m models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:         m.ID,
		ProductID:  m.ProductID,
		UserID:     m.UserID,
		OrderID:    m.OrderID,
		Rating:     m.Rating,
		Comment:    m.Comment,
		IsApproved: m.IsApproved,
		CreatedAt:  m.CreatedAt,
	}
	if m.User != nil {
		dto.UserName = m.User.Name
	}
	return dto
}

func FromModels(rows []models.Review) []ReviewDTO {
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
