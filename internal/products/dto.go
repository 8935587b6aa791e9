package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resinart/storefront-api/pkg/db/models"
)

// ProductDTO is the catalog representation returned to clients.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Price          decimal.Decimal  `json:"price"`
	DiscountPrice  *decimal.Decimal `json:"discountPrice,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effectivePrice"`
	Stock          int              `json:"stock"`
	InStock        bool             `json:"inStock"`
	ImageURL       *string          `json:"imageUrl,omitempty"`
	IsActive       bool             `json:"isActive"`
	IsFeatured     bool             `json:"isFeatured"`
	AvgRating      decimal.Decimal  `json:"avgRating"`
	ReviewCount    int              `json:"reviewCount"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Category:       p.Category,
		Price:          p.Price,
		DiscountPrice:  p.DiscountPrice,
		EffectivePrice: p.EffectivePrice(),
		Stock:          p.Stock,
		InStock:        p.Stock > 0,
		ImageURL:       p.ImageURL,
		IsActive:       p.IsActive,
		IsFeatured:     p.IsFeatured,
		AvgRating:      p.AvgRating,
		ReviewCount:    p.ReviewCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func FromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateProductRequest is the admin payload for a new catalog item.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=2,max=191"`
	Description   string           `json:"description" validate:"max=5000"`
	Category      string           `json:"category" validate:"required,max=64"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	Stock         int              `json:"stock" validate:"min=0"`
	IsActive      *bool            `json:"isActive"`
	IsFeatured    bool             `json:"isFeatured"`
}

// UpdateProductRequest carries optional changes. RemoveDiscount clears the discount price.
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=2,max=191"`
	Description    *string          `json:"description" validate:"omitempty,max=5000"`
	Category       *string          `json:"category" validate:"omitempty,max=64"`
	Price          *decimal.Decimal `json:"price"`
	DiscountPrice  *decimal.Decimal `json:"discountPrice"`
	RemoveDiscount bool             `json:"removeDiscount"`
	Stock          *int             `json:"stock" validate:"omitempty,min=0"`
	IsActive       *bool            `json:"isActive"`
	IsFeatured     *bool            `json:"isFeatured"`
}

// Sort orders accepted by the catalog listing.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortName      = "name"
)

// ListParams filters the catalog listing. Inactive products are hidden unless IncludeInactive is set.
type ListParams struct {
	Page            int
	Limit           int
	Category        string
	Search          string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Featured        *bool
	Sort            string
	IncludeInactive bool
}
