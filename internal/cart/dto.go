package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resinart/storefront-api/pkg/db/models"
)

type AddItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100"`
}

// CartItemDTO is one cart line. Price is the unit price captured when the line was added.
type CartItemDTO struct {
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	ImageURL     *string         `json:"imageUrl,omitempty"`
	Price        decimal.Decimal `json:"price"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Quantity     int             `json:"quantity"`
	Stock        int             `json:"stock"`
	Available    bool            `json:"available"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func FromModel(c *models.Cart) *CartDTO {
	out := &CartDTO{ID: c.ID, Items: make([]CartItemDTO, 0, len(c.Items)), Subtotal: decimal.Zero}
	for _, item := range c.Items {
		line := CartItemDTO{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if p := item.Product; p != nil {
			line.Name = p.Name
			line.Slug = p.Slug
			line.ImageURL = p.ImageURL
			line.CurrentPrice = p.EffectivePrice()
			line.Stock = p.Stock
			line.Available = p.IsActive && p.Stock >= item.Quantity
		}
		out.Items = append(out.Items, line)
		out.ItemCount += item.Quantity
		out.Subtotal = out.Subtotal.Add(line.LineTotal)
	}
	return out
}
