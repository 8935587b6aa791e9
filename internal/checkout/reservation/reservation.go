// Package reservation moves stock for orders: deducted at checkout, restored on cancellation.
// Every change is journaled as a stock movement inside the caller's transaction.
package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/internal/stock"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
)

// Request asks for Qty units of one product.
type Request struct {
	ProductID uuid.UUID
	Qty       int
}

// Result reports the stock left after the change.
type Result struct {
	ProductID  uuid.UUID
	Qty        int
	StockAfter int
}

// Source attributes the journal entries.
type Source struct {
	Reference string
	Actor     *uuid.UUID
}

// Deduct removes stock for every request or fails on the first short product.
// The conditional update makes a concurrent checkout that drained the stock fail here
// instead of driving the counter negative.
func Deduct(ctx context.Context, tx *gorm.DB, requests []Request, src Source) ([]Result, error) {
	productRepo := products.NewRepository(tx)
	journal := stock.NewRepository(tx)

	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		ok, err := productRepo.DecrementStock(ctx, req.ProductID, req.Qty)
		if err != nil {
			return nil, err
		}
		product, err := productRepo.FindByID(ctx, req.ProductID)
		if err != nil {
			return nil, pkgerrors.FromDB(err, "product not found")
		}
		if !ok {
			return nil, InsufficientStock(product)
		}
		if err := record(ctx, journal, product, -req.Qty, enums.StockMovementReasonSale, src); err != nil {
			return nil, err
		}
		results = append(results, Result{ProductID: req.ProductID, Qty: req.Qty, StockAfter: product.Stock})
	}
	return results, nil
}

// Restore puts stock back for every request. Products that no longer exist are skipped.
func Restore(ctx context.Context, tx *gorm.DB, requests []Request, src Source) ([]Result, error) {
	productRepo := products.NewRepository(tx)
	journal := stock.NewRepository(tx)

	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			continue
		}
		if err := productRepo.IncrementStock(ctx, req.ProductID, req.Qty); err != nil {
			return nil, err
		}
		product, err := productRepo.FindByID(ctx, req.ProductID)
		if err != nil {
			if pkgerrors.Is(pkgerrors.FromDB(err, ""), pkgerrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		if err := record(ctx, journal, product, req.Qty, enums.StockMovementReasonCancellation, src); err != nil {
			return nil, err
		}
		results = append(results, Result{ProductID: req.ProductID, Qty: req.Qty, StockAfter: product.Stock})
	}
	return results, nil
}

// InsufficientStock is the 400 returned when a product cannot cover the requested quantity.
func InsufficientStock(product *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("insufficient stock for %q: only %d available", product.Name, product.Stock)).
		WithDetails(map[string]any{"productId": product.ID, "available": product.Stock})
}

func record(ctx context.Context, journal *stock.Repository, product *models.Product, change int, reason enums.StockMovementReason, src Source) error {
	var ref *string
	if src.Reference != "" {
		r := src.Reference
		ref = &r
	}
	return journal.Record(ctx, &models.StockMovement{
		ProductID:  product.ID,
		Change:     change,
		StockAfter: product.Stock,
		Reason:     reason,
		Reference:  ref,
		CreatedBy:  src.Actor,
	})
}
