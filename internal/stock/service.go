package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the admin inventory operations.
type Service interface {
	LowStock(ctx context.Context, threshold *int) ([]products.ProductDTO, error)
	Adjust(ctx context.Context, actor authz.Actor, productID uuid.UUID, req AdjustRequest) (*AdjustResult, error)
	Movements(ctx context.Context, productID uuid.UUID, page, limit int) (types.Page[models.StockMovement], error)
}

type ServiceParams struct {
	Repo              *Repository
	Products          *products.Repository
	Tx                txRunner
	Notifier          notifications.Notifier
	LowStockThreshold int
	Logger            *logger.Logger
}

type service struct {
	repo      *Repository
	products  *products.Repository
	tx        txRunner
	notifier  notifications.Notifier
	threshold int
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	threshold := params.LowStockThreshold
	if threshold < 0 {
		threshold = 0
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		tx:        params.Tx,
		notifier:  params.Notifier,
		threshold: threshold,
		logg:      logg,
	}, nil
}

// LowStock lists active products at or below threshold, falling back to the configured level.
func (s *service) LowStock(ctx context.Context, threshold *int) ([]products.ProductDTO, error) {
	limit := s.threshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be zero or greater")
		}
		limit = *threshold
	}
	rows, err := s.products.LowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	return products.FromModels(rows), nil
}

// Adjust applies a manual correction and journals it. Sales and cancellations are
// recorded by checkout and are not accepted here.
func (s *service) Adjust(ctx context.Context, actor authz.Actor, productID uuid.UUID, req AdjustRequest) (*AdjustResult, error) {
	if req.Change == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change must not be zero")
	}
	switch req.Reason {
	case enums.StockMovementReasonRestock:
		if req.Change < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a restock must add stock")
		}
	case enums.StockMovementReasonAdjustment:
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "reason must be %s or %s",
			enums.StockMovementReasonRestock, enums.StockMovementReasonAdjustment)
	}
	reference := validators.SanitizeOptional(req.Reference, 191)

	var result AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.products.WithTx(tx)
		product, err := productRepo.FindByID(ctx, productID)
		if err != nil {
			return pkgerrors.FromDB(err, "product not found")
		}
		ok, err := productRepo.AdjustStock(ctx, productID, req.Change)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "stock cannot go below zero: %d available", product.Stock).
				WithDetails(map[string]any{"available": product.Stock, "change": req.Change})
		}
		product, err = productRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		movement := models.StockMovement{
			ProductID:  product.ID,
			Change:     req.Change,
			StockAfter: product.Stock,
			Reason:     req.Reason,
			Reference:  reference,
			CreatedBy:  &actor.UserID,
		}
		if err := s.repo.WithTx(tx).Record(ctx, &movement); err != nil {
			return err
		}
		result = AdjustResult{
			ProductID: product.ID,
			Name:      product.Name,
			Stock:     product.Stock,
			LowStock:  product.Stock <= s.threshold,
			Movement:  movement,
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"change":     req.Change,
		"stock":      result.Stock,
		"reason":     req.Reason,
	}), "stock.adjusted")

	if result.LowStock {
		link := fmt.Sprintf("/admin/products/%s", productID)
		s.notifier.Dispatch(ctx, notifications.Task{
			ToAdmins: true,
			Type:     enums.NotificationTypeStock,
			Title:    "Low stock",
			Message:  fmt.Sprintf("%s has %d left in stock.", result.Name, result.Stock),
			Link:     &link,
		})
	}
	return &result, nil
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, page, limit int) (types.Page[models.StockMovement], error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return types.Page[models.StockMovement]{}, pkgerrors.FromDB(err, "product not found")
	}
	rows, total, err := s.repo.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		return types.Page[models.StockMovement]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(rows, page, limit, total), nil
}
