package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/pkg/db/models"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	List(ctx context.Context, productID uuid.UUID, page, limit int) (types.Page[ReviewDTO], error)
	Create(ctx context.Context, actor authz.Actor, productID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type ServiceParams struct {
	Repo     *Repository
	Products *products.Repository
	Orders   orders.Repository
	Tx       txRunner
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	products *products.Repository
	orders   orders.Repository
	tx       txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		orders:   params.Orders,
		tx:       params.Tx,
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID, page, limit int) (types.Page[ReviewDTO], error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil || !product.IsActive {
		return types.Page[ReviewDTO]{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	rows, total, err := s.repo.ListByProduct(ctx, productID, page, limit)
	if err != nil {
		return types.Page[ReviewDTO]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(FromModels(rows), page, limit, total), nil
}

// Create stores a review from a customer who has received the product.
func (s *service) Create(ctx context.Context, actor authz.Actor, productID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "rating"})
	}
	comment := validators.SanitizeString(req.Comment, 2000)

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "product not found")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	order, err := s.orders.FindDeliveredOrderWithProduct(ctx, actor.UserID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only review products from delivered orders")
	}
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	review := &models.Review{
		ProductID:  productID,
		UserID:     actor.UserID,
		OrderID:    &order.ID,
		Rating:     req.Rating,
		Comment:    comment,
		IsApproved: true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, review); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
			}
			return err
		}
		return s.refreshRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"rating":     req.Rating,
	}), "review.created")

	stored, err := s.repo.FindByID(ctx, review.ID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "review not found")
	}
	dto := FromModel(*stored)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.FromDB(err, "review not found")
	}
	if !actor.CanAccess(review.UserID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to delete this review")
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.refreshRating(ctx, tx, review.ProductID)
	})
	return pkgerrors.FromDB(err, "")
}

func (s *service) refreshRating(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	avg, count, err := s.repo.WithTx(tx).Stats(ctx, productID)
	if err != nil {
		return err
	}
	return s.products.WithTx(tx).SetRating(ctx, productID, decimal.NewFromFloat(avg).Round(2), int(count))
}
