package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/internal/products"
	"github.com/resinart/storefront-api/pkg/db/models"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the single cart each user owns.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, req UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo     *Repository
	products *products.Repository
	tx       txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, productRepo *products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productRepo, tx: tx}, nil
}

// Get returns the user's cart, creating an empty one on first access.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(cart), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(ctx context.Context, repo *Repository, productRepo *products.Repository, cart *models.Cart) error {
		product, err := purchasable(ctx, productRepo, req.ProductID)
		if err != nil {
			return err
		}

		item, err := repo.FindItem(ctx, cart.ID, product.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := checkStock(product, req.Quantity); err != nil {
				return err
			}
			return repo.CreateItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  req.Quantity,
				Price:     product.EffectivePrice(),
			})
		case err != nil:
			return err
		}

		quantity := item.Quantity + req.Quantity
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		item.Quantity = quantity
		item.Price = product.EffectivePrice()
		return repo.UpdateItem(ctx, item)
	})
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, req UpdateItemRequest) (*CartDTO, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(ctx context.Context, repo *Repository, productRepo *products.Repository, cart *models.Cart) error {
		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.FromDB(err, "item not found in cart")
		}
		product, err := purchasable(ctx, productRepo, productID)
		if err != nil {
			return err
		}
		if err := checkStock(product, req.Quantity); err != nil {
			return err
		}
		item.Quantity = req.Quantity
		item.Price = product.EffectivePrice()
		return repo.UpdateItem(ctx, item)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(ctx context.Context, repo *Repository, _ *products.Repository, cart *models.Cart) error {
		removed, err := repo.DeleteItem(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(ctx context.Context, repo *Repository, _ *products.Repository, cart *models.Cart) error {
		return repo.ClearItems(ctx, cart.ID)
	})
}

type mutation func(ctx context.Context, repo *Repository, productRepo *products.Repository, cart *models.Cart) error

// mutate runs fn against the user's cart in one transaction and returns the fresh cart.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, fn mutation) (*CartDTO, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadOrCreate(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := fn(ctx, repo, s.products.WithTx(tx), cart); err != nil {
			return err
		}
		result, err = repo.FindByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	return FromModel(result), nil
}

func (s *service) loadOrCreate(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.FromDB(err, "")
	}
	cart = &models.Cart{UserID: userID, IsActive: true}
	if err := repo.Create(ctx, cart); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			// a concurrent request created it first
			existing, findErr := repo.FindByUser(ctx, userID)
			if findErr != nil {
				return nil, pkgerrors.FromDB(findErr, "")
			}
			return existing, nil
		}
		return nil, pkgerrors.FromDB(err, "")
	}
	cart.Items = []models.CartItem{}
	return cart, nil
}

func purchasable(ctx context.Context, repo *products.Repository, id uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "product not found")
	}
	if !product.IsActive {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %q is not available", product.Name)
	}
	return product, nil
}

func checkStock(product *models.Product, quantity int) error {
	if quantity > product.Stock {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "only %d of %q left in stock", product.Stock, product.Name).
			WithDetails(map[string]any{"productId": product.ID, "available": product.Stock})
	}
	return nil
}
