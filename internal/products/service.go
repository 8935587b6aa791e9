package products

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/pkg/db/models"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/storage"
	"github.com/resinart/storefront-api/pkg/types"
)

const maxSlugAttempts = 50

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, params ListParams) (types.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error)
	Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, id uuid.UUID, file io.Reader) (*ProductDTO, error)
}

type imageStore interface {
	SaveImage(ctx context.Context, prefix string, r io.Reader) (*storage.Object, error)
	Delete(ctx context.Context, url string) error
}

type service struct {
	repo   *Repository
	images imageStore
	logg   *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, images imageStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if images == nil {
		return nil, fmt.Errorf("image store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, images: images, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (types.Page[ProductDTO], error) {
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return types.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	switch params.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortRating, SortName:
	default:
		return types.Page[ProductDTO]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported sort %q", params.Sort)
	}
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return types.Page[ProductDTO]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(FromModels(rows), params.Page, params.Limit, total), nil
}

// Get hides inactive products from the public catalog.
func (s *service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "product not found")
	}
	if !product.IsActive && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(product), nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	if err := validatePricing(req.Price, req.DiscountPrice); err != nil {
		return nil, err
	}
	name := validators.SanitizeString(req.Name, 191)
	slug, err := s.uniqueSlug(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	product := &models.Product{
		Name:          name,
		Slug:          slug,
		Description:   strings.TrimSpace(req.Description),
		Category:      normalizeCategory(req.Category),
		Price:         req.Price.Round(2),
		DiscountPrice: roundOptional(req.DiscountPrice),
		Stock:         req.Stock,
		IsActive:      active,
		IsFeatured:    req.IsFeatured,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with this name already exists")
		}
		return nil, pkgerrors.FromDB(err, "")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "product not found")
	}

	price := product.Price
	if req.Price != nil {
		price = *req.Price
	}
	discount := product.DiscountPrice
	switch {
	case req.RemoveDiscount:
		discount = nil
	case req.DiscountPrice != nil:
		discount = req.DiscountPrice
	}
	if err := validatePricing(price, discount); err != nil {
		return nil, err
	}

	cols := map[string]any{}
	if req.Name != nil {
		name := validators.SanitizeString(*req.Name, 191)
		if name != product.Name {
			slug, err := s.uniqueSlug(ctx, name, product.ID)
			if err != nil {
				return nil, err
			}
			cols["name"] = name
			cols["slug"] = slug
		}
	}
	if req.Description != nil {
		cols["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		category := normalizeCategory(*req.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		cols["category"] = category
	}
	if req.Price != nil {
		cols["price"] = price.Round(2)
	}
	if req.RemoveDiscount {
		cols["discount_price"] = nil
	} else if req.DiscountPrice != nil {
		cols["discount_price"] = req.DiscountPrice.Round(2)
	}
	if req.Stock != nil {
		cols["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		cols["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		cols["is_featured"] = *req.IsFeatured
	}

	if err := s.repo.Update(ctx, id, cols); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with this name already exists")
		}
		return nil, pkgerrors.FromDB(err, "")
	}
	return s.Get(ctx, id, true)
}

// Delete deactivates the product. Orders keep their snapshots.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return pkgerrors.FromDB(err, "product not found")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.FromDB(err, "")
	}
	return nil
}

func (s *service) UploadImage(ctx context.Context, id uuid.UUID, file io.Reader) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "product not found")
	}
	obj, err := s.images.SaveImage(ctx, "product", file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"image_url": obj.URL}); err != nil {
		if delErr := s.images.Delete(ctx, obj.URL); delErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "image_url", obj.URL), "product.image_orphaned")
		}
		return nil, pkgerrors.FromDB(err, "")
	}
	if product.ImageURL != nil && *product.ImageURL != obj.URL {
		if err := s.images.Delete(ctx, *product.ImageURL); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "image_url", *product.ImageURL), "product.image_cleanup_failed", err)
		}
	}
	product.ImageURL = &obj.URL
	return FromModel(product), nil
}

func (s *service) uniqueSlug(ctx context.Context, name string, exclude uuid.UUID) (string, error) {
	base := Slugify(name)
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := s.repo.SlugTaken(ctx, candidate, exclude)
		if err != nil {
			return "", pkgerrors.FromDB(err, "")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "too many products share this name")
}

func validatePricing(price decimal.Decimal, discount *decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero").
			WithDetails(map[string]any{"field": "price"})
	}
	if discount == nil {
		return nil
	}
	if discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount price cannot be negative").
			WithDetails(map[string]any{"field": "discountPrice"})
	}
	if !discount.LessThan(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount price must be lower than price").
			WithDetails(map[string]any{"field": "discountPrice"})
	}
	return nil
}

func normalizeCategory(value string) string {
	return strings.ToLower(validators.SanitizeString(value, 64))
}

func roundOptional(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	rounded := value.Round(2)
	return &rounded
}
