package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/db/models"
)

const effectivePriceExpr = "COALESCE(discount_price, price)"

// Repository wraps catalog persistence, including the stock counters checkout relies on.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads the product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SlugTaken reports whether another product already uses slug.
func (r *Repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols).Error
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if !params.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if category := strings.TrimSpace(params.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	// float bounds compare numerically on every dialect, including sqlite expressions without affinity
	if params.MinPrice != nil {
		query = query.Where(effectivePriceExpr+" >= ?", params.MinPrice.InexactFloat64())
	}
	if params.MaxPrice != nil {
		query = query.Where(effectivePriceExpr+" <= ?", params.MaxPrice.InexactFloat64())
	}
	if params.Featured != nil {
		query = query.Where("is_featured = ?", *params.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	offset := (params.Page - 1) * params.Limit
	if err := query.Order(orderClause(params.Sort)).Offset(offset).Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderClause(sort string) string {
	switch sort {
	case SortPriceAsc:
		return effectivePriceExpr + " ASC, id ASC"
	case SortPriceDesc:
		return effectivePriceExpr + " DESC, id ASC"
	case SortRating:
		return "avg_rating DESC, review_count DESC, id ASC"
	case SortName:
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// DecrementStock removes qty units only when enough remain. It reports false when stock was short.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

// AdjustStock applies a signed change unless it would drive stock below zero.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, change int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, change).
		Update("stock", gorm.Expr("stock + ?", change))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LowStock lists active products at or below threshold, emptiest first.
func (r *Repository) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock <= ?", true, threshold).
		Order("stock ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) SetRating(ctx context.Context, id uuid.UUID, avg decimal.Decimal, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"avg_rating":   avg,
			"review_count": count,
		}).Error
}
