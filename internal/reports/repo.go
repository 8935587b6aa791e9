package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *Repository) FindExpense(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.WithContext(ctx).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Expense{}, "id = ?", id).Error
}

func (r *Repository) ListExpenses(ctx context.Context, params ExpenseListParams) ([]models.Expense, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Expense{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.From != nil {
		query = query.Where("spent_on >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("spent_on < ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Expense
	err := query.
		Order("spent_on DESC, created_at DESC, id DESC").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SpentBetween sums a category's expenses in [from, to).
func (r *Repository) SpentBetween(ctx context.Context, category enums.ExpenseCategory, from, to time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("category = ? AND spent_on >= ? AND spent_on < ?", category, from, to).
		Scan(&row).Error
	return row.Total, err
}

// ExpensesByCategory totals expenses in [from, to) per category.
func (r *Repository) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("spent_on >= ? AND spent_on < ?", from, to).
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}

// Revenue sums non-cancelled orders placed in [from, to).
func (r *Repository) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS count").
		Where("status <> ? AND created_at >= ? AND created_at < ?", enums.OrderStatusCancelled, from, to).
		Scan(&row).Error
	return row.Total, row.Count, err
}

// UpsertBudget keeps one budget per category and period. Changing a budget re-arms its alert.
func (r *Repository) UpsertBudget(ctx context.Context, budget *models.Budget) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}, {Name: "period"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount":        budget.Amount,
				"alert_percent": budget.AlertPercent,
				"alerted_at":    nil,
				"updated_at":    time.Now().UTC(),
			}),
		}).
		Create(budget).Error
}

func (r *Repository) FindBudget(ctx context.Context, category enums.ExpenseCategory, period string) (*models.Budget, error) {
	var budget models.Budget
	err := r.db.WithContext(ctx).First(&budget, "category = ? AND period = ?", category, period).Error
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *Repository) ListBudgets(ctx context.Context, period string) ([]models.Budget, error) {
	var rows []models.Budget
	err := r.db.WithContext(ctx).
		Where("period = ?", period).
		Order("category ASC").
		Find(&rows).Error
	return rows, err
}

// MarkAlerted stamps alerted_at once. It reports false when another caller got there first.
func (r *Repository) MarkAlerted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ? AND alerted_at IS NULL", id).
		Update("alerted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
