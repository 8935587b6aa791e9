package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/pdf"
	"github.com/resinart/storefront-api/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Service covers the admin finance screens: expenses, budgets and the P&L summary.
type Service interface {
	RecordExpense(ctx context.Context, actor authz.Actor, req CreateExpenseRequest) (*models.Expense, error)
	ListExpenses(ctx context.Context, params ExpenseListParams) (types.Page[models.Expense], error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	UpsertBudget(ctx context.Context, req UpsertBudgetRequest) (*BudgetStatus, error)
	ListBudgets(ctx context.Context, period string) ([]BudgetStatus, error)
	Summary(ctx context.Context, from, to *time.Time) (*Summary, error)
	SummaryPDF(ctx context.Context, w io.Writer, from, to *time.Time) error
	EvaluateBudgets(ctx context.Context, period string) (int, error)
}

type ServiceParams struct {
	Repo               *Repository
	Notifier           notifications.Notifier
	BudgetAlertPercent int
	Currency           string
	Logger             *logger.Logger
}

type service struct {
	repo         *Repository
	notifier     notifications.Notifier
	alertPercent int
	currency     string
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	alert := params.BudgetAlertPercent
	if alert <= 0 || alert > 100 {
		alert = 80
	}
	return &service{
		repo:         params.Repo,
		notifier:     params.Notifier,
		alertPercent: alert,
		currency:     strings.TrimSpace(params.Currency),
		logg:         logg,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// RecordExpense stores the expense, then checks the category budget for its month.
// A failed budget check is logged and does not fail the request.
func (s *service) RecordExpense(ctx context.Context, actor authz.Actor, req CreateExpenseRequest) (*models.Expense, error) {
	if !req.Category.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid expense category %q", req.Category)
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero").
			WithDetails(map[string]any{"field": "amount"})
	}
	spentOn := dayStart(s.now())
	if req.SpentOn != nil {
		spentOn = dayStart(*req.SpentOn)
	}

	expense := &models.Expense{
		Category:    req.Category,
		Amount:      req.Amount.Round(2),
		Description: validators.SanitizeString(req.Description, 1000),
		SpentOn:     spentOn,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	if _, err := s.checkBudget(ctx, expense.Category, spentOn.Format(PeriodLayout)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "category", expense.Category), "budget.check_failed", err)
	}
	return expense, nil
}

func (s *service) ListExpenses(ctx context.Context, params ExpenseListParams) (types.Page[models.Expense], error) {
	if params.Category != "" && !params.Category.IsValid() {
		return types.Page[models.Expense]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid expense category %q", params.Category)
	}
	if params.From != nil {
		start := dayStart(*params.From)
		params.From = &start
	}
	if params.To != nil {
		end := dayStart(*params.To).AddDate(0, 0, 1)
		params.To = &end
	}
	rows, total, err := s.repo.ListExpenses(ctx, params)
	if err != nil {
		return types.Page[models.Expense]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(rows, params.Page, params.Limit, total), nil
}

func (s *service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindExpense(ctx, id); err != nil {
		return pkgerrors.FromDB(err, "expense not found")
	}
	return pkgerrors.FromDB(s.repo.DeleteExpense(ctx, id), "")
}

func (s *service) UpsertBudget(ctx context.Context, req UpsertBudgetRequest) (*BudgetStatus, error) {
	if !req.Category.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid expense category %q", req.Category)
	}
	if _, err := parsePeriod(req.Period); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero").
			WithDetails(map[string]any{"field": "amount"})
	}
	percent := s.alertPercent
	if req.AlertPercent != nil {
		if *req.AlertPercent < 1 || *req.AlertPercent > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "alertPercent must be between 1 and 100")
		}
		percent = *req.AlertPercent
	}

	budget := &models.Budget{
		Category:     req.Category,
		Period:       req.Period,
		Amount:       req.Amount.Round(2),
		AlertPercent: percent,
	}
	if err := s.repo.UpsertBudget(ctx, budget); err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	if _, err := s.checkBudget(ctx, req.Category, req.Period); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "category", req.Category), "budget.check_failed", err)
	}

	stored, err := s.repo.FindBudget(ctx, req.Category, req.Period)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "budget not found")
	}
	status, err := s.status(ctx, *stored)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *service) ListBudgets(ctx context.Context, period string) ([]BudgetStatus, error) {
	if period == "" {
		period = s.now().Format(PeriodLayout)
	}
	if _, err := parsePeriod(period); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListBudgets(ctx, period)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	out := make([]BudgetStatus, 0, len(rows))
	for _, row := range rows {
		status, err := s.status(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// Summary defaults to the current month up to today.
func (s *service) Summary(ctx context.Context, from, to *time.Time) (*Summary, error) {
	today := dayStart(s.now())
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := today
	if from != nil {
		start = dayStart(*from)
	}
	if to != nil {
		end = dayStart(*to)
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	until := end.AddDate(0, 0, 1)

	revenue, count, err := s.repo.Revenue(ctx, start, until)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	byCategory, err := s.repo.ExpensesByCategory(ctx, start, until)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	expenses := decimal.Zero
	for _, c := range byCategory {
		expenses = expenses.Add(c.Total)
	}
	if byCategory == nil {
		byCategory = []CategoryTotal{}
	}

	return &Summary{
		From:               start,
		To:                 end,
		Revenue:            revenue.Round(2),
		OrderCount:         count,
		TotalExpenses:      expenses.Round(2),
		ExpensesByCategory: byCategory,
		NetProfit:          revenue.Sub(expenses).Round(2),
	}, nil
}

func (s *service) SummaryPDF(ctx context.Context, w io.Writer, from, to *time.Time) error {
	summary, err := s.Summary(ctx, from, to)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(summary.ExpensesByCategory))
	for _, c := range summary.ExpensesByCategory {
		rows = append(rows, []string{string(c.Category), fmt.Sprintf("%d", c.Count), s.money(c.Total)})
	}
	doc := pdf.Document{
		Title:    "Financial summary",
		Subtitle: fmt.Sprintf("%s to %s", summary.From.Format("2006-01-02"), summary.To.Format("2006-01-02")),
		Summary: []pdf.KV{
			{Label: "Revenue", Value: s.money(summary.Revenue)},
			{Label: "Orders", Value: fmt.Sprintf("%d", summary.OrderCount)},
			{Label: "Expenses", Value: s.money(summary.TotalExpenses)},
			{Label: "Net profit", Value: s.money(summary.NetProfit)},
		},
		Tables: []pdf.Table{{
			Title:   "Expenses by category",
			Headers: []string{"Category", "Entries", "Total"},
			Rows:    rows,
			Widths:  []float64{90, 40, 60},
		}},
	}
	if err := pdf.Render(w, doc); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render report")
	}
	return nil
}

// EvaluateBudgets re-checks every budget of a period and returns how many alerts fired.
func (s *service) EvaluateBudgets(ctx context.Context, period string) (int, error) {
	if period == "" {
		period = s.now().Format(PeriodLayout)
	}
	if _, err := parsePeriod(period); err != nil {
		return 0, err
	}
	budgets, err := s.repo.ListBudgets(ctx, period)
	if err != nil {
		return 0, pkgerrors.FromDB(err, "")
	}
	alerted := 0
	for _, budget := range budgets {
		if budget.AlertedAt != nil {
			continue
		}
		fired, err := s.checkBudget(ctx, budget.Category, period)
		if err != nil {
			return alerted, err
		}
		if fired {
			alerted++
		}
	}
	return alerted, nil
}

// checkBudget alerts admins once when spending crosses the budget's alert percent.
func (s *service) checkBudget(ctx context.Context, category enums.ExpenseCategory, period string) (bool, error) {
	budget, err := s.repo.FindBudget(ctx, category, period)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if budget.AlertedAt != nil {
		return false, nil
	}
	status, err := s.status(ctx, *budget)
	if err != nil {
		return false, err
	}
	if status.PercentUsed.LessThan(decimal.NewFromInt(int64(budget.AlertPercent))) {
		return false, nil
	}
	marked, err := s.repo.MarkAlerted(ctx, budget.ID, s.now())
	if err != nil || !marked {
		return false, err
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"category":     category,
		"period":       period,
		"percent_used": status.PercentUsed.StringFixed(1),
	}), "budget.threshold_reached")

	link := fmt.Sprintf("/admin/reports/budgets?period=%s", period)
	s.notifier.Dispatch(ctx, notifications.Task{
		ToAdmins: true,
		Type:     enums.NotificationTypeBudget,
		Title:    "Budget alert",
		Message: fmt.Sprintf("%s spending for %s is at %s%% of budget (%s of %s).",
			category, period, status.PercentUsed.StringFixed(1), s.money(status.Spent), s.money(budget.Amount)),
		Link: &link,
	})
	return true, nil
}

func (s *service) status(ctx context.Context, budget models.Budget) (BudgetStatus, error) {
	start, err := parsePeriod(budget.Period)
	if err != nil {
		return BudgetStatus{}, err
	}
	spent, err := s.repo.SpentBetween(ctx, budget.Category, start, start.AddDate(0, 1, 0))
	if err != nil {
		return BudgetStatus{}, pkgerrors.FromDB(err, "")
	}
	percent := decimal.Zero
	if budget.Amount.IsPositive() {
		percent = spent.Mul(hundred).Div(budget.Amount).Round(2)
	}
	return BudgetStatus{
		Budget:      budget,
		Spent:       spent.Round(2),
		Remaining:   budget.Amount.Sub(spent).Round(2),
		PercentUsed: percent,
	}, nil
}

func (s *service) money(v decimal.Decimal) string {
	if s.currency == "" {
		return v.StringFixed(2)
	}
	return s.currency + " " + v.StringFixed(2)
}

func parsePeriod(period string) (time.Time, error) {
	start, err := time.Parse(PeriodLayout, strings.TrimSpace(period))
	if err != nil {
		return time.Time{}, pkgerrors.Newf(pkgerrors.CodeValidation, "period must look like YYYY-MM, got %q", period)
	}
	return start, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
