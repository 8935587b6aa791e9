package reports

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/pkg/db/dbtest"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
)

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []notifications.Task
}

func (r *recordingNotifier) Dispatch(_ context.Context, task notifications.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return true
}

var (
	admin    = authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*service, *gorm.DB, *recordingNotifier) {
	t.Helper()
	conn := dbtest.Open(t)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Notifier: notifier, BudgetAlertPercent: 80, Currency: "BDT"})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn, notifier
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
	return &t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecordExpenseValidates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: "yachts", Amount: dec("10")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("0")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	expense, err := svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("12.345")})
	require.NoError(t, err)
	assert.True(t, expense.Amount.Equal(dec("12.35")))
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), expense.SpentOn)
	assert.Equal(t, admin.UserID, expense.CreatedBy)
}

func TestBudgetAlertFiresOnce(t *testing.T) {
	svc, conn, notifier := newService(t)
	ctx := context.Background()

	status, err := svc.UpsertBudget(ctx, UpsertBudgetRequest{Category: enums.ExpenseCategoryMaterials, Period: "2026-10", Amount: dec("1000")})
	require.NoError(t, err)
	assert.Equal(t, 80, status.AlertPercent)
	assert.True(t, status.Spent.IsZero())

	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("500"), SpentOn: day(2026, 10, 3)})
	require.NoError(t, err)
	assert.Empty(t, notifier.tasks)

	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("300"), SpentOn: day(2026, 10, 9)})
	require.NoError(t, err)
	require.Len(t, notifier.tasks, 1)
	assert.True(t, notifier.tasks[0].ToAdmins)
	assert.Equal(t, enums.NotificationTypeBudget, notifier.tasks[0].Type)
	assert.Contains(t, notifier.tasks[0].Message, "80.0%")

	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("100"), SpentOn: day(2026, 10, 10)})
	require.NoError(t, err)
	assert.Len(t, notifier.tasks, 1)

	var budget models.Budget
	require.NoError(t, conn.First(&budget).Error)
	assert.NotNil(t, budget.AlertedAt)

	budgets, err := svc.ListBudgets(ctx, "2026-10")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.True(t, budgets[0].Spent.Equal(dec("900")))
	assert.True(t, budgets[0].Remaining.Equal(dec("100")))
	assert.True(t, budgets[0].PercentUsed.Equal(dec("90")))
}

func TestUpsertBudgetRearmsAlert(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	_, err := svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryShipping, Amount: dec("450"), SpentOn: day(2026, 10, 2)})
	require.NoError(t, err)

	_, err = svc.UpsertBudget(ctx, UpsertBudgetRequest{Category: enums.ExpenseCategoryShipping, Period: "2026-10", Amount: dec("500")})
	require.NoError(t, err)
	require.Len(t, notifier.tasks, 1)

	raised, err := svc.UpsertBudget(ctx, UpsertBudgetRequest{Category: enums.ExpenseCategoryShipping, Period: "2026-10", Amount: dec("2000")})
	require.NoError(t, err)
	assert.Nil(t, raised.AlertedAt)
	assert.True(t, raised.Amount.Equal(dec("2000")))
	assert.Len(t, notifier.tasks, 1)

	_, err = svc.UpsertBudget(ctx, UpsertBudgetRequest{Category: enums.ExpenseCategoryShipping, Period: "October", Amount: dec("10")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestEvaluateBudgetsCatchesMissedAlerts(t *testing.T) {
	svc, conn, notifier := newService(t)
	ctx := context.Background()

	require.NoError(t, conn.Create(&models.Budget{Category: enums.ExpenseCategoryMarketing, Period: "2026-10", Amount: dec("100"), AlertPercent: 50}).Error)
	require.NoError(t, conn.Create(&models.Expense{Category: enums.ExpenseCategoryMarketing, Amount: dec("75"), SpentOn: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), CreatedBy: admin.UserID}).Error)

	fired, err := svc.EvaluateBudgets(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Len(t, notifier.tasks, 1)

	fired, err = svc.EvaluateBudgets(ctx, "2026-10")
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestSummaryAndPDF(t *testing.T) {
	svc, conn, _ := newService(t)
	ctx := context.Background()

	user := &models.User{Name: "Buyer", Email: "buyer@example.com", PasswordHash: "x", Role: enums.UserRoleCustomer, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	for i, o := range []struct {
		total  string
		status enums.OrderStatus
	}{
		{"1200", enums.OrderStatusDelivered},
		{"800", enums.OrderStatusPending},
		{"5000", enums.OrderStatusCancelled},
	} {
		order := &models.Order{
			OrderNumber:     fmt.Sprintf("ORD-2026-%05d", i+1),
			UserID:          user.ID,
			Status:          o.status,
			Subtotal:        dec(o.total),
			ShippingCost:    decimal.Zero,
			Tax:             decimal.Zero,
			Total:           dec(o.total),
			ShippingAddress: "X",
			ShippingPhone:   "Y",
			CreatedAt:       time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC),
		}
		require.NoError(t, conn.Omit("User", "Items", "Payment", "Delivery", "Tracking").Create(order).Error)
	}
	_, err := svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryMaterials, Amount: dec("300"), SpentOn: day(2026, 10, 1)})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryPackaging, Amount: dec("150"), SpentOn: day(2026, 10, 16)})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryPackaging, Amount: dec("999"), SpentOn: day(2026, 9, 30)})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), summary.From)
	assert.True(t, summary.Revenue.Equal(dec("2000")), summary.Revenue.String())
	assert.EqualValues(t, 2, summary.OrderCount)
	assert.True(t, summary.TotalExpenses.Equal(dec("450")), summary.TotalExpenses.String())
	assert.True(t, summary.NetProfit.Equal(dec("1550")))
	require.Len(t, summary.ExpensesByCategory, 2)

	_, err = svc.Summary(ctx, day(2026, 10, 5), day(2026, 10, 1))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	var buf bytes.Buffer
	require.NoError(t, svc.SummaryPDF(ctx, &buf, nil, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestExpenseListAndDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryUtilities, Amount: dec("40"), SpentOn: day(2026, 10, 1)})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, admin, CreateExpenseRequest{Category: enums.ExpenseCategoryOther, Amount: dec("20"), SpentOn: day(2026, 10, 2)})
	require.NoError(t, err)

	page, err := svc.ListExpenses(ctx, ExpenseListParams{Page: 1, Limit: 10, Category: enums.ExpenseCategoryUtilities})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = svc.ListExpenses(ctx, ExpenseListParams{Page: 1, Limit: 10, From: day(2026, 10, 2), To: day(2026, 10, 2)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, enums.ExpenseCategoryOther, page.Items[0].Category)

	require.NoError(t, svc.DeleteExpense(ctx, first.ID))
	err = svc.DeleteExpense(ctx, first.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
