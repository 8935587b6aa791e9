package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

// PeriodLayout is the budget period format, e.g. 2026-10.
const PeriodLayout = "2006-01"

type CreateExpenseRequest struct {
	Category    enums.ExpenseCategory `json:"category" validate:"required"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description" validate:"max=1000"`
	SpentOn     *time.Time            `json:"spentOn"`
}

type ExpenseListParams struct {
	Page     int
	Limit    int
	Category enums.ExpenseCategory
	From     *time.Time
	To       *time.Time
}

type UpsertBudgetRequest struct {
	Category     enums.ExpenseCategory `json:"category" validate:"required"`
	Period       string                `json:"period" validate:"required,len=7"`
	Amount       decimal.Decimal       `json:"amount"`
	AlertPercent *int                  `json:"alertPercent" validate:"omitempty,min=1,max=100"`
}

// BudgetStatus is a budget with the spending recorded against it so far.
type BudgetStatus struct {
	models.Budget
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percentUsed"`
}

type CategoryTotal struct {
	Category enums.ExpenseCategory `json:"category"`
	Total    decimal.Decimal       `json:"total"`
	Count    int64                 `json:"count"`
}

// Summary is the profit and loss view for a date range. To is inclusive.
type Summary struct {
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	Revenue            decimal.Decimal `json:"revenue"`
	OrderCount         int64           `json:"orderCount"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
	NetProfit          decimal.Decimal `json:"netProfit"`
}
