package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/resinart/storefront-api/pkg/logger"
)

type budgetEvaluator interface {
	EvaluateBudgets(ctx context.Context, period string) (int, error)
}

type BudgetSweepJobParams struct {
	Logger  *logger.Logger
	Budgets budgetEvaluator
}

// NewBudgetSweepJob re-checks the current month's budgets so an alert lost with a
// dropped dispatch, or a budget lowered under existing spend, still fires.
func NewBudgetSweepJob(params BudgetSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Budgets == nil {
		return nil, fmt.Errorf("budget evaluator required")
	}
	return &budgetSweepJob{logg: params.Logger, budgets: params.Budgets, now: time.Now}, nil
}

type budgetSweepJob struct {
	logg    *logger.Logger
	budgets budgetEvaluator
	now     func() time.Time
}

func (j *budgetSweepJob) Name() string { return "budget-sweep" }

func (j *budgetSweepJob) Run(ctx context.Context) error {
	period := j.now().UTC().Format("2006-01")
	alerted, err := j.budgets.EvaluateBudgets(ctx, period)
	if err != nil {
		return fmt.Errorf("evaluate budgets for %s: %w", period, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"period":  period,
		"alerted": alerted,
	}), "budget sweep complete")
	return nil
}
