package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const defaultFanout = 8

// Budget keeps the running counters of goals and categories in step with
// the ledger and derives the period summaries from stored expenses.
type Budget struct {
	store  ledger.Store
	now    func() time.Time
	fanout int
}

type BudgetOption func(*Budget)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) BudgetOption {
	return func(b *Budget) { b.now = now }
}

// WithFanout bounds the concurrent per-category queries of a summary.
func WithFanout(n int) BudgetOption {
	return func(b *Budget) {
		if n > 0 {
			b.fanout = n
		}
	}
}

func NewBudget(store ledger.Store, opts ...BudgetOption) *Budget {
	b := &Budget{store: store, now: time.Now, fanout: defaultFanout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Now returns the engine clock.
func (b *Budget) Now() time.Time { return b.now() }

// RecordExpense bumps the category counter and stores the expense as one
// unit of work. A zero ts means now. The category must be owned by userID.
func (b *Budget) RecordExpense(ctx context.Context, userID, categoryID string, amount core.Money, ts time.Time, description string) (string, error) {
	if err := core.ValidateID(categoryID); err != nil {
		return "", err
	}
	if ts.IsZero() {
		ts = b.now()
	}
	expense := core.NewExpense(userID, categoryID, amount, ts, description)
	if err := expense.Validate(); err != nil {
		return "", err
	}

	var id string
	err := b.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		matched, err := tx.IncrementCategorySpend(ctx, userID, categoryID, amount)
		if err != nil {
			return err
		}
		if !matched {
			return core.ErrCategoryNotFound
		}
		id, err = tx.InsertTransaction(ctx, expense)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ContributeToGoal bumps the goal's current amount and records the matching
// income as one unit of work.
func (b *Budget) ContributeToGoal(ctx context.Context, userID, goalID string, amount core.Money) (string, error) {
	if err := core.ValidateID(goalID); err != nil {
		return "", err
	}
	income := core.NewIncome(userID, amount, b.now(), ContributionDescription(goalID), goalID)
	if err := income.Validate(); err != nil {
		return "", err
	}

	var id string
	err := b.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		matched, err := tx.IncrementGoalAmount(ctx, userID, goalID, amount)
		if err != nil {
			return err
		}
		if !matched {
			return core.ErrGoalNotFound
		}
		id, err = tx.InsertTransaction(ctx, income)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ContributionDescription is the description of the income a goal
// contribution records.
func ContributionDescription(goalID string) string {
	return "Contribution to goal " + goalID
}

// SummarizeCategories returns every category visible to userID with the
// user's spend in the period window. Result order is store order.
func (b *Budget) SummarizeCategories(ctx context.Context, userID string, period float64) ([]core.CategorySpend, error) {
	w, err := core.WindowFor(period, b.now())
	if err != nil {
		return nil, err
	}
	cats, err := b.store.FindCategories(ctx, ledger.VisibleTo(userID))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	out := make([]core.CategorySpend, len(cats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fanout)
	for i, c := range cats {
		g.Go(func() error {
			txs, err := b.store.FindTransactions(gctx, ledger.TransactionFilter{
				UserID:     userID,
				Kind:       core.KindExpense,
				CategoryID: c.ID,
			}.InWindow(w))
			if err != nil {
				return fmt.Errorf("expenses of category %s: %w", c.ID, err)
			}
			out[i] = core.CategorySpend{ExpenseCategory: c, CurrentSpend: core.Sum(txs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SummarizeOverall totals spend and limits over the same categories and
// window as SummarizeCategories.
func (b *Budget) SummarizeOverall(ctx context.Context, userID string, period float64) (core.Summary, error) {
	cats, err := b.SummarizeCategories(ctx, userID, period)
	if err != nil {
		return core.Summary{}, err
	}
	var spent, limit core.Money
	for _, c := range cats {
		spent = spent.Add(c.CurrentSpend)
		limit = limit.Add(c.SpendLimit)
	}
	return core.NewSummary(spent, limit), nil
}

// DeleteCategory soft-deletes an active category owned by userID. Shared
// categories cannot be deleted by users.
func (b *Budget) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	if err := core.ValidateID(categoryID); err != nil {
		return err
	}
	cats, err := b.store.FindCategories(ctx, ledger.OwnedActive(userID, categoryID))
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	if len(cats) == 0 {
		return core.ErrCategoryNotFound
	}
	modified, err := b.store.MarkCategoryDeleted(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !modified {
		return core.ErrDeleteFailed
	}
	return nil
}
