package worker

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// Drift is a running counter that disagrees with the ledger rows behind it.
type Drift struct {
	UserID   string
	EntityID string
	Kind     core.TransactionKind
	Counter  core.Money
	Ledger   core.Money
}

// Delta is positive when the counter is ahead of the ledger.
func (d Drift) Delta() core.Money {
	return d.Counter.Sub(d.Ledger)
}

// ConsistencyWorker compares the category and goal counters with the
// ledger entries recorded against them. It only reports drift; counters
// are never rewritten.
type ConsistencyWorker struct {
	store  ledger.Store
	logger *applog.Logger
}

func NewConsistencyWorker(store ledger.Store, logger *applog.Logger) *ConsistencyWorker {
	if logger == nil {
		logger = applog.Default()
	}
	return &ConsistencyWorker{
		store:  store,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerEvent is an amqp.Handler. Only store failures are returned,
// so that the message is requeued; events pointing at entities that are
// gone or malformed are logged and acknowledged.
func (w *ConsistencyWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.DebugContext(ctx, "Processing ledger event",
		applog.FieldEventType, ev.Type,
		applog.FieldUserID, ev.UserID,
		applog.FieldEntryID, ev.TransactionID)

	var err error
	switch ev.Type {
	case amqp.EventExpenseRecorded:
		_, err = w.CheckCategory(ctx, ev.UserID, ev.EntityID)
	case amqp.EventGoalContributed:
		_, err = w.CheckGoal(ctx, ev.UserID, ev.EntityID)
	default:
		return nil
	}
	if errors.Is(err, core.ErrInvalidID) {
		w.logger.WarnContext(ctx, "Skipping ledger event with malformed entity id",
			applog.FieldEventType, ev.Type,
			applog.FieldEntityID, ev.EntityID)
		return nil
	}
	return err
}

// CheckCategory compares SpendTotal with every expense stored against the
// category, deleted categories included. A missing category yields no drift.
func (w *ConsistencyWorker) CheckCategory(ctx context.Context, userID, categoryID string) (*Drift, error) {
	if err := core.ValidateID(categoryID); err != nil {
		return nil, err
	}
	cats, err := w.store.FindCategories(ctx, ledger.CategoryFilter{
		ID:             categoryID,
		Owners:         []string{userID},
		IncludeDeleted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if len(cats) == 0 {
		w.logger.WarnContext(ctx, "Category of ledger event not found",
			applog.FieldUserID, userID,
			applog.FieldEntityID, categoryID)
		return nil, nil
	}
	return w.checkCategory(ctx, cats[0])
}

func (w *ConsistencyWorker) checkCategory(ctx context.Context, c core.ExpenseCategory) (*Drift, error) {
	txs, err := w.store.FindTransactions(ctx, ledger.TransactionFilter{
		Kind:       core.KindExpense,
		CategoryID: c.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("expenses of category %s: %w", c.ID, err)
	}
	return w.compare(ctx, Drift{
		UserID:   c.UserID,
		EntityID: c.ID,
		Kind:     core.KindExpense,
		Counter:  c.SpendTotal,
		Ledger:   core.Sum(txs),
	}), nil
}

// CheckGoal compares CurrentAmount with the contributions recorded for the
// goal. Deleted goals yield no drift.
func (w *ConsistencyWorker) CheckGoal(ctx context.Context, userID, goalID string) (*Drift, error) {
	if err := core.ValidateID(goalID); err != nil {
		return nil, err
	}
	goal, err := w.store.FindGoal(ctx, userID, goalID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.DebugContext(ctx, "Goal of ledger event no longer exists",
			applog.FieldUserID, userID,
			applog.FieldEntityID, goalID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find goal: %w", err)
	}
	txs, err := w.store.FindTransactions(ctx, ledger.TransactionFilter{
		UserID: userID,
		Kind:   core.KindIncome,
		GoalID: goalID,
	})
	if err != nil {
		return nil, fmt.Errorf("contributions of goal %s: %w", goalID, err)
	}
	return w.compare(ctx, Drift{
		UserID:   userID,
		EntityID: goalID,
		Kind:     core.KindIncome,
		Counter:  goal.CurrentAmount,
		Ledger:   core.Sum(txs),
	}), nil
}

func (w *ConsistencyWorker) compare(ctx context.Context, d Drift) *Drift {
	if d.Counter == d.Ledger {
		return nil
	}
	w.logger.WarnContext(ctx, "Counter drift detected",
		applog.FieldUserID, d.UserID,
		applog.FieldEntityID, d.EntityID,
		applog.FieldKind, d.Kind,
		"counter_cents", d.Counter.Cents,
		"ledger_cents", d.Ledger.Cents,
		"delta_cents", d.Delta().Cents)
	return &d
}

// Sweep checks every category in the store. It backs up the event path
// when messages were lost or the worker was down.
func (w *ConsistencyWorker) Sweep(ctx context.Context) ([]Drift, error) {
	cats, err := w.store.FindCategories(ctx, ledger.CategoryFilter{IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var drifts []Drift
	errorCount := 0
	for _, c := range cats {
		if err := ctx.Err(); err != nil {
			return drifts, err
		}
		d, err := w.checkCategory(ctx, c)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to check category",
				applog.FieldEntityID, c.ID,
				applog.FieldError, err)
			errorCount++
			continue
		}
		if d != nil {
			drifts = append(drifts, *d)
		}
	}

	w.logger.InfoContext(ctx, "Consistency sweep completed",
		"total", len(cats),
		"drifted", len(drifts),
		"errors", errorCount)
	return drifts, nil
}
