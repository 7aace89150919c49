// Package ledger defines the storage ports of the ledger. Every backend
// (memory, SQLite, MongoDB) implements Store with the same semantics:
// writes are single-document and filtered by owner, counters move through
// atomic increments and "matched" results report whether the filter hit.
package ledger

import (
	"context"

	"finanzas/internal/core"
)

type (
	GoalStore interface {
		// InsertGoal stores g and returns its generated id.
		InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error)
		FindGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error)
		// FindGoal returns core.ErrGoalNotFound when (id, userID) has no match.
		FindGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error)
		// UpdateGoal replaces the editable fields of the goal filtered on
		// (id, userID). CurrentAmount is never written.
		UpdateGoal(ctx context.Context, userID, id string, f core.GoalFields) (matched bool, err error)
		DeleteGoal(ctx context.Context, userID, id string) (deleted bool, err error)
		IncrementGoalAmount(ctx context.Context, userID, id string, delta core.Money) (matched bool, err error)
	}

	CategoryStore interface {
		InsertCategory(ctx context.Context, c core.ExpenseCategory) (string, error)
		// FindCategories returns the categories matching f in store order.
		FindCategories(ctx context.Context, f CategoryFilter) ([]core.ExpenseCategory, error)
		// UpdateCategory replaces name and limit of the active category
		// filtered on (id, userID). SpendTotal is never written.
		UpdateCategory(ctx context.Context, userID, id string, f core.CategoryFields) (matched bool, err error)
		// IncrementCategorySpend adds delta to SpendTotal of the category
		// filtered on (id, userID). Deleted categories still match.
		IncrementCategorySpend(ctx context.Context, userID, id string, delta core.Money) (matched bool, err error)
		// MarkCategoryDeleted sets the soft-delete flag on the active category
		// filtered on (id, userID).
		MarkCategoryDeleted(ctx context.Context, userID, id string) (modified bool, err error)
	}

	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (string, error)
		// FindTransactions returns matches ordered by timestamp, newest first.
		FindTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	}

	ProfileStore interface {
		// InsertProfile returns core.ErrProfileExists when the user already has one.
		InsertProfile(ctx context.Context, p core.FinancialProfile) error
		FindProfile(ctx context.Context, userID string) (core.FinancialProfile, error)
		UpdateProfile(ctx context.Context, userID string, f core.ProfileFields) (matched bool, err error)
	}

	// TxFunc is a unit of work. The Store it receives must be used for every
	// call that belongs to the unit.
	TxFunc func(ctx context.Context, s Store) error

	Store interface {
		GoalStore
		CategoryStore
		TransactionStore
		ProfileStore

		// WithinTx runs fn as one unit of work. Backends without multi-document
		// transactions run the calls in sequence.
		WithinTx(ctx context.Context, fn TxFunc) error
		Close() error
	}
)
