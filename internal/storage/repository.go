// Package storage is the SQLite ledger store. The schema lives in
// migrations/ and is applied on open.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	inTx    bool
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps increments and busy errors out of each other's way.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("SQLite ledger schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil && !r.inTx {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx runs fn in a SQL transaction, committing when fn succeeds.
// Nested calls join the outer transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	if r.inTx {
		return fn(ctx, r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txRepo := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(tx), inTx: true}
	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error) {
	id := core.NewID()
	err := r.queries.CreateGoal(ctx, SavingsGoal{
		ID:                 id,
		UserID:             g.UserID,
		Name:               g.Name,
		TargetAmountCents:  g.TargetAmount.Cents,
		CurrentAmountCents: g.CurrentAmount.Cents,
		StartDate:          unixMicro(g.StartDate),
		TargetDate:         unixMicro(g.TargetDate),
	})
	if err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Savings goal saved to SQLite", "id", id, "user_id", g.UserID)
	return id, nil
}

func (r *SQLiteRepository) FindGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListGoalsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	goals := make([]core.SavingsGoal, len(rows))
	for i, g := range rows {
		goals[i] = g.toCore()
	}
	return goals, nil
}

func (r *SQLiteRepository) FindGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error) {
	g, err := r.queries.GetGoal(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	return g.toCore(), nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, userID, id string, f core.GoalFields) (bool, error) {
	g := core.NewSavingsGoal(userID, f)
	n, err := r.queries.UpdateGoal(ctx, SavingsGoal{
		ID:                id,
		UserID:            userID,
		Name:              g.Name,
		TargetAmountCents: g.TargetAmount.Cents,
		StartDate:         unixMicro(g.StartDate),
		TargetDate:        unixMicro(g.TargetDate),
	})
	if err != nil {
		return false, fmt.Errorf("update goal %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) (bool, error) {
	n, err := r.queries.DeleteGoal(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete goal %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) IncrementGoalAmount(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	n, err := r.queries.IncrementGoalAmount(ctx, id, userID, delta.Cents)
	if err != nil {
		return false, fmt.Errorf("increment goal %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.ExpenseCategory) (string, error) {
	id := core.NewID()
	err := r.queries.CreateCategory(ctx, ExpenseCategory{
		ID:              id,
		UserID:          c.UserID,
		Name:            c.Name,
		SpendLimitCents: c.SpendLimit.Cents,
		SpendTotalCents: c.SpendTotal.Cents,
		Deleted:         c.Deleted,
	})
	if err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Expense category saved to SQLite", "id", id, "user_id", c.UserID)
	return id, nil
}

func (r *SQLiteRepository) FindCategories(ctx context.Context, f ledger.CategoryFilter) ([]core.ExpenseCategory, error) {
	rows, err := r.queries.ListCategories(ctx, ListCategoriesParams{
		ID:             f.ID,
		Owners:         f.Owners,
		IncludeDeleted: f.IncludeDeleted,
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats := make([]core.ExpenseCategory, len(rows))
	for i, c := range rows {
		cats[i] = c.toCore()
	}
	return cats, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id string, f core.CategoryFields) (bool, error) {
	c := core.NewExpenseCategory(userID, f)
	n, err := r.queries.UpdateCategory(ctx, ExpenseCategory{ID: id, UserID: userID, Name: c.Name, SpendLimitCents: c.SpendLimit.Cents})
	if err != nil {
		return false, fmt.Errorf("update category %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) IncrementCategorySpend(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	n, err := r.queries.IncrementCategorySpend(ctx, id, userID, delta.Cents)
	if err != nil {
		return false, fmt.Errorf("increment category %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkCategoryDeleted(ctx context.Context, userID, id string) (bool, error) {
	n, err := r.queries.MarkCategoryDeleted(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete category %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	id := core.NewID()
	err := r.queries.CreateTransaction(ctx, LedgerTransaction{
		ID:          id,
		UserID:      t.UserID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		OccurredAt:  unixMicro(t.Timestamp),
		Description: t.Description,
		CategoryID:  nullString(t.CategoryID),
		GoalID:      nullString(t.GoalID),
	})
	if err != nil {
		return "", fmt.Errorf("create %s: %w", t.Kind, err)
	}
	slog.InfoContext(ctx, "Ledger entry saved to SQLite",
		"id", id,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents)
	return id, nil
}

func (r *SQLiteRepository) FindTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID:     f.UserID,
		Kind:       string(f.Kind),
		CategoryID: f.CategoryID,
		GoalID:     f.GoalID,
		From:       boundMicro(f.From),
		To:         boundMicro(f.To),
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	txs := make([]core.Transaction, len(rows))
	for i, t := range rows {
		txs[i] = t.toCore()
	}
	return txs, nil
}

func (r *SQLiteRepository) InsertProfile(ctx context.Context, p core.FinancialProfile) error {
	n, err := r.queries.CreateProfile(ctx, profileRow(p))
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	if n == 0 {
		return core.ErrProfileExists
	}
	return nil
}

func (r *SQLiteRepository) FindProfile(ctx context.Context, userID string) (core.FinancialProfile, error) {
	p, err := r.queries.GetProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialProfile{}, core.ErrProfileNotFound
	}
	if err != nil {
		return core.FinancialProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return p.toCore(), nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, userID string, f core.ProfileFields) (bool, error) {
	n, err := r.queries.UpdateProfile(ctx, profileRow(core.NewFinancialProfile(userID, f)))
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	return n > 0, nil
}

func profileRow(p core.FinancialProfile) FinancialProfile {
	return FinancialProfile{
		UserID:             p.UserID,
		SalaryCents:        p.Salary.Amount.Cents,
		SalaryCurrency:     string(p.Salary.Currency),
		BalanceTargetCents: p.BalanceTarget.Cents,
		SpendLimitCents:    p.SpendLimit.Cents,
	}
}

// boundMicro maps an unset bound to 0, which ListTransactions ignores.
func boundMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return unixMicro(t)
}
