package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsSeedSharedCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.FindCategories(context.Background(), ledger.VisibleTo("u1"))
	if err != nil {
		t.Fatalf("find categories: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("expected 3 shared categories, got %d", len(cats))
	}
	for _, c := range cats {
		if !c.Shared() || core.ValidateID(c.ID) != nil {
			t.Fatalf("unexpected seeded category %+v", c)
		}
	}
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := migrateSchema(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := migrateSchema(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != 3 || second != first {
		t.Fatalf("versions = %d, %d, want 3, 3", first, second)
	}
}

func TestCategoryCounterAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, err := repo.InsertCategory(ctx, core.ExpenseCategory{UserID: "u1", Name: "Food", SpendLimit: core.Money{Cents: 50000}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if ok, _ := repo.IncrementCategorySpend(ctx, "u2", id, core.Money{Cents: 100}); ok {
		t.Fatalf("other user must not match")
	}
	for i := 0; i < 3; i++ {
		if ok, err := repo.IncrementCategorySpend(ctx, "u1", id, core.Money{Cents: 100}); !ok || err != nil {
			t.Fatalf("increment: ok=%v err=%v", ok, err)
		}
	}
	if ok, _ := repo.MarkCategoryDeleted(ctx, "u1", id); !ok {
		t.Fatalf("first delete must modify")
	}
	if ok, _ := repo.MarkCategoryDeleted(ctx, "u1", id); ok {
		t.Fatalf("second delete must not modify")
	}

	visible, _ := repo.FindCategories(ctx, ledger.CategoryFilter{Owners: []string{"u1"}})
	if len(visible) != 0 {
		t.Fatalf("deleted category must be hidden: %+v", visible)
	}
	all, _ := repo.FindCategories(ctx, ledger.CategoryFilter{ID: id, IncludeDeleted: true})
	if len(all) != 1 || all[0].SpendTotal.Cents != 300 || !all[0].Deleted {
		t.Fatalf("unexpected stored category %+v", all)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	goalID, _ := repo.InsertGoal(ctx, core.SavingsGoal{
		UserID: "u1", Name: "Trip", TargetAmount: core.Money{Cents: 1000},
		StartDate: time.Now(), TargetDate: time.Now().AddDate(1, 0, 0),
	})
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if _, err := tx.IncrementGoalAmount(ctx, "u1", goalID, core.Money{Cents: 400}); err != nil {
			return err
		}
		if _, err := tx.InsertTransaction(ctx, core.NewIncome("u1", core.Money{Cents: 400}, time.Now(), "", goalID)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	g, _ := repo.FindGoal(ctx, "u1", goalID)
	if g.CurrentAmount.Cents != 0 {
		t.Fatalf("increment must be rolled back, got %v", g.CurrentAmount)
	}
	if txs, _ := repo.FindTransactions(ctx, ledger.TransactionFilter{GoalID: goalID}); len(txs) != 0 {
		t.Fatalf("income must be rolled back, got %v", txs)
	}

	err = repo.WithinTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		_, err := tx.IncrementGoalAmount(ctx, "u1", goalID, core.Money{Cents: 400})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if g, _ := repo.FindGoal(ctx, "u1", goalID); g.CurrentAmount.Cents != 400 {
		t.Fatalf("expected committed increment, got %v", g.CurrentAmount)
	}
}

func TestFindTransactionsWindow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := core.NewID()
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{now.AddDate(0, 0, -20), now.AddDate(0, 0, -3), now} {
		if _, err := repo.InsertTransaction(ctx, core.NewExpense("u1", cat, core.Money{Cents: 1000}, ts, "x")); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	w, _ := core.WindowFor(0.25, now)
	txs, err := repo.FindTransactions(ctx, ledger.TransactionFilter{UserID: "u1", Kind: core.KindExpense, CategoryID: cat}.InWindow(w))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(txs) != 2 || !txs[0].Timestamp.Equal(now) {
		t.Fatalf("expected the two recent expenses newest first, got %+v", txs)
	}
	if txs[0].CategoryID != cat || txs[0].GoalID != "" {
		t.Fatalf("unexpected references %+v", txs[0])
	}
}

func TestInstantsOutsideNanosecondRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	start := time.Date(1650, 3, 1, 0, 0, 0, 0, time.UTC)
	target := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)

	goalID, err := repo.InsertGoal(ctx, core.SavingsGoal{
		UserID: "u1", Name: "Far future", TargetAmount: core.Money{Cents: 1000},
		StartDate: start, TargetDate: target,
	})
	if err != nil {
		t.Fatalf("insert goal: %v", err)
	}
	g, err := repo.FindGoal(ctx, "u1", goalID)
	if err != nil {
		t.Fatalf("find goal: %v", err)
	}
	if !g.StartDate.Equal(start) || !g.TargetDate.Equal(target) {
		t.Fatalf("dates = %v .. %v, want %v .. %v", g.StartDate, g.TargetDate, start, target)
	}

	cat := core.NewID()
	for _, ts := range []time.Time{target, target.AddDate(1, 0, 0)} {
		if _, err := repo.InsertTransaction(ctx, core.NewExpense("u1", cat, core.Money{Cents: 100}, ts, "x")); err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}
	txs, err := repo.FindTransactions(ctx, ledger.TransactionFilter{
		UserID: "u1", CategoryID: cat, From: target.AddDate(0, -1, 0), To: target.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("find transactions: %v", err)
	}
	if len(txs) != 1 || !txs[0].Timestamp.Equal(target) {
		t.Fatalf("expected only the 2300 expense in range, got %+v", txs)
	}
}

func TestProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := core.FinancialProfile{UserID: "u1", Salary: core.Salary{Amount: core.Money{Cents: 100}, Currency: core.USD}}
	if err := repo.InsertProfile(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.InsertProfile(ctx, p); !errors.Is(err, core.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if _, err := repo.FindProfile(ctx, "u2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	ok, err := repo.UpdateProfile(ctx, "u1", core.ProfileFields{Salary: core.Salary{Amount: core.Money{Cents: 200}, Currency: core.MXN}})
	if !ok || err != nil {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	got, _ := repo.FindProfile(ctx, "u1")
	if got.Salary.Amount.Cents != 200 || got.Salary.Currency != core.MXN {
		t.Fatalf("unexpected profile %+v", got)
	}
}
