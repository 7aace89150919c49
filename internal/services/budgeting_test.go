package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/ledger/memory"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func cents(n int64) core.Money { return core.Money{Cents: n} }

func newTestBudget(shared ...core.ExpenseCategory) (*memory.Store, *Budget) {
	store := memory.New(shared...)
	return store, NewBudget(store, WithClock(func() time.Time { return testNow }), WithFanout(2))
}

func mustCategory(t *testing.T, store ledger.Store, userID, name string, limit int64) string {
	t.Helper()
	id, err := store.InsertCategory(context.Background(), core.NewExpenseCategory(userID, core.CategoryFields{Name: name, SpendLimit: cents(limit)}))
	if err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
	return id
}

func mustGoal(t *testing.T, store ledger.Store, userID string) string {
	t.Helper()
	id, err := store.InsertGoal(context.Background(), core.NewSavingsGoal(userID, core.GoalFields{
		Name:         "Trip",
		TargetAmount: cents(100000),
		StartDate:    testNow,
		TargetDate:   testNow.AddDate(1, 0, 0),
	}))
	if err != nil {
		t.Fatalf("InsertGoal: %v", err)
	}
	return id
}

func categoryByID(t *testing.T, store ledger.Store, id string) core.ExpenseCategory {
	t.Helper()
	cats, err := store.FindCategories(context.Background(), ledger.CategoryFilter{ID: id, IncludeDeleted: true})
	if err != nil || len(cats) != 1 {
		t.Fatalf("FindCategories(%s) = %v, %v", id, cats, err)
	}
	return cats[0]
}

func TestRecordExpenseUpdatesCounterAndLedger(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	catID := mustCategory(t, store, "alice", "Food", 50000)

	id, err := budget.RecordExpense(ctx, "alice", catID, cents(1250), time.Time{}, "  lunch ")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if err := core.ValidateID(id); err != nil {
		t.Errorf("expense id %q: %v", id, err)
	}

	if got := categoryByID(t, store, catID).SpendTotal; got != cents(1250) {
		t.Errorf("spendTotal = %v, want 12.50", got)
	}
	txs, _ := store.FindTransactions(ctx, ledger.TransactionFilter{UserID: "alice", Kind: core.KindExpense})
	if len(txs) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(txs))
	}
	got := txs[0]
	if got.ID != id || got.CategoryID != catID || got.Description != "lunch" {
		t.Errorf("unexpected expense %+v", got)
	}
	if !got.Timestamp.Equal(testNow) {
		t.Errorf("zero timestamp should default to now, got %v", got.Timestamp)
	}
}

func TestRecordExpenseIsNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	catID := mustCategory(t, store, "alice", "Food", 0)
	ts := testNow.Add(-time.Hour)

	for range 2 {
		if _, err := budget.RecordExpense(ctx, "alice", catID, cents(500), ts, "coffee"); err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
	}

	if got := categoryByID(t, store, catID).SpendTotal; got != cents(1000) {
		t.Errorf("spendTotal = %v, want 10.00", got)
	}
	txs, _ := store.FindTransactions(ctx, ledger.TransactionFilter{CategoryID: catID})
	if len(txs) != 2 {
		t.Errorf("expected 2 ledger rows, got %d", len(txs))
	}
}

func TestRecordExpenseRejections(t *testing.T) {
	ctx := context.Background()
	shared := core.ExpenseCategory{Name: "Housing"}
	store, budget := newTestBudget(shared)
	bobCat := mustCategory(t, store, "bob", "Games", 1000)
	aliceCat := mustCategory(t, store, "alice", "Food", 1000)
	sharedCats, _ := store.FindCategories(ctx, ledger.CategoryFilter{Owners: []string{core.SharedOwner}})
	sharedID := sharedCats[0].ID

	tests := []struct {
		name       string
		categoryID string
		amount     core.Money
		wantErr    error
	}{
		{"malformed id", "not-an-id", cents(100), core.ErrInvalidID},
		{"unknown category", core.NewID(), cents(100), core.ErrCategoryNotFound},
		{"category of another user", bobCat, cents(100), core.ErrCategoryNotFound},
		{"shared category", sharedID, cents(100), core.ErrNotFound},
		{"zero amount", aliceCat, cents(0), core.ErrValidation},
		{"negative amount", aliceCat, cents(-100), core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := budget.RecordExpense(ctx, "alice", tt.categoryID, tt.amount, testNow, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := categoryByID(t, store, bobCat).SpendTotal; got != cents(0) {
		t.Errorf("bob's spendTotal changed to %v", got)
	}
	if got := categoryByID(t, store, aliceCat).SpendTotal; got != cents(0) {
		t.Errorf("alice's spendTotal changed to %v", got)
	}
	txs, _ := store.FindTransactions(ctx, ledger.TransactionFilter{})
	if len(txs) != 0 {
		t.Errorf("no expense should be stored, got %d", len(txs))
	}
}

var errInsert = errors.New("insert failed")

// failingInsertStore fails every transaction insert made inside a unit of work.
type failingInsertStore struct {
	ledger.Store
}

func (s failingInsertStore) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		return fn(ctx, failingInsertStore{tx})
	})
}

func (failingInsertStore) InsertTransaction(context.Context, core.Transaction) (string, error) {
	return "", errInsert
}

func TestUnitOfWorkRollsBackCounters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budget := NewBudget(failingInsertStore{store}, WithClock(func() time.Time { return testNow }))
	catID := mustCategory(t, store, "alice", "Food", 1000)
	goalID := mustGoal(t, store, "alice")

	if _, err := budget.RecordExpense(ctx, "alice", catID, cents(300), testNow, ""); !errors.Is(err, errInsert) {
		t.Fatalf("RecordExpense err = %v, want %v", err, errInsert)
	}
	if _, err := budget.ContributeToGoal(ctx, "alice", goalID, cents(300)); !errors.Is(err, errInsert) {
		t.Fatalf("ContributeToGoal err = %v, want %v", err, errInsert)
	}

	if got := categoryByID(t, store, catID).SpendTotal; got != cents(0) {
		t.Errorf("spendTotal = %v after failed insert, want 0", got)
	}
	goal, _ := store.FindGoal(ctx, "alice", goalID)
	if goal.CurrentAmount != cents(0) {
		t.Errorf("currentAmount = %v after failed insert, want 0", goal.CurrentAmount)
	}
}

func TestContributeToGoal(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	goalID := mustGoal(t, store, "alice")

	id, err := budget.ContributeToGoal(ctx, "alice", goalID, cents(10000))
	if err != nil {
		t.Fatalf("ContributeToGoal: %v", err)
	}

	goal, err := store.FindGoal(ctx, "alice", goalID)
	if err != nil {
		t.Fatalf("FindGoal: %v", err)
	}
	if goal.CurrentAmount != cents(10000) {
		t.Errorf("currentAmount = %v, want 100.00", goal.CurrentAmount)
	}

	incomes, _ := store.FindTransactions(ctx, ledger.TransactionFilter{UserID: "alice", Kind: core.KindIncome})
	if len(incomes) != 1 {
		t.Fatalf("expected exactly 1 income, got %d", len(incomes))
	}
	in := incomes[0]
	if in.ID != id || in.GoalID != goalID || !in.IsContribution() {
		t.Errorf("unexpected income %+v", in)
	}
	if in.Description != ContributionDescription(goalID) {
		t.Errorf("description = %q", in.Description)
	}
	if !in.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", in.Timestamp, testNow)
	}
}

func TestContributeToGoalRejections(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	bobGoal := mustGoal(t, store, "bob")

	tests := []struct {
		name    string
		goalID  string
		amount  core.Money
		wantErr error
	}{
		{"malformed id", "xyz", cents(100), core.ErrInvalidID},
		{"unknown goal", core.NewID(), cents(100), core.ErrGoalNotFound},
		{"goal of another user", bobGoal, cents(100), core.ErrGoalNotFound},
		{"zero amount", bobGoal, cents(0), core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := budget.ContributeToGoal(ctx, "alice", tt.goalID, tt.amount); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	goal, _ := store.FindGoal(ctx, "bob", bobGoal)
	if goal.CurrentAmount != cents(0) {
		t.Errorf("bob's goal changed to %v", goal.CurrentAmount)
	}
}

func TestSummaryScenario(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	catID := mustCategory(t, store, "alice", "Food", 50000)

	for _, amount := range []int64{12000, 8000} {
		if _, err := budget.RecordExpense(ctx, "alice", catID, cents(amount), testNow.AddDate(0, 0, -2), ""); err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
	}

	cats, err := budget.SummarizeCategories(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("SummarizeCategories: %v", err)
	}
	if len(cats) != 1 || cats[0].CurrentSpend != cents(20000) {
		t.Fatalf("unexpected categories %+v", cats)
	}

	sum, err := budget.SummarizeOverall(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("SummarizeOverall: %v", err)
	}
	want := core.Summary{TotalSpent: cents(20000), TotalLimit: cents(50000), Balance: cents(30000)}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}
}

func TestSummarizeCategoriesWindow(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget()
	catID := mustCategory(t, store, "alice", "Food", 0)

	// The last expense is future-dated but inside end = now + 1 day.
	entries := []struct {
		ts     time.Time
		amount int64
	}{
		{testNow.AddDate(0, 0, -3), 100},
		{testNow.AddDate(0, 0, -10), 200},
		{testNow.AddDate(0, 0, -20), 400},
		{testNow.AddDate(0, 0, -40), 800},
		{testNow.AddDate(0, 0, -100), 1600},
		{testNow.Add(20 * time.Hour), 3200},
	}
	for _, e := range entries {
		if _, err := budget.RecordExpense(ctx, "alice", catID, cents(e.amount), e.ts, ""); err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
	}

	tests := []struct {
		period float64
		want   int64
	}{
		{0.25, 3300},
		{0.5, 3500},
		{1, 3900},
		{1.5, 4700},
		{12, 6300},
	}

	for _, tt := range tests {
		cats, err := budget.SummarizeCategories(ctx, "alice", tt.period)
		if err != nil {
			t.Fatalf("period %v: %v", tt.period, err)
		}
		if cats[0].CurrentSpend != cents(tt.want) {
			t.Errorf("period %v: currentSpend = %v, want %v", tt.period, cats[0].CurrentSpend, cents(tt.want))
		}
		if cats[0].SpendTotal != cents(6300) {
			t.Errorf("spendTotal = %v, it should count every expense", cats[0].SpendTotal)
		}
	}
}

func TestSummaryTotalsMatchPerCategorySums(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget(
		core.ExpenseCategory{Name: "Housing", SpendLimit: cents(100000)},
		core.ExpenseCategory{Name: "Transport", SpendLimit: cents(20000)},
	)
	shared, _ := store.FindCategories(ctx, ledger.CategoryFilter{Owners: []string{core.SharedOwner}})
	own := mustCategory(t, store, "alice", "Food", 30000)
	bobs := mustCategory(t, store, "bob", "Food", 99999)

	if _, err := budget.RecordExpense(ctx, "alice", own, cents(4500), testNow, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := budget.RecordExpense(ctx, "bob", bobs, cents(7000), testNow, ""); err != nil {
		t.Fatal(err)
	}
	// Expenses can only be recorded against owned categories, so shared
	// categories only ever show spend that was stored directly.
	if _, err := store.InsertTransaction(ctx, core.NewExpense("alice", shared[0].ID, cents(1500), testNow, "rent share")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertTransaction(ctx, core.NewExpense("bob", shared[0].ID, cents(9900), testNow, "")); err != nil {
		t.Fatal(err)
	}

	cats, err := budget.SummarizeCategories(ctx, "alice", 0.5)
	if err != nil {
		t.Fatalf("SummarizeCategories: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("expected shared and owned categories only, got %d", len(cats))
	}

	w, _ := core.WindowFor(0.5, testNow)
	var spent, limit core.Money
	for _, c := range cats {
		txs, err := store.FindTransactions(ctx, ledger.TransactionFilter{
			UserID:     "alice",
			Kind:       core.KindExpense,
			CategoryID: c.ID,
		}.InWindow(w))
		if err != nil {
			t.Fatal(err)
		}
		if got := core.Sum(txs); got != c.CurrentSpend {
			t.Errorf("category %s: currentSpend = %v, individual query sums to %v", c.Name, c.CurrentSpend, got)
		}
		spent = spent.Add(c.CurrentSpend)
		limit = limit.Add(c.SpendLimit)
	}
	if spent != cents(6000) {
		t.Errorf("total spent = %v, want 60.00 (bob's spend excluded)", spent)
	}

	sum, err := budget.SummarizeOverall(ctx, "alice", 0.5)
	if err != nil {
		t.Fatalf("SummarizeOverall: %v", err)
	}
	if sum.TotalSpent != spent || sum.TotalLimit != limit || sum.Balance != limit.Sub(spent) {
		t.Errorf("summary %+v does not match per-category totals %v / %v", sum, spent, limit)
	}
}

func TestSummariesRejectInvalidPeriods(t *testing.T) {
	_, budget := newTestBudget()
	for _, period := range []float64{0, 0.75, 0.1, -1, 1201} {
		if _, err := budget.SummarizeCategories(context.Background(), "alice", period); !errors.Is(err, core.ErrInvalidPeriod) {
			t.Errorf("SummarizeCategories(%v) err = %v", period, err)
		}
		if _, err := budget.SummarizeOverall(context.Background(), "alice", period); !errors.Is(err, core.ErrInvalidPeriod) {
			t.Errorf("SummarizeOverall(%v) err = %v", period, err)
		}
	}
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	store, budget := newTestBudget(core.ExpenseCategory{Name: "Housing"})
	shared, _ := store.FindCategories(ctx, ledger.CategoryFilter{Owners: []string{core.SharedOwner}})
	catID := mustCategory(t, store, "alice", "Food", 0)
	bobCat := mustCategory(t, store, "bob", "Food", 0)
	if _, err := budget.RecordExpense(ctx, "alice", catID, cents(700), testNow, ""); err != nil {
		t.Fatal(err)
	}

	if err := budget.DeleteCategory(ctx, "alice", catID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := budget.DeleteCategory(ctx, "alice", catID); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}

	for name, tc := range map[string]struct {
		id   string
		want error
	}{
		"malformed":     {"bad", core.ErrInvalidID},
		"shared":        {shared[0].ID, core.ErrCategoryNotFound},
		"another users": {bobCat, core.ErrCategoryNotFound},
	} {
		if err := budget.DeleteCategory(ctx, "alice", tc.id); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", name, err, tc.want)
		}
	}

	cats, _ := budget.SummarizeCategories(ctx, "alice", 1)
	for _, c := range cats {
		if c.ID == catID {
			t.Error("deleted category is still listed")
		}
	}
	txs, _ := store.FindTransactions(ctx, ledger.TransactionFilter{CategoryID: catID})
	if len(txs) != 1 {
		t.Errorf("expenses of a deleted category must be kept, got %d", len(txs))
	}
}

// racingStore loses every soft-delete race.
type racingStore struct {
	*memory.Store
}

func (racingStore) MarkCategoryDeleted(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestDeleteCategoryReportsLostRace(t *testing.T) {
	store := memory.New()
	catID := mustCategory(t, store, "alice", "Food", 0)
	budget := NewBudget(racingStore{store})

	if err := budget.DeleteCategory(context.Background(), "alice", catID); !errors.Is(err, core.ErrDeleteFailed) {
		t.Errorf("err = %v, want %v", err, core.ErrDeleteFailed)
	}
}
