package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/ledger/memory"
	applog "finanzas/internal/log"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestWorker(store ledger.Store) *ConsistencyWorker {
	logger := applog.New(applog.Config{Handler: applog.NewTextHandler(io.Discard, slog.LevelError)})
	return NewConsistencyWorker(store, logger)
}

// record writes an expense the way the budgeting engine does.
func record(t *testing.T, store ledger.Store, userID, categoryID string, cents int64) {
	t.Helper()
	amount := core.Money{Cents: cents}
	if _, err := store.IncrementCategorySpend(context.Background(), userID, categoryID, amount); err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertTransaction(context.Background(), core.NewExpense(userID, categoryID, amount, now, "")); err != nil {
		t.Fatal(err)
	}
}

func newCategory(t *testing.T, store ledger.Store, userID string) string {
	t.Helper()
	id, err := store.InsertCategory(context.Background(), core.NewExpenseCategory(userID, core.CategoryFields{Name: "Food"}))
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestCheckCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newTestWorker(store)
	catID := newCategory(t, store, "alice")
	record(t, store, "alice", catID, 1200)
	record(t, store, "alice", catID, 800)

	d, err := w.CheckCategory(ctx, "alice", catID)
	if err != nil || d != nil {
		t.Fatalf("consistent category reported %+v, %v", d, err)
	}

	// Counter bumped without the matching ledger row.
	if _, err := store.IncrementCategorySpend(ctx, "alice", catID, core.Money{Cents: 500}); err != nil {
		t.Fatal(err)
	}
	d, err = w.CheckCategory(ctx, "alice", catID)
	if err != nil {
		t.Fatalf("CheckCategory: %v", err)
	}
	if d == nil {
		t.Fatal("expected drift")
	}
	if d.Counter.Cents != 2500 || d.Ledger.Cents != 2000 || d.Delta().Cents != 500 || d.EntityID != catID {
		t.Errorf("unexpected drift %+v", d)
	}

	if d, err := w.CheckCategory(ctx, "bob", catID); err != nil || d != nil {
		t.Errorf("category of another user: %+v, %v", d, err)
	}
	if _, err := w.CheckCategory(ctx, "alice", "nope"); !errors.Is(err, core.ErrInvalidID) {
		t.Errorf("malformed id err = %v", err)
	}
}

func TestCheckCategoryIncludesDeleted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newTestWorker(store)
	catID := newCategory(t, store, "alice")
	record(t, store, "alice", catID, 300)
	if _, err := store.MarkCategoryDeleted(ctx, "alice", catID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.IncrementCategorySpend(ctx, "alice", catID, core.Money{Cents: 1}); err != nil {
		t.Fatal(err)
	}

	d, err := w.CheckCategory(ctx, "alice", catID)
	if err != nil || d == nil || d.Delta().Cents != 1 {
		t.Errorf("deleted category drift = %+v, %v", d, err)
	}
}

func TestCheckGoal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := newTestWorker(store)
	goalID, err := store.InsertGoal(ctx, core.NewSavingsGoal("alice", core.GoalFields{
		Name:         "Bike",
		TargetAmount: core.Money{Cents: 90000},
		StartDate:    now,
		TargetDate:   now.AddDate(0, 3, 0),
	}))
	if err != nil {
		t.Fatal(err)
	}

	amount := core.Money{Cents: 10000}
	if _, err := store.IncrementGoalAmount(ctx, "alice", goalID, amount); err != nil {
		t.Fatal(err)
	}
	if d, err := w.CheckGoal(ctx, "alice", goalID); err != nil || d == nil || d.Ledger.Cents != 0 {
		t.Fatalf("missing contribution not reported: %+v, %v", d, err)
	}

	if _, err := store.InsertTransaction(ctx, core.NewIncome("alice", amount, now, "", goalID)); err != nil {
		t.Fatal(err)
	}
	if d, err := w.CheckGoal(ctx, "alice", goalID); err != nil || d != nil {
		t.Errorf("consistent goal reported %+v, %v", d, err)
	}

	if _, err := store.DeleteGoal(ctx, "alice", goalID); err != nil {
		t.Fatal(err)
	}
	if d, err := w.CheckGoal(ctx, "alice", goalID); err != nil || d != nil {
		t.Errorf("deleted goal: %+v, %v", d, err)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.New(core.ExpenseCategory{Name: "Housing"})
	w := newTestWorker(store)
	ok := newCategory(t, store, "alice")
	bad := newCategory(t, store, "bob")
	record(t, store, "alice", ok, 100)
	record(t, store, "bob", bad, 100)
	if _, err := store.IncrementCategorySpend(ctx, "bob", bad, core.Money{Cents: 50}); err != nil {
		t.Fatal(err)
	}

	drifts, err := w.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(drifts) != 1 || drifts[0].EntityID != bad || drifts[0].UserID != "bob" {
		t.Errorf("unexpected drifts %+v", drifts)
	}
}

var errStore = errors.New("store unavailable")

type brokenStore struct {
	*memory.Store
}

func (brokenStore) FindCategories(context.Context, ledger.CategoryFilter) ([]core.ExpenseCategory, error) {
	return nil, errStore
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(_ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func TestHandleLedgerEventSettlement(t *testing.T) {
	store := memory.New()
	catID := newCategory(t, store, "alice")
	record(t, store, "alice", catID, 100)

	event := func(typ amqp.EventType, entityID string) []byte {
		body, err := amqp.NewLedgerEvent(typ, "alice", entityID, core.NewID(), 100).ToJSON()
		if err != nil {
			t.Fatal(err)
		}
		return body
	}

	tests := []struct {
		name         string
		store        ledger.Store
		body         []byte
		wantAck      bool
		wantRequeued bool
	}{
		{"consistent expense", store, event(amqp.EventExpenseRecorded, catID), true, false},
		{"unknown category", store, event(amqp.EventExpenseRecorded, core.NewID()), true, false},
		{"malformed entity id", store, event(amqp.EventExpenseRecorded, "x"), true, false},
		{"plain income", store, event(amqp.EventIncomeRecorded, ""), true, false},
		{"unknown goal", store, event(amqp.EventGoalContributed, core.NewID()), true, false},
		{"store failure", brokenStore{store}, event(amqp.EventExpenseRecorded, catID), false, true},
		{"malformed body", store, []byte(`{"type":`), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(tt.store)
			ack := &fakeAck{}
			amqp.HandleDelivery(context.Background(), tt.body, ack, w.HandleLedgerEvent)
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("expected a nack")
			}
			if ack.requeued != tt.wantRequeued {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeued)
			}
		})
	}
}
