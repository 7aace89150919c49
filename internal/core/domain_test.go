package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateID(t *testing.T) {
	if err := ValidateID(NewID()); err != nil {
		t.Fatalf("generated id should be valid: %v", err)
	}
	for _, bad := range []string{"", "123", "zzzzzzzzzzzzzzzzzzzzzzzz", strings.Repeat("a", 25)} {
		if err := ValidateID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("%q: expected ErrInvalidID, got %v", bad, err)
		}
	}
}

func TestNotFoundErrorsWrap(t *testing.T) {
	for _, err := range []error{ErrCategoryNotFound, ErrGoalNotFound, ErrProfileNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%v should match ErrNotFound", err)
		}
	}
	if !errors.Is(ErrEmptyName, ErrValidation) || errors.Is(ErrEmptyName, ErrInvalidAmount) {
		t.Fatalf("validation errors must match ErrValidation and only themselves")
	}
}

func TestGoalFieldsValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := GoalFields{Name: "Trip", TargetAmount: Money{Cents: 100000}, StartDate: start, TargetDate: start.AddDate(0, 6, 0)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mutate func(*GoalFields)
		want   error
	}{
		{func(f *GoalFields) { f.Name = "  " }, ErrEmptyName},
		{func(f *GoalFields) { f.Name = strings.Repeat("x", 101) }, ErrNameTooLong},
		{func(f *GoalFields) { f.TargetAmount = Money{} }, ErrInvalidTargetAmount},
		{func(f *GoalFields) { f.StartDate = time.Time{} }, ErrMissingDates},
		{func(f *GoalFields) { f.TargetDate = start.AddDate(0, 0, -1) }, ErrDatesOutOfOrder},
	}
	for i, tc := range cases {
		f := good
		tc.mutate(&f)
		if err := f.Validate(); err != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestGoalApplyKeepsCurrentAmount(t *testing.T) {
	g := SavingsGoal{ID: "x", UserID: "u", Name: "Old", CurrentAmount: Money{Cents: 500}}
	g = g.Apply(GoalFields{Name: " New ", TargetAmount: Money{Cents: 1000}})
	if g.Name != "New" || g.CurrentAmount.Cents != 500 || g.TargetAmount.Cents != 1000 {
		t.Fatalf("unexpected goal after apply: %+v", g)
	}
}

func TestCategoryVisibility(t *testing.T) {
	cases := []struct {
		c    ExpenseCategory
		want bool
	}{
		{ExpenseCategory{UserID: "alice"}, true},
		{ExpenseCategory{UserID: SharedOwner}, true},
		{ExpenseCategory{UserID: "bob"}, false},
		{ExpenseCategory{UserID: "alice", Deleted: true}, false},
		{ExpenseCategory{UserID: SharedOwner, Deleted: true}, false},
	}
	for i, tc := range cases {
		if got := tc.c.VisibleTo("alice"); got != tc.want {
			t.Fatalf("case %d: VisibleTo=%v want %v", i, got, tc.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	now := time.Now()
	good := []Transaction{
		NewExpense("u", NewID(), Money{Cents: 100}, now, "coffee"),
		NewIncome("u", Money{Cents: 100}, now, "salary", ""),
		NewIncome("u", Money{Cents: 100}, now, "contribution", NewID()),
	}
	for i, tx := range good {
		if err := tx.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	exp := NewExpense("u", NewID(), Money{Cents: 100}, now, "x")
	withGoal := exp
	withGoal.GoalID = NewID()
	withCategory := NewIncome("u", Money{Cents: 1}, now, "", "")
	withCategory.CategoryID = NewID()
	badKind := exp
	badKind.Kind = "transfer"
	bads := []struct {
		tx   Transaction
		want error
	}{
		{NewExpense("u", NewID(), Money{}, now, "x"), ErrInvalidAmount},
		{NewExpense("u", "", Money{Cents: 1}, now, "x"), ErrMissingCategory},
		{NewExpense("u", NewID(), Money{Cents: 1}, time.Time{}, "x"), ErrMissingTimestamp},
		{NewExpense("u", NewID(), Money{Cents: 1}, now, strings.Repeat("d", 201)), ErrDescriptionTooLong},
		{withGoal, ErrUnexpectedGoal},
		{withCategory, ErrUnexpectedCategory},
		{badKind, ErrInvalidKind},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); err != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
	if !good[2].IsContribution() || good[1].IsContribution() {
		t.Fatalf("IsContribution mismatch")
	}
}

func TestProfileFieldsValidate(t *testing.T) {
	good := ProfileFields{Salary: Salary{Amount: Money{Cents: 2000000}, Currency: MXN}, BalanceTarget: Money{Cents: 100}, SpendLimit: Money{Cents: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Salary.Currency = "EUR"
	if err := bad.Validate(); err != ErrInvalidCurrency {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	bad = good
	bad.SpendLimit = Money{Cents: -1}
	if err := bad.Validate(); err != ErrNegativeLimit {
		t.Fatalf("expected ErrNegativeLimit, got %v", err)
	}
}

func TestNewSummary(t *testing.T) {
	s := NewSummary(Money{Cents: 20000}, Money{Cents: 50000})
	if s.Balance.Cents != 30000 {
		t.Fatalf("expected balance 300.00, got %v", s.Balance)
	}
}
