// Package memory is an in-process ledger store. It is the default backend
// for local runs and the store every service test runs against.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

type data struct {
	goals    []core.SavingsGoal
	cats     []core.ExpenseCategory
	txs      []core.Transaction
	profiles map[string]core.FinancialProfile
}

// Store guards its data with one mutex. A unit of work holds the mutex for
// its whole duration and is rolled back on error.
type Store struct {
	mu sync.Mutex
	d  data
}

var _ ledger.Store = (*Store)(nil)

// New returns a store seeded with the given shared categories.
func New(shared ...core.ExpenseCategory) *Store {
	s := &Store{d: data{profiles: map[string]core.FinancialProfile{}}}
	v := s.view()
	for _, c := range shared {
		c.UserID = core.SharedOwner
		_, _ = v.InsertCategory(context.Background(), c)
	}
	return s
}

// NewFromFiles seeds shared categories from base/seed_categories.txt. Each
// line is a name, optionally followed by "=limit". A missing file falls
// back to a small default set.
func NewFromFiles(base string) *Store {
	lines := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(lines) == 0 {
		lines = core.DefaultSharedCategories
	}
	var shared []core.ExpenseCategory
	for _, l := range lines {
		name, limit, _ := strings.Cut(l, "=")
		c := core.ExpenseCategory{Name: strings.TrimSpace(name)}
		if m, err := core.ParseMoney(limit); err == nil && !m.IsNegative() {
			c.SpendLimit = m
		}
		shared = append(shared, c)
	}
	return New(shared...)
}

func (s *Store) view() *view { return &view{d: &s.d} }

// WithinTx runs fn under the store lock. Writes made through the Store
// passed to fn are undone in reverse order when fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &view{d: &s.d, tracking: true}
	if err := fn(ctx, v); err != nil {
		v.rollback()
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertGoal(ctx, g)
}

func (s *Store) FindGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindGoals(ctx, userID)
}

func (s *Store) FindGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindGoal(ctx, userID, id)
}

func (s *Store) UpdateGoal(ctx context.Context, userID, id string, f core.GoalFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateGoal(ctx, userID, id, f)
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteGoal(ctx, userID, id)
}

func (s *Store) IncrementGoalAmount(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().IncrementGoalAmount(ctx, userID, id, delta)
}

func (s *Store) InsertCategory(ctx context.Context, c core.ExpenseCategory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertCategory(ctx, c)
}

func (s *Store) FindCategories(ctx context.Context, f ledger.CategoryFilter) ([]core.ExpenseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindCategories(ctx, f)
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id string, f core.CategoryFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateCategory(ctx, userID, id, f)
}

func (s *Store) IncrementCategorySpend(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().IncrementCategorySpend(ctx, userID, id, delta)
}

func (s *Store) MarkCategoryDeleted(ctx context.Context, userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().MarkCategoryDeleted(ctx, userID, id)
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertTransaction(ctx, t)
}

func (s *Store) FindTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindTransactions(ctx, f)
}

func (s *Store) InsertProfile(ctx context.Context, p core.FinancialProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertProfile(ctx, p)
}

func (s *Store) FindProfile(ctx context.Context, userID string) (core.FinancialProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindProfile(ctx, userID)
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, f core.ProfileFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateProfile(ctx, userID, f)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return slices.Clip(out)
}
