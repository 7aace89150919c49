package memory

import (
	"context"
	"slices"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// view operates on the data without locking. When tracking, every write
// records the step that undoes it.
type view struct {
	d        *data
	tracking bool
	undo     []func()
}

var _ ledger.Store = (*view)(nil)

func (v *view) record(f func()) {
	if v.tracking {
		v.undo = append(v.undo, f)
	}
}

func (v *view) rollback() {
	for i := len(v.undo) - 1; i >= 0; i-- {
		v.undo[i]()
	}
	v.undo = nil
}

// WithinTx joins the unit of work already in progress.
func (v *view) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	return fn(ctx, v)
}

func (v *view) Close() error { return nil }

func (v *view) goalIndex(userID, id string) int {
	return slices.IndexFunc(v.d.goals, func(g core.SavingsGoal) bool {
		return g.ID == id && g.UserID == userID
	})
}

func (v *view) InsertGoal(_ context.Context, g core.SavingsGoal) (string, error) {
	g.ID = core.NewID()
	v.d.goals = append(v.d.goals, g)
	v.record(func() { v.removeGoal(g.ID) })
	return g.ID, nil
}

func (v *view) removeGoal(id string) {
	v.d.goals = slices.DeleteFunc(v.d.goals, func(g core.SavingsGoal) bool { return g.ID == id })
}

func (v *view) FindGoals(_ context.Context, userID string) ([]core.SavingsGoal, error) {
	out := []core.SavingsGoal{}
	for _, g := range v.d.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (v *view) FindGoal(_ context.Context, userID, id string) (core.SavingsGoal, error) {
	i := v.goalIndex(userID, id)
	if i < 0 {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	return v.d.goals[i], nil
}

func (v *view) UpdateGoal(_ context.Context, userID, id string, f core.GoalFields) (bool, error) {
	i := v.goalIndex(userID, id)
	if i < 0 {
		return false, nil
	}
	prev := v.d.goals[i]
	v.d.goals[i] = prev.Apply(f)
	v.record(func() { v.d.goals[i] = prev })
	return true, nil
}

func (v *view) DeleteGoal(_ context.Context, userID, id string) (bool, error) {
	i := v.goalIndex(userID, id)
	if i < 0 {
		return false, nil
	}
	prev := v.d.goals[i]
	v.d.goals = slices.Delete(v.d.goals, i, i+1)
	v.record(func() { v.d.goals = slices.Insert(v.d.goals, i, prev) })
	return true, nil
}

func (v *view) IncrementGoalAmount(_ context.Context, userID, id string, delta core.Money) (bool, error) {
	i := v.goalIndex(userID, id)
	if i < 0 {
		return false, nil
	}
	v.d.goals[i].CurrentAmount = v.d.goals[i].CurrentAmount.Add(delta)
	v.record(func() { v.d.goals[i].CurrentAmount = v.d.goals[i].CurrentAmount.Sub(delta) })
	return true, nil
}

func (v *view) categoryIndex(f ledger.CategoryFilter) int {
	return slices.IndexFunc(v.d.cats, f.Match)
}

func (v *view) InsertCategory(_ context.Context, c core.ExpenseCategory) (string, error) {
	c.ID = core.NewID()
	v.d.cats = append(v.d.cats, c)
	v.record(func() {
		v.d.cats = slices.DeleteFunc(v.d.cats, func(x core.ExpenseCategory) bool { return x.ID == c.ID })
	})
	return c.ID, nil
}

func (v *view) FindCategories(_ context.Context, f ledger.CategoryFilter) ([]core.ExpenseCategory, error) {
	out := []core.ExpenseCategory{}
	for _, c := range v.d.cats {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v *view) UpdateCategory(_ context.Context, userID, id string, f core.CategoryFields) (bool, error) {
	i := v.categoryIndex(ledger.OwnedActive(userID, id))
	if i < 0 {
		return false, nil
	}
	prev := v.d.cats[i]
	v.d.cats[i].Name = core.NewExpenseCategory(userID, f).Name
	v.d.cats[i].SpendLimit = f.SpendLimit
	v.record(func() { v.d.cats[i] = prev })
	return true, nil
}

func (v *view) IncrementCategorySpend(_ context.Context, userID, id string, delta core.Money) (bool, error) {
	i := v.categoryIndex(ledger.CategoryFilter{ID: id, Owners: []string{userID}, IncludeDeleted: true})
	if i < 0 {
		return false, nil
	}
	v.d.cats[i].SpendTotal = v.d.cats[i].SpendTotal.Add(delta)
	v.record(func() { v.d.cats[i].SpendTotal = v.d.cats[i].SpendTotal.Sub(delta) })
	return true, nil
}

func (v *view) MarkCategoryDeleted(_ context.Context, userID, id string) (bool, error) {
	i := v.categoryIndex(ledger.OwnedActive(userID, id))
	if i < 0 {
		return false, nil
	}
	v.d.cats[i].Deleted = true
	v.record(func() { v.d.cats[i].Deleted = false })
	return true, nil
}

func (v *view) InsertTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	t.ID = core.NewID()
	v.d.txs = append(v.d.txs, t)
	v.record(func() {
		v.d.txs = slices.DeleteFunc(v.d.txs, func(x core.Transaction) bool { return x.ID == t.ID })
	})
	return t.ID, nil
}

func (v *view) FindTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for _, t := range v.d.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (v *view) InsertProfile(_ context.Context, p core.FinancialProfile) error {
	if _, ok := v.d.profiles[p.UserID]; ok {
		return core.ErrProfileExists
	}
	v.d.profiles[p.UserID] = p
	v.record(func() { delete(v.d.profiles, p.UserID) })
	return nil
}

func (v *view) FindProfile(_ context.Context, userID string) (core.FinancialProfile, error) {
	p, ok := v.d.profiles[userID]
	if !ok {
		return core.FinancialProfile{}, core.ErrProfileNotFound
	}
	return p, nil
}

func (v *view) UpdateProfile(_ context.Context, userID string, f core.ProfileFields) (bool, error) {
	prev, ok := v.d.profiles[userID]
	if !ok {
		return false, nil
	}
	v.d.profiles[userID] = core.NewFinancialProfile(userID, f)
	v.record(func() { v.d.profiles[userID] = prev })
	return true, nil
}
