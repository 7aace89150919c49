package ledger

import (
	"time"

	"finanzas/internal/core"
)

// CategoryFilter selects categories. An empty Owners matches every owner.
type CategoryFilter struct {
	ID             string
	Owners         []string
	IncludeDeleted bool
}

// VisibleTo selects the active categories owned by userID or shared.
func VisibleTo(userID string) CategoryFilter {
	return CategoryFilter{Owners: []string{userID, core.SharedOwner}}
}

// OwnedActive selects the active category id owned by userID.
func OwnedActive(userID, id string) CategoryFilter {
	return CategoryFilter{ID: id, Owners: []string{userID}}
}

// Match reports whether c passes the filter.
func (f CategoryFilter) Match(c core.ExpenseCategory) bool {
	if f.ID != "" && c.ID != f.ID {
		return false
	}
	if c.Deleted && !f.IncludeDeleted {
		return false
	}
	if len(f.Owners) == 0 {
		return true
	}
	for _, o := range f.Owners {
		if c.UserID == o {
			return true
		}
	}
	return false
}

// TransactionFilter selects ledger entries. Zero fields match anything;
// From and To are inclusive. Limit <= 0 means no limit.
type TransactionFilter struct {
	UserID     string
	Kind       core.TransactionKind
	CategoryID string
	GoalID     string
	From       time.Time
	To         time.Time
	Limit      int
}

// InWindow restricts the filter to the given window.
func (f TransactionFilter) InWindow(w core.Window) TransactionFilter {
	f.From, f.To = w.Start, w.End
	return f
}

// Match reports whether t passes the filter, ignoring Limit.
func (f TransactionFilter) Match(t core.Transaction) bool {
	switch {
	case f.UserID != "" && t.UserID != f.UserID:
		return false
	case f.Kind != "" && t.Kind != f.Kind:
		return false
	case f.CategoryID != "" && t.CategoryID != f.CategoryID:
		return false
	case f.GoalID != "" && t.GoalID != f.GoalID:
		return false
	case !f.From.IsZero() && t.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && t.Timestamp.After(f.To):
		return false
	}
	return true
}
