package core

import (
	"strings"
	"time"
)

// SharedOwner is the owner value of categories visible to every user.
const SharedOwner = "default"

// DefaultSharedCategories names the shared categories every backend starts
// with. The SQLite seed migration inserts the same three.
var DefaultSharedCategories = []string{"Housing", "Food", "Transport"}

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	Currency string

	TransactionKind string

	// SavingsGoal tracks money set aside towards a target. CurrentAmount
	// only grows through contributions.
	SavingsGoal struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		StartDate     time.Time `json:"startDate"`
		TargetDate    time.Time `json:"targetDate"`
	}

	// GoalFields are the user-editable fields of a goal.
	GoalFields struct {
		Name         string
		TargetAmount Money
		StartDate    time.Time
		TargetDate   time.Time
	}

	// ExpenseCategory is a budget bucket. SpendTotal is a running counter of
	// every expense ever recorded against it; Deleted hides it from listings.
	ExpenseCategory struct {
		ID         string `json:"id"`
		UserID     string `json:"userId"`
		Name       string `json:"name"`
		SpendLimit Money  `json:"spendLimit"`
		SpendTotal Money  `json:"spendTotal"`
		Deleted    bool   `json:"deleted"`
	}

	CategoryFields struct {
		Name       string
		SpendLimit Money
	}

	// Transaction is either an expense or an income, told apart by Kind.
	// CategoryID is set on expenses only; GoalID optionally on incomes that
	// come from a goal contribution.
	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Kind        TransactionKind `json:"kind"`
		Amount      Money           `json:"amount"`
		Timestamp   time.Time       `json:"timestamp"`
		Description string          `json:"description"`
		CategoryID  string          `json:"categoryId,omitempty"`
		GoalID      string          `json:"goalId,omitempty"`
	}

	Salary struct {
		Amount   Money    `json:"amount"`
		Currency Currency `json:"currency"`
	}

	// FinancialProfile holds the per-user financial settings.
	FinancialProfile struct {
		UserID        string `json:"userId"`
		Salary        Salary `json:"salary"`
		BalanceTarget Money  `json:"balanceTarget"`
		SpendLimit    Money  `json:"spendLimit"`
	}

	ProfileFields struct {
		Salary        Salary
		BalanceTarget Money
		SpendLimit    Money
	}

	// CategorySpend is a category with its spend inside a period window.
	// CurrentSpend is computed on every read and never stored.
	CategorySpend struct {
		ExpenseCategory
		CurrentSpend Money `json:"currentSpend"`
	}

	// Summary condenses all visible categories over a period.
	Summary struct {
		TotalSpent Money `json:"totalSpent"`
		TotalLimit Money `json:"totalLimit"`
		Balance    Money `json:"balance"`
	}
)

const (
	MXN Currency = "MXN"
	USD Currency = "USD"

	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

func (c Currency) Validate() error {
	switch c {
	case MXN, USD:
		return nil
	default:
		return ErrInvalidCurrency
	}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (f GoalFields) Validate() error {
	if err := validateName(f.Name); err != nil {
		return err
	}
	if f.TargetAmount.Cents <= 0 {
		return ErrInvalidTargetAmount
	}
	if f.StartDate.IsZero() || f.TargetDate.IsZero() {
		return ErrMissingDates
	}
	if f.TargetDate.Before(f.StartDate) {
		return ErrDatesOutOfOrder
	}
	return nil
}

// NewSavingsGoal builds an empty goal owned by userID.
func NewSavingsGoal(userID string, f GoalFields) SavingsGoal {
	return SavingsGoal{
		UserID:       userID,
		Name:         strings.TrimSpace(f.Name),
		TargetAmount: f.TargetAmount,
		StartDate:    f.StartDate,
		TargetDate:   f.TargetDate,
	}
}

// Apply replaces the editable fields and keeps CurrentAmount.
func (g SavingsGoal) Apply(f GoalFields) SavingsGoal {
	g.Name = strings.TrimSpace(f.Name)
	g.TargetAmount = f.TargetAmount
	g.StartDate = f.StartDate
	g.TargetDate = f.TargetDate
	return g
}

func (f CategoryFields) Validate() error {
	if err := validateName(f.Name); err != nil {
		return err
	}
	if f.SpendLimit.IsNegative() {
		return ErrNegativeLimit
	}
	return nil
}

// NewExpenseCategory builds an active category with a zero counter.
func NewExpenseCategory(userID string, f CategoryFields) ExpenseCategory {
	return ExpenseCategory{
		UserID:     userID,
		Name:       strings.TrimSpace(f.Name),
		SpendLimit: f.SpendLimit,
	}
}

// Shared reports whether the category is visible to every user.
func (c ExpenseCategory) Shared() bool {
	return c.UserID == SharedOwner
}

// VisibleTo reports whether userID sees the category in active listings.
func (c ExpenseCategory) VisibleTo(userID string) bool {
	return !c.Deleted && (c.UserID == userID || c.Shared())
}

// NewExpense builds an expense against categoryID.
func NewExpense(userID, categoryID string, amount Money, ts time.Time, description string) Transaction {
	return Transaction{
		UserID:      userID,
		Kind:        KindExpense,
		Amount:      amount,
		Timestamp:   ts,
		Description: strings.TrimSpace(description),
		CategoryID:  categoryID,
	}
}

// NewIncome builds an income; goalID is empty unless it is a contribution.
func NewIncome(userID string, amount Money, ts time.Time, description, goalID string) Transaction {
	return Transaction{
		UserID:      userID,
		Kind:        KindIncome,
		Amount:      amount,
		Timestamp:   ts,
		Description: strings.TrimSpace(description),
		GoalID:      goalID,
	}
}

// IsContribution reports whether the income came from a goal contribution.
func (t Transaction) IsContribution() bool {
	return t.Kind == KindIncome && t.GoalID != ""
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if len(t.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	switch t.Kind {
	case KindExpense:
		if t.CategoryID == "" {
			return ErrMissingCategory
		}
		if t.GoalID != "" {
			return ErrUnexpectedGoal
		}
	case KindIncome:
		if t.CategoryID != "" {
			return ErrUnexpectedCategory
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

func (f ProfileFields) Validate() error {
	if f.Salary.Amount.IsNegative() {
		return ErrNegativeSalary
	}
	if err := f.Salary.Currency.Validate(); err != nil {
		return err
	}
	if f.BalanceTarget.IsNegative() {
		return ErrNegativeTarget
	}
	if f.SpendLimit.IsNegative() {
		return ErrNegativeLimit
	}
	return nil
}

func NewFinancialProfile(userID string, f ProfileFields) FinancialProfile {
	return FinancialProfile{
		UserID:        userID,
		Salary:        f.Salary,
		BalanceTarget: f.BalanceTarget,
		SpendLimit:    f.SpendLimit,
	}
}

// NewSummary derives the balance from the spent and limit totals.
func NewSummary(spent, limit Money) Summary {
	return Summary{TotalSpent: spent, TotalLimit: limit, Balance: limit.Sub(spent)}
}
