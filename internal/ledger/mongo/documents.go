package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"finanzas/internal/core"
)

// Collection names.
const (
	goalsCollection      = "savings_goals"
	categoriesCollection = "expense_categories"
	expensesCollection   = "expenses"
	incomesCollection    = "incomes"
	profilesCollection   = "financial_profiles"
)

type goalDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	UserID             string             `bson:"user_id"`
	Name               string             `bson:"name"`
	TargetAmountCents  int64              `bson:"target_amount_cents"`
	CurrentAmountCents int64              `bson:"current_amount_cents"`
	StartDate          time.Time          `bson:"start_date"`
	TargetDate         time.Time          `bson:"target_date"`
}

type categoryDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"user_id"`
	Name            string             `bson:"name"`
	SpendLimitCents int64              `bson:"spend_limit_cents"`
	SpendTotalCents int64              `bson:"spend_total_cents"`
	Deleted         bool               `bson:"deleted"`
}

// transactionDoc is stored in the expenses or incomes collection; the
// collection implies the kind.
type transactionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	AmountCents int64              `bson:"amount_cents"`
	Timestamp   time.Time          `bson:"timestamp"`
	Description string             `bson:"description"`
	CategoryID  string             `bson:"category_id,omitempty"`
	GoalID      string             `bson:"goal_id,omitempty"`
}

type profileDoc struct {
	UserID             string `bson:"user_id"`
	SalaryCents        int64  `bson:"salary_cents"`
	SalaryCurrency     string `bson:"salary_currency"`
	BalanceTargetCents int64  `bson:"balance_target_cents"`
	SpendLimitCents    int64  `bson:"spend_limit_cents"`
}

func (d goalDoc) toCore() core.SavingsGoal {
	return core.SavingsGoal{
		ID:            d.ID.Hex(),
		UserID:        d.UserID,
		Name:          d.Name,
		TargetAmount:  core.Money{Cents: d.TargetAmountCents},
		CurrentAmount: core.Money{Cents: d.CurrentAmountCents},
		StartDate:     d.StartDate.UTC(),
		TargetDate:    d.TargetDate.UTC(),
	}
}

func (d categoryDoc) toCore() core.ExpenseCategory {
	return core.ExpenseCategory{
		ID:         d.ID.Hex(),
		UserID:     d.UserID,
		Name:       d.Name,
		SpendLimit: core.Money{Cents: d.SpendLimitCents},
		SpendTotal: core.Money{Cents: d.SpendTotalCents},
		Deleted:    d.Deleted,
	}
}

func (d transactionDoc) toCore(kind core.TransactionKind) core.Transaction {
	return core.Transaction{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Kind:        kind,
		Amount:      core.Money{Cents: d.AmountCents},
		Timestamp:   d.Timestamp.UTC(),
		Description: d.Description,
		CategoryID:  d.CategoryID,
		GoalID:      d.GoalID,
	}
}

func (d profileDoc) toCore() core.FinancialProfile {
	return core.FinancialProfile{
		UserID:        d.UserID,
		Salary:        core.Salary{Amount: core.Money{Cents: d.SalaryCents}, Currency: core.Currency(d.SalaryCurrency)},
		BalanceTarget: core.Money{Cents: d.BalanceTargetCents},
		SpendLimit:    core.Money{Cents: d.SpendLimitCents},
	}
}

func newProfileDoc(p core.FinancialProfile) profileDoc {
	return profileDoc{
		UserID:             p.UserID,
		SalaryCents:        p.Salary.Amount.Cents,
		SalaryCurrency:     string(p.Salary.Currency),
		BalanceTargetCents: p.BalanceTarget.Cents,
		SpendLimitCents:    p.SpendLimit.Cents,
	}
}
