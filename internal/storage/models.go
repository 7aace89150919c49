package storage

import (
	"database/sql"
	"time"

	"finanzas/internal/core"
)

// Row types mirror the tables in migrations/. Instants are stored as Unix
// microseconds so range filters compare integers. Nanoseconds would overflow
// int64 outside 1678-2262.

type SavingsGoal struct {
	ID                 string
	UserID             string
	Name               string
	TargetAmountCents  int64
	CurrentAmountCents int64
	StartDate          int64
	TargetDate         int64
}

type ExpenseCategory struct {
	ID              string
	UserID          string
	Name            string
	SpendLimitCents int64
	SpendTotalCents int64
	Deleted         bool
}

type LedgerTransaction struct {
	ID          string
	UserID      string
	Kind        string
	AmountCents int64
	OccurredAt  int64
	Description string
	CategoryID  sql.NullString
	GoalID      sql.NullString
}

type FinancialProfile struct {
	UserID             string
	SalaryCents        int64
	SalaryCurrency     string
	BalanceTargetCents int64
	SpendLimitCents    int64
}

func unixMicro(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromUnixMicro(n int64) time.Time { return time.UnixMicro(n).UTC() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (g SavingsGoal) toCore() core.SavingsGoal {
	return core.SavingsGoal{
		ID:            g.ID,
		UserID:        g.UserID,
		Name:          g.Name,
		TargetAmount:  core.Money{Cents: g.TargetAmountCents},
		CurrentAmount: core.Money{Cents: g.CurrentAmountCents},
		StartDate:     fromUnixMicro(g.StartDate),
		TargetDate:    fromUnixMicro(g.TargetDate),
	}
}

func (c ExpenseCategory) toCore() core.ExpenseCategory {
	return core.ExpenseCategory{
		ID:         c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		SpendLimit: core.Money{Cents: c.SpendLimitCents},
		SpendTotal: core.Money{Cents: c.SpendTotalCents},
		Deleted:    c.Deleted,
	}
}

func (t LedgerTransaction) toCore() core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Kind:        core.TransactionKind(t.Kind),
		Amount:      core.Money{Cents: t.AmountCents},
		Timestamp:   fromUnixMicro(t.OccurredAt),
		Description: t.Description,
		CategoryID:  t.CategoryID.String,
		GoalID:      t.GoalID.String,
	}
}

func (p FinancialProfile) toCore() core.FinancialProfile {
	return core.FinancialProfile{
		UserID:        p.UserID,
		Salary:        core.Salary{Amount: core.Money{Cents: p.SalaryCents}, Currency: core.Currency(p.SalaryCurrency)},
		BalanceTarget: core.Money{Cents: p.BalanceTargetCents},
		SpendLimit:    core.Money{Cents: p.SpendLimitCents},
	}
}
