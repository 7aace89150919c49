package services

import (
	"context"
	"fmt"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
)

// EventPublisher publishes ledger events after a write commits.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Ack is the body returned by write operations.
type Ack struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// ExpenseInput is a new expense as supplied by the client. A zero
// Timestamp means now.
type ExpenseInput struct {
	CategoryID  string
	Amount      core.Money
	Timestamp   time.Time
	Description string
}

// IncomeInput is a new income as supplied by the client.
type IncomeInput struct {
	Amount      core.Money
	Timestamp   time.Time
	Description string
}

// LedgerService runs every user-facing ledger operation. All of them are
// scoped to the authenticated userID they receive.
type LedgerService struct {
	store  ledger.Store
	budget *Budget
	events EventPublisher
	logger *applog.Logger
	audit  *applog.StructuredLogger
}

// NewLedgerService wires the service. events may be nil to disable
// publishing; pass an untyped nil, not a nil *amqp.Client.
func NewLedgerService(store ledger.Store, budget *Budget, events EventPublisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentLedger)
	return &LedgerService{
		store:  store,
		budget: budget,
		events: events,
		logger: logger,
		audit:  applog.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) CreateGoal(ctx context.Context, userID string, f core.GoalFields) (Ack, error) {
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	id, err := s.store.InsertGoal(ctx, core.NewSavingsGoal(userID, f))
	if err != nil {
		return Ack{}, fmt.Errorf("create goal: %w", err)
	}
	return Ack{Message: "Savings goal created", ID: id}, nil
}

func (s *LedgerService) ListGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	return s.store.FindGoals(ctx, userID)
}

func (s *LedgerService) GetGoal(ctx context.Context, userID, goalID string) (core.SavingsGoal, error) {
	if err := core.ValidateID(goalID); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.store.FindGoal(ctx, userID, goalID)
}

// UpdateGoal replaces the editable fields; the current amount is kept.
func (s *LedgerService) UpdateGoal(ctx context.Context, userID, goalID string, f core.GoalFields) (Ack, error) {
	if err := core.ValidateID(goalID); err != nil {
		return Ack{}, err
	}
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	matched, err := s.store.UpdateGoal(ctx, userID, goalID, f)
	if err != nil {
		return Ack{}, fmt.Errorf("update goal: %w", err)
	}
	if !matched {
		return Ack{}, core.ErrGoalNotFound
	}
	return Ack{Message: "Savings goal updated"}, nil
}

// DeleteGoal removes the goal. Its contributions stay in the ledger.
func (s *LedgerService) DeleteGoal(ctx context.Context, userID, goalID string) (Ack, error) {
	if err := core.ValidateID(goalID); err != nil {
		return Ack{}, err
	}
	deleted, err := s.store.DeleteGoal(ctx, userID, goalID)
	if err != nil {
		return Ack{}, fmt.Errorf("delete goal: %w", err)
	}
	if !deleted {
		return Ack{}, core.ErrGoalNotFound
	}
	return Ack{Message: "Savings goal deleted"}, nil
}

func (s *LedgerService) ContributeToGoal(ctx context.Context, userID, goalID string, amount core.Money) (Ack, error) {
	id, err := s.budget.ContributeToGoal(ctx, userID, goalID, amount)
	if err != nil {
		return Ack{}, err
	}
	s.audit.LogLedgerWrite(ctx, userID, string(core.KindIncome), goalID, id, amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventGoalContributed, userID, goalID, id, amount.Cents))
	return Ack{Message: "Contribution recorded as income", ID: id}, nil
}

// ListContributions returns the incomes recorded by contributions to the
// goal, newest first. limit <= 0 returns all of them.
func (s *LedgerService) ListContributions(ctx context.Context, userID, goalID string, limit int) ([]core.Transaction, error) {
	if _, err := s.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return s.store.FindTransactions(ctx, ledger.TransactionFilter{
		UserID: userID,
		Kind:   core.KindIncome,
		GoalID: goalID,
		Limit:  limit,
	})
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID string, f core.CategoryFields) (Ack, error) {
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	id, err := s.store.InsertCategory(ctx, core.NewExpenseCategory(userID, f))
	if err != nil {
		return Ack{}, fmt.Errorf("create category: %w", err)
	}
	return Ack{Message: "Expense category created", ID: id}, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID string, period float64) ([]core.CategorySpend, error) {
	return s.budget.SummarizeCategories(ctx, userID, period)
}

// UpdateCategory replaces name and limit of an active owned category.
func (s *LedgerService) UpdateCategory(ctx context.Context, userID, categoryID string, f core.CategoryFields) (Ack, error) {
	if err := core.ValidateID(categoryID); err != nil {
		return Ack{}, err
	}
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	matched, err := s.store.UpdateCategory(ctx, userID, categoryID, f)
	if err != nil {
		return Ack{}, fmt.Errorf("update category: %w", err)
	}
	if !matched {
		return Ack{}, core.ErrCategoryNotFound
	}
	return Ack{Message: "Expense category updated"}, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, userID, categoryID string) (Ack, error) {
	if err := s.budget.DeleteCategory(ctx, userID, categoryID); err != nil {
		return Ack{}, err
	}
	return Ack{Message: "Expense category deleted"}, nil
}

func (s *LedgerService) RecordExpense(ctx context.Context, userID string, in ExpenseInput) (Ack, error) {
	id, err := s.budget.RecordExpense(ctx, userID, in.CategoryID, in.Amount, in.Timestamp, in.Description)
	if err != nil {
		return Ack{}, err
	}
	s.audit.LogLedgerWrite(ctx, userID, string(core.KindExpense), in.CategoryID, id, in.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseRecorded, userID, in.CategoryID, id, in.Amount.Cents))
	return Ack{Message: "Expense recorded", ID: id}, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.FindTransactions(ctx, ledger.TransactionFilter{UserID: userID, Kind: core.KindExpense})
}

// RecordIncome stores a plain income, unrelated to any goal.
func (s *LedgerService) RecordIncome(ctx context.Context, userID string, in IncomeInput) (Ack, error) {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.budget.Now()
	}
	income := core.NewIncome(userID, in.Amount, ts, in.Description, "")
	if err := income.Validate(); err != nil {
		return Ack{}, err
	}
	id, err := s.store.InsertTransaction(ctx, income)
	if err != nil {
		return Ack{}, fmt.Errorf("record income: %w", err)
	}
	s.audit.LogLedgerWrite(ctx, userID, string(core.KindIncome), "", id, in.Amount.Cents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeRecorded, userID, "", id, in.Amount.Cents))
	return Ack{Message: "Income recorded", ID: id}, nil
}

func (s *LedgerService) ListIncomes(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.FindTransactions(ctx, ledger.TransactionFilter{UserID: userID, Kind: core.KindIncome})
}

func (s *LedgerService) Summary(ctx context.Context, userID string, period float64) (core.Summary, error) {
	return s.budget.SummarizeOverall(ctx, userID, period)
}

func (s *LedgerService) CreateProfile(ctx context.Context, userID string, f core.ProfileFields) (Ack, error) {
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	if err := s.store.InsertProfile(ctx, core.NewFinancialProfile(userID, f)); err != nil {
		return Ack{}, err
	}
	return Ack{Message: "Financial profile created"}, nil
}

func (s *LedgerService) GetProfile(ctx context.Context, userID string) (core.FinancialProfile, error) {
	return s.store.FindProfile(ctx, userID)
}

func (s *LedgerService) UpdateProfile(ctx context.Context, userID string, f core.ProfileFields) (Ack, error) {
	if err := f.Validate(); err != nil {
		return Ack{}, err
	}
	matched, err := s.store.UpdateProfile(ctx, userID, f)
	if err != nil {
		return Ack{}, fmt.Errorf("update profile: %w", err)
	}
	if !matched {
		return Ack{}, core.ErrProfileNotFound
	}
	return Ack{Message: "Financial profile updated"}, nil
}

// publish never fails the request: the write has already committed. It
// ignores request cancellation; the publisher bounds the wait itself.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldEventType, ev.Type,
			applog.FieldEntryID, ev.TransactionID,
			applog.FieldError, err)
	}
}
