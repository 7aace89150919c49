package core

import (
	"errors"
	"fmt"
)

// Error taxonomy of the ledger. Every failure is scoped to a single request
// and surfaced to the caller as is; nothing here is retried.
var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrNotFound      = errors.New("not found")
	ErrDeleteFailed  = errors.New("delete failed")
	ErrProfileExists = errors.New("financial profile already exists")

	ErrCategoryNotFound = fmt.Errorf("expense category %w", ErrNotFound)
	ErrGoalNotFound     = fmt.Errorf("savings goal %w", ErrNotFound)
	ErrProfileNotFound  = fmt.Errorf("financial profile %w", ErrNotFound)
)

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) hold for any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrInvalidAmount       = &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	ErrEmptyName           = &ValidationError{Field: "name", Reason: "cannot be empty"}
	ErrNameTooLong         = &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	ErrDescriptionTooLong  = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	ErrInvalidTargetAmount = &ValidationError{Field: "targetAmount", Reason: "must be greater than zero"}
	ErrNegativeLimit       = &ValidationError{Field: "spendLimit", Reason: "cannot be negative"}
	ErrNegativeTarget      = &ValidationError{Field: "balanceTarget", Reason: "cannot be negative"}
	ErrNegativeSalary      = &ValidationError{Field: "salary.amount", Reason: "cannot be negative"}
	ErrInvalidCurrency     = &ValidationError{Field: "salary.currency", Reason: "must be MXN or USD"}
	ErrMissingDates        = &ValidationError{Field: "startDate", Reason: "start and target dates are required"}
	ErrDatesOutOfOrder     = &ValidationError{Field: "targetDate", Reason: "cannot be before startDate"}
	ErrMissingCategory     = &ValidationError{Field: "categoryId", Reason: "required for expenses"}
	ErrUnexpectedCategory  = &ValidationError{Field: "categoryId", Reason: "only expenses reference a category"}
	ErrUnexpectedGoal      = &ValidationError{Field: "goalId", Reason: "only incomes reference a goal"}
	ErrInvalidKind         = &ValidationError{Field: "kind", Reason: "must be expense or income"}
	ErrMissingTimestamp    = &ValidationError{Field: "timestamp", Reason: "cannot be zero"}
)
