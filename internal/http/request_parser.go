// This file decodes and validates request bodies and query values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"finanzas/internal/core"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object into dst and validates its tags.
// Unknown fields are ignored, so server-assigned fields sent by a client
// have no effect.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", errBadRequest)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", errBadRequest)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	fields := fieldErrors{}
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describeTag(fe)
	}
	return fields
}

// fieldPath drops the root struct name from the namespace: "salary.currency".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// parsePeriod reads ?period=, defaulting to one month.
func parsePeriod(r *http.Request) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return 1, nil
	}
	return core.ParsePeriod(v)
}

// parseLimit reads ?limit=; absent means no limit.
func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
	}
	return n, nil
}

// Request bodies. None of them carries userId or server-maintained totals.
type (
	goalRequest struct {
		Name         string     `json:"name" validate:"required,max=100"`
		TargetAmount core.Money `json:"targetAmount"`
		StartDate    time.Time  `json:"startDate" validate:"required"`
		TargetDate   time.Time  `json:"targetDate" validate:"required"`
	}

	contributionRequest struct {
		Amount core.Money `json:"amount"`
	}

	categoryRequest struct {
		Name       string     `json:"name" validate:"required,max=100"`
		SpendLimit core.Money `json:"spendLimit"`
	}

	expenseRequest struct {
		CategoryID  string     `json:"categoryId" validate:"required"`
		Amount      core.Money `json:"amount"`
		Timestamp   *time.Time `json:"timestamp"`
		Description string     `json:"description" validate:"max=200"`
	}

	incomeRequest struct {
		Amount      core.Money `json:"amount"`
		Timestamp   *time.Time `json:"timestamp"`
		Description string     `json:"description" validate:"max=200"`
	}

	salaryRequest struct {
		Amount   core.Money `json:"amount"`
		Currency string     `json:"currency" validate:"required,oneof=MXN USD"`
	}

	profileRequest struct {
		Salary        salaryRequest `json:"salary"`
		BalanceTarget core.Money    `json:"balanceTarget"`
		SpendLimit    core.Money    `json:"spendLimit"`
	}
)

func (g goalRequest) fields() core.GoalFields {
	return core.GoalFields{
		Name:         sanitizeInput(g.Name),
		TargetAmount: g.TargetAmount,
		StartDate:    g.StartDate,
		TargetDate:   g.TargetDate,
	}
}

func (c categoryRequest) fields() core.CategoryFields {
	return core.CategoryFields{Name: sanitizeInput(c.Name), SpendLimit: c.SpendLimit}
}

func (p profileRequest) fields() core.ProfileFields {
	return core.ProfileFields{
		Salary:        core.Salary{Amount: p.Salary.Amount, Currency: core.Currency(p.Salary.Currency)},
		BalanceTarget: p.BalanceTarget,
		SpendLimit:    p.SpendLimit,
	}
}

// timestampOrZero leaves the zero time for the service to default to now.
func timestampOrZero(ts *time.Time) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return *ts
}
