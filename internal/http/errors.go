package http

import (
	"errors"
	"net/http"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// Error codes of the JSON error envelope.
const (
	CodeInvalidID      = "invalid_id"
	CodeInvalidPeriod  = "invalid_period"
	CodeInvalidRequest = "invalid_request"
	CodeValidation     = "validation_error"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeDeleteFailed   = "delete_failed"
	CodeUnauthorized   = "unauthorized"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal_error"
)

// errBadRequest marks bodies and query values that could not be parsed.
var errBadRequest = errors.New("invalid request")

// fieldErrors is a validation failure covering several request fields.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string {
	return "validation failed"
}

// errorBody maps err to its status code and envelope. Internal errors get
// a generic message so store details never reach the client.
func errorBody(err error) (int, ErrorBody) {
	var fields fieldErrors
	var verr *core.ValidationError

	switch {
	case errors.As(err, &fields):
		return http.StatusUnprocessableEntity, ErrorBody{Error: fields.Error(), Code: CodeValidation, Fields: fields}
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorBody{
			Error:  verr.Error(),
			Code:   CodeValidation,
			Fields: map[string]string{verr.Field: verr.Reason},
		}
	case errors.Is(err, core.ErrInvalidID):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeInvalidID}
	case errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeInvalidPeriod}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeInvalidRequest}
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Code: CodeUnauthorized}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: err.Error(), Code: CodeNotFound}
	case errors.Is(err, core.ErrProfileExists):
		return http.StatusConflict, ErrorBody{Error: err.Error(), Code: CodeConflict}
	case errors.Is(err, core.ErrDeleteFailed):
		return http.StatusInternalServerError, ErrorBody{Error: err.Error(), Code: CodeDeleteFailed}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: CodeInternal}
	}
}

// writeError logs server-side failures and writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
	NewResponse().Status(status).Body(body).Write(w)
}

// writeRateLimited is the limiter's rejection handler.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, retry later").Write(w)
}
