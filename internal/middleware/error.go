package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"
	"go-school-admin/internal/metrics"
	"go-school-admin/internal/service"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewAppError maps err to an AppError with the matching HTTP status.
func NewAppError(err error) *AppError {
	return &AppError{Error: err, Message: err.Error(), Code: StatusFor(err)}
}

// StatusFor returns the HTTP status reported for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrOwnerDeleted):
		return http.StatusGone
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrConcurrencyConflict),
		errors.Is(err, data.ErrDuplicateAttachment),
		errors.Is(err, data.ErrDuplicateMembership),
		errors.Is(err, data.ErrHasChildren),
		errors.Is(err, data.ErrHasMembers),
		errors.Is(err, data.ErrMediaInUse):
		return http.StatusConflict
	case errors.Is(err, data.ErrCycleDetected),
		errors.Is(err, data.ErrIncompleteOrderSet),
		errors.Is(err, data.ErrCrossTypeViolation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error is a middleware that converts handler errors into JSON error responses.
func Error(log logger.Logger, m *metrics.Metrics) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					m.ObserveError(err)
					WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
				}
			}()

			appErr := next(w, r)
			if appErr == nil {
				return
			}
			m.ObserveError(appErr.Error)
			body := errorBody{Error: appErr.Message, Code: data.Code(appErr.Error)}
			if appErr.Code >= http.StatusInternalServerError {
				log.Error(appErr.Error, appErr.Message)
				body.Error = "internal server error"
			} else if errors.Is(appErr.Error, service.ErrInvalidInput) {
				body.Code = "invalid_input"
			}
			WriteJSON(w, appErr.Code, body)
		})
	}
}
