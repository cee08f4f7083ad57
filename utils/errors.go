package utils

import (
	"errors"
	"net/http"
)

// Domain errors returned (wrapped) by the service layer. Callers match them
// with errors.Is. None of them is retried by the core.
var (
	ErrNotFound          = errors.New("not_found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidTarget     = errors.New("invalid_target")
	ErrAlreadyResolved   = errors.New("already_resolved")
	ErrValidation        = errors.New("validation_error")

	// ErrInconsistentState means a rollback failed after a partial write and
	// an operator has to look at the data.
	ErrInconsistentState = errors.New("inconsistent_state")
)

const (
	ErrCodeInvalidPayload    = "invalid_payload"
	ErrCodeValidation        = "validation_error"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeInvalidTarget     = "invalid_target"
	ErrCodeAlreadyResolved   = "already_resolved"
	ErrCodeForbidden         = "forbidden"
	ErrCodeInconsistentState = "inconsistent_state"
	ErrCodeInternal          = "internal_error"
)

// AppError is the HTTP shape of a service error.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// ToAppError classifies err into the status/code/message shown to dashboards.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return &AppError{http.StatusNotFound, ErrCodeNotFound, "Resource not found", err}
	case errors.Is(err, ErrInvalidTarget):
		return &AppError{http.StatusConflict, ErrCodeInvalidTarget, "This bed was just taken, please choose another", err}
	case errors.Is(err, ErrConflict):
		return &AppError{http.StatusConflict, ErrCodeConflict, "This bed was just taken, please choose another", err}
	case errors.Is(err, ErrAlreadyResolved):
		return &AppError{http.StatusConflict, ErrCodeAlreadyResolved, "This request was already handled", err}
	case errors.Is(err, ErrInvalidTransition):
		return &AppError{http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "This status change is not allowed", err}
	case errors.Is(err, ErrValidation):
		return &AppError{http.StatusBadRequest, ErrCodeValidation, "Invalid request", err}
	case errors.Is(err, ErrInconsistentState):
		return &AppError{http.StatusInternalServerError, ErrCodeInconsistentState, "Occupancy data needs operator attention", err}
	default:
		return &AppError{http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", err}
	}
}
