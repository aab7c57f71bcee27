package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("requested resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrValidation        = errors.New("validation failed")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrInvalidState      = errors.New("operation not permitted in current state")
	ErrConflict          = errors.New("resource conflict")
	ErrPaymentIncomplete = errors.New("payment not completed")
	ErrUpstream          = errors.New("upstream service failure") // identity provider or payment processor
	ErrStorage           = errors.New("storage unavailable")
	ErrRateLimited       = errors.New("too many requests")
	ErrInternalServer    = errors.New("internal server error")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrMissingParameter) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrPaymentIncomplete) {
		return http.StatusPaymentRequired
	}
	if errors.Is(err, ErrUpstream) {
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	if errors.Is(err, ErrStorage) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text sent to clients. Internal and storage failures
// are not echoed verbatim since they may carry driver details.
func PublicMessage(err error) string {
	switch HTTPStatusFromError(err) {
	case http.StatusInternalServerError:
		return ErrInternalServer.Error()
	case http.StatusServiceUnavailable:
		return ErrStorage.Error()
	}
	return err.Error()
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// StorageError tags a driver error as a storage failure while keeping the
// driver error reachable through errors.As.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
