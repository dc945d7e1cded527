package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflictRetryable = errors.New("conflict, retry the operation")
	ErrExternalGateway   = errors.New("payment gateway error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsConflictRetryable(err error) bool {
	return errors.Is(err, ErrConflictRetryable)
}

func IsExternalGateway(err error) bool {
	return errors.Is(err, ErrExternalGateway)
}

// HTTPStatus maps an error to the status code the HTTP layer answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidState(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsConflictRetryable(err):
		return http.StatusServiceUnavailable
	case IsExternalGateway(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
