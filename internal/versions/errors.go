package versions

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("revision or prompt not found")
	ErrIO            = errors.New("working copy io failure")
	ErrBackend       = errors.New("version backend failure")
	ErrInvalidPrompt = errors.New("invalid prompt id")
)

// MapHTTPStatus maps version store errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPrompt):
		return http.StatusBadRequest
	case errors.Is(err, ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
