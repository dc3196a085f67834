package executions

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound = errors.New("execution not found")
	ErrArchive  = errors.New("execution archive failure")
)

// MapHTTPStatus maps archive errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrArchive):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
