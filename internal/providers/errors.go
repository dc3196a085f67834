package providers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoProvider    = errors.New("no provider found for model")
	ErrProvider      = errors.New("provider request failed")
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

// ProviderError describes a failed provider call. It matches ErrProvider
// under errors.Is.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Model, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrProvider
}

// MapHTTPStatus maps provider errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoProvider), errors.Is(err, ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
