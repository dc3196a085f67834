package prompts

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/prompthub/internal/versions"
)

// Domain errors for prompt operations.
var (
	ErrNotFound     = errors.New("prompt not found")
	ErrInvalidTitle = errors.New("prompt title required")
)

// MapHTTPStatus maps prompt domain errors to appropriate HTTP status codes.
// Version store failures surfaced by a Publisher keep their own mapping.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidTitle) {
		return http.StatusBadRequest
	}
	return versions.MapHTTPStatus(err)
}
