package workspaces

import (
	"errors"
	"net/http"
)

// Domain errors for workspace operations.
var (
	ErrNotFound        = errors.New("workspace not found")
	ErrDuplicate       = errors.New("prompt already in workspace")
	ErrPromptNotFound  = errors.New("prompt not found")
	ErrDuplicatePrompt = errors.New("duplicate prompt in sequence")
	ErrNotAssociated   = errors.New("prompt not in workspace")
	ErrEmptySequence   = errors.New("prompt sequence must not be empty")
	ErrInvalidName     = errors.New("workspace name required")
)

// MapHTTPStatus maps workspace domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPromptNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrDuplicatePrompt),
		errors.Is(err, ErrNotAssociated),
		errors.Is(err, ErrEmptySequence),
		errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
