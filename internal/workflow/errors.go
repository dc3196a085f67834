package workflow

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/prompthub/internal/providers"
)

var (
	ErrNoPrompts       = errors.New("no prompts in sequence")
	ErrContentNotFound = errors.New("content not found")
	ErrCancelled       = errors.New("execution cancelled")

	// ErrStepTimeout is a provider failure: the call outlived the step timeout.
	ErrStepTimeout = fmt.Errorf("%w: step timed out", providers.ErrProvider)
)
