package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Source names where a step's prompt content came from.
type Source string

const (
	SourceVersions   Source = "versions"
	SourceRelational Source = "relational"
)

// StepResult records one executed step. Exactly one of Output and Error is
// set. Err carries the failure for errors.Is and is not serialized.
type StepResult struct {
	Step          int           `json:"step"`
	PromptID      int64         `json:"prompt_id"`
	PromptTitle   string        `json:"prompt_title"`
	Input         string        `json:"input"`
	Output        *string       `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
	Err           error         `json:"-"`
	ExecutionTime time.Duration `json:"execution_time"`
	Source        Source        `json:"source,omitempty"`
	// Diverged is set when both content sources held the prompt and
	// disagreed. The versioned copy is used.
	Diverged bool `json:"diverged,omitempty"`
}

// Failed reports whether the step produced an error instead of output.
func (r StepResult) Failed() bool {
	return r.Output == nil
}

// Outcome is the result of one run.
type Outcome struct {
	RunID          uuid.UUID     `json:"run_id"`
	WorkspaceID    int64         `json:"workspace_id"`
	Model          string        `json:"model"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	Results        []StepResult  `json:"results"`
	FinalOutput    string        `json:"final_output"`
	CompletedSteps int           `json:"completed_steps"`
	TotalSteps     int           `json:"total_steps"`
	TotalTime      time.Duration `json:"total_time"`
	Cancelled      bool          `json:"cancelled,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
}

func (o *Outcome) status() string {
	switch {
	case o.Cancelled:
		return "cancelled"
	case o.Success:
		return "success"
	default:
		return "failure"
	}
}
