package workflow

import "github.com/google/uuid"

// EventType discriminates progress events.
type EventType string

const (
	EventStart    EventType = "start"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a progress notification. For every step a start event precedes
// exactly one complete or error event, and steps are reported in order.
type Event struct {
	Type        EventType `json:"event"`
	RunID       uuid.UUID `json:"run_id"`
	Step        int       `json:"step"`
	TotalSteps  int       `json:"total_steps"`
	PromptID    int64     `json:"prompt_id"`
	PromptTitle string    `json:"prompt_title"`
	Output      *string   `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	// ExecutionTime is in seconds and only set on terminal events.
	ExecutionTime float64 `json:"execution_time,omitempty"`
}

// ProgressFunc receives events synchronously on the executing goroutine.
type ProgressFunc func(Event)

func stepEvent(t EventType, runID uuid.UUID, total int, r StepResult) Event {
	return Event{
		Type:          t,
		RunID:         runID,
		Step:          r.Step,
		TotalSteps:    total,
		PromptID:      r.PromptID,
		PromptTitle:   r.PromptTitle,
		Output:        r.Output,
		Error:         r.Error,
		ExecutionTime: r.ExecutionTime.Seconds(),
	}
}
