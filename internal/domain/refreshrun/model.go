package refreshrun

import "time"

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Run is the audit record of one refresh invocation for one game.
type Run struct {
	RunID        string
	Game         string
	Tier         string
	Division     string
	ForceRefresh bool
	Status       Status
	TotalRegions int
	SuccessCount int
	FailureCount int
	SkippedCount int
	Summary      map[string]any
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
	TraceID      string
	SpanID       string
}

// StatusFor derives the terminal status from outcome counts.
func StatusFor(successCount, failureCount, skippedCount int) Status {
	switch {
	case failureCount == 0:
		return StatusCompleted
	case successCount+skippedCount > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
