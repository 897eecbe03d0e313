package schedule

import (
	"time"
)

const documentName = "scheduler"

// TaskError describes the most recent task failure, kept for external
// alerting.
type TaskError struct {
	Task      string    `json:"task"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}

// State is the persisted scheduler state.
type State struct {
	CreatedAt time.Time            `json:"created_at"`
	LastRun   map[string]time.Time `json:"last_run"`
	TotalRuns int                  `json:"total_runs"`
	LastError *TaskError           `json:"last_error,omitempty"`
}
