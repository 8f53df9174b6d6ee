package core

import "time"

// RunStatus is the execution status of an asynchronous backend job.
type RunStatus string

// Run status constants.
const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions can occur.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known statuses.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusQueued, RunStatusRunning, RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

func (s RunStatus) rank() int {
	switch s {
	case RunStatusQueued:
		return 0
	case RunStatusRunning:
		return 1
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next keeps the status
// monotone: QUEUED -> RUNNING -> {SUCCEEDED|FAILED|CANCELLED}.
// Staying in the same status is allowed; terminal statuses are final.
func (s RunStatus) CanTransition(next RunStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// QueryRun is a historical execution record of a saved query.
type QueryRun struct {
	ID           string            `json:"id"`
	QueryID      string            `json:"queryId"`
	SQL          string            `json:"sql"`
	ExecutionID  string            `json:"executionId"`
	Status       RunStatus         `json:"status"`
	ResultsS3URL string            `json:"resultsS3Url,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	ExecutedAt   time.Time         `json:"executedAt"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
}

// Duration returns how long the run took, or zero while it is still active.
func (r QueryRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.ExecutedAt)
}

// ExecuteRequest is the body of execution requests.
type ExecuteRequest struct {
	SQL        string            `json:"sql"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ExecuteResponse carries the opaque identifier of the submitted job.
type ExecuteResponse struct {
	ExecutionID string `json:"executionId"`
}

// QueryResults is one page of results for an execution.
type QueryResults struct {
	Columns      []string   `json:"columns"`
	Rows         [][]string `json:"rows"`
	Total        int64      `json:"total"`
	Page         int        `json:"page"`
	Size         int        `json:"size"`
	Status       RunStatus  `json:"status"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Error returns the backend-supplied error message, if any.
func (r *QueryResults) Error() string {
	if r == nil || r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}
