package domain

import "time"

// ImportAction is the outcome recorded for one source row
type ImportAction string

const (
	ActionUpdated ImportAction = "updated"
	ActionCreated ImportAction = "created"
	ActionSkipped ImportAction = "skipped"
	ActionError   ImportAction = "error"
)

// RunStatus is the terminal state of an import run
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ImportLogEntry is one line of the append-only audit trail of a run
type ImportLogEntry struct {
	RowNumber    int          `json:"rowNumber"`
	Action       ImportAction `json:"action"`
	ProductID    string       `json:"productId,omitempty"`
	OriginName   string       `json:"originName,omitempty"`
	OfficialName string       `json:"officialName,omitempty"`
	MatchedName  string       `json:"matchedName,omitempty"`
	MatchType    MatchType    `json:"matchType,omitempty"`
	MatchScore   float64      `json:"matchScore,omitempty"`
	OldQuantity  float64      `json:"oldQuantity"`
	NewQuantity  float64      `json:"newQuantity"`
	Message      string       `json:"message,omitempty"`
	// Committed is set once the flush carrying this entry's intent succeeded
	Committed bool `json:"committed"`
}

// ImportResult aggregates the counts and the ordered log of one run
type ImportResult struct {
	ID            string           `json:"id"`
	Source        string           `json:"source"`
	Status        RunStatus        `json:"status"`
	DryRun        bool             `json:"dryRun"`
	Processed     int              `json:"processed"`
	Updated       int              `json:"updated"`
	Created       int              `json:"created"`
	Skipped       int              `json:"skipped"`
	Errors        int              `json:"errors"`
	Flushes       int              `json:"flushes"`
	FailureReason string           `json:"failureReason,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
	Logs          []ImportLogEntry `json:"logs"`
}
