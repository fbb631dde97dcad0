package model

import "time"

// Column is the board lane a scored task lands in. Derived purely from
// score and due date at scoring time; never stored as signal state.
// DONE is only reached by a user action outside the engine.
type Column string

const (
	ColumnNow     Column = "NOW"
	ColumnNext    Column = "NEXT"
	ColumnWaiting Column = "WAITING"
	ColumnDone    Column = "DONE"
)

// ScoredTask is one board entry derived from an ActivitySignal. The
// internal ranking score is dropped before hand-off to the board
// assembler, so it does not appear here.
type ScoredTask struct {
	Title         string
	Source        Source
	EffortMinutes int
	DueAt         *time.Time
	Column        Column
	Link          *string
	Confidence    float64
	Why           string
}

// TrackerRequest is a pending-approval record from the issue tracker,
// supplied by the tracker glue layer. The sync core turns these into
// signals without doing tracker I/O itself.
type TrackerRequest struct {
	IssueKey    string
	Summary     string
	Priority    string
	Requester   string
	Status      string
	IssueURL    string
	CreatedDate time.Time
}
