package model

import "time"

// Source identifies where an activity signal was observed.
type Source string

const (
	// SourceChat covers channel messages from the collaboration
	// platform. Direct messages that arrive through the same transport
	// are SourceChat rows with IsDirectMessage set; SourceDirect exists
	// for platforms that expose DMs as a distinct feed.
	SourceChat     Source = "CHAT"
	SourceDirect   Source = "DIRECT"
	SourceCalendar Source = "CALENDAR"
	SourceEmail    Source = "EMAIL"
	SourceTracker  Source = "TRACKER"
	SourceManual   Source = "MANUAL"
)

// Metadata is the open provenance bag carried by a signal: classifier
// reason and confidence, mention ids, raw-vs-translated text, and
// whatever else a source wants to record. Stored as jsonb.
type Metadata map[string]any

// ActivitySignal is one observed unit of incoming work-relevant
// activity. (UserID, Source, SourceID) is the natural key: re-ingestion
// of the same key is an update, never a duplicate insert.
type ActivitySignal struct {
	ID       int64
	UserID   string
	Source   Source
	SourceID string

	Title        string
	Body         *string
	URL          *string
	Author       *string
	Channel      *string
	PriorityHint float64
	DueAt        *time.Time
	EventAt      time.Time
	Metadata     Metadata

	IsUnread        bool
	IsFlagged       bool
	IsMention       bool
	IsDirectMessage bool
	IsStarred       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NaturalKey returns the stable identity of the signal across
// re-ingestions.
func (s ActivitySignal) NaturalKey() (string, Source, string) {
	return s.UserID, s.Source, s.SourceID
}

// Text returns title and body joined for keyword scans.
func (s ActivitySignal) Text() string {
	if s.Body == nil {
		return s.Title
	}
	return s.Title + " " + *s.Body
}
