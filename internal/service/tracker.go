package service

import (
	"fmt"
	"strings"
	"time"

	"pulseboard.app/signals/common/id"
	"pulseboard.app/signals/common/logger"
	"pulseboard.app/signals/internal/model"
)

const maxTrackerSignals = 10

// BuildTrackerSignals turns pending-approval records from the issue
// tracker into board-eligible signals. The tracker rows have no real
// deadline, so due dates are staggered into the near future to keep the
// oldest approvals from all landing in the same scoring bucket. Pure:
// the caller owns tracker I/O and persistence.
func BuildTrackerSignals(userID string, requests []model.TrackerRequest, now time.Time) []model.ActivitySignal {
	if len(requests) > maxTrackerSignals {
		requests = requests[:maxTrackerSignals]
	}

	signals := make([]model.ActivitySignal, 0, len(requests))
	for i, request := range requests {
		highPriority := isHighPriority(request.Priority)

		priorityHint := 0.62
		if highPriority {
			priorityHint = 0.84
		}

		dueAt := now.Add(time.Duration(i+3) * 90 * time.Minute)
		body := fmt.Sprintf("%s is waiting on approval (status: %s)", request.Requester, request.Status)

		signal := model.ActivitySignal{
			ID:           id.New(),
			UserID:       userID,
			Source:       model.SourceTracker,
			SourceID:     request.IssueKey,
			Title:        fmt.Sprintf("Review approval %s: %s", request.IssueKey, request.Summary),
			Body:         logger.Ptr(body),
			Author:       logger.Ptr(request.Requester),
			PriorityHint: priorityHint,
			DueAt:        &dueAt,
			EventAt:      request.CreatedDate,
			Metadata: model.Metadata{
				"priority": request.Priority,
				"status":   request.Status,
			},
			IsUnread:  true,
			IsFlagged: highPriority,
		}
		if request.IssueURL != "" {
			signal.URL = logger.Ptr(request.IssueURL)
		}
		signals = append(signals, signal)
	}
	return signals
}

func isHighPriority(priority string) bool {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "highest", "high", "urgent", "critical", "blocker":
		return true
	default:
		return false
	}
}
