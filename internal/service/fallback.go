package service

import (
	"time"

	"pulseboard.app/signals/common/id"
	"pulseboard.app/signals/common/logger"
	"pulseboard.app/signals/internal/model"
)

// demoTokenPrefix marks placeholder credentials written by demo seeds.
// A connection carrying one is not usable and is self-healed to
// disconnected on the next sync.
const demoTokenPrefix = "demo_access_"

// legacySignalPrefixes are source_id prefixes written by earlier builds
// and seed scripts. Every sync purges them so stale rows cannot shadow
// live data.
var legacySignalPrefixes = []string{
	"slack-mention-",
	"slack-dm-",
	"meeting-prep-",
	"email-flagged-",
	"seed-slack-",
	"seed-email-",
	"seed-calendar-",
}

// demoChatPlaceholderIDs are the synthetic chat rows the fallback path
// writes. They are removed whenever the live path produced signals.
var demoChatPlaceholderIDs = []string{
	"fallback-slack-mention",
	"fallback-slack-dm",
}

// retiredSources no longer have a live ingestion path. Rows from older
// builds, including the fallback-outlook-* placeholders, are purged on
// every sync; tracker signals are built fresh at board time instead of
// being persisted.
var retiredSources = []model.Source{
	model.SourceCalendar,
	model.SourceEmail,
	model.SourceTracker,
}

// fallbackChatSignals fabricates two recognizable chat signals so a
// demo environment with no live connection still renders a board.
func fallbackChatSignals(userID string, now time.Time) []model.ActivitySignal {
	mentionAt := now.Add(-35 * time.Minute)
	dmAt := now.Add(-80 * time.Minute)

	return []model.ActivitySignal{
		{
			ID:           id.New(),
			UserID:       userID,
			Source:       model.SourceChat,
			SourceID:     "fallback-slack-mention",
			Title:        "Review automation rollout checklist before standup",
			Body:         logger.Ptr("Can you review the automation rollout checklist before standup today?"),
			Author:       logger.Ptr("Priya Patel"),
			Channel:      logger.Ptr("#automation-requests"),
			PriorityHint: 0.72,
			EventAt:      mentionAt,
			Metadata:     model.Metadata{"demo": true, "type": "channel"},
			IsUnread:     true,
			IsFlagged:    true,
			IsMention:    true,
		},
		{
			ID:              id.New(),
			UserID:          userID,
			Source:          model.SourceChat,
			SourceID:        "fallback-slack-dm",
			Title:           "Share the enablement workshop agenda",
			Body:            logger.Ptr("Please share the enablement workshop agenda when you get a chance."),
			Author:          logger.Ptr("Miguel Santos"),
			Channel:         logger.Ptr("DM"),
			PriorityHint:    0.58,
			EventAt:         dmAt,
			Metadata:        model.Metadata{"demo": true, "type": "dm"},
			IsUnread:        true,
			IsDirectMessage: true,
		},
	}
}
