// Package board turns stored activity signals into a bounded, scored
// task board. The engine is pure: no I/O, no clock reads, every input
// supplied by the caller.
package board

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"pulseboard.app/signals/internal/model"
)

// urgencyHints are always scanned for, in addition to the user's own
// keywords.
var urgencyHints = []string{"asap", "urgent", "eod", "blocking", "today", "now"}

var roleFocusPattern = regexp.MustCompile(`(?i)automation|agent|ai|workflow|enablement`)

// hardTaskCap bounds the board regardless of user settings.
const hardTaskCap = 20

type scoredTask struct {
	model.ScoredTask
	score float64
}

// BuildTaskBoard scores the given signals and returns the board
// entries, highest score first, bounded by the user's task window. The
// internal score is dropped from the output; only the clamped
// confidence survives.
func BuildTaskBoard(user model.User, settings model.PrioritizationSettings, signals []model.ActivitySignal, now time.Time) []model.ScoredTask {
	deduped := dedupeSignals(signals)
	keywords := mergeKeywords(settings.Keywords)

	weighted := make([]scoredTask, 0, len(deduped))
	for _, signal := range deduped {
		dueScore := calcDueScore(signal.DueAt, now)
		urgencyScore := calcUrgencyScore(signal, keywords)
		stakeholderScore := calcStakeholderScore(signal, settings.ExecSenders)
		dependencyScore := calcMeetingDependencyScore(signal, now)
		sourceScore := calcSourceWeight(signal.Source, settings)

		roleBoost := 0.0
		if roleFocusPattern.MatchString(signal.Text()) {
			roleBoost = 0.14
		}

		score := sourceScore + dueScore + urgencyScore + stakeholderScore + dependencyScore + roleBoost
		confidence := math.Max(0.45, math.Min(0.99, score))

		whyParts := make([]string, 0, 6)
		if signal.Author != nil && *signal.Author != "" {
			whyParts = append(whyParts, "from "+*signal.Author)
		}
		if dueScore > 0.15 {
			whyParts = append(whyParts, "has a near deadline")
		} else {
			whyParts = append(whyParts, "active signal")
		}
		if urgencyScore > 0.12 {
			whyParts = append(whyParts, "contains urgency language")
		}
		if stakeholderScore > 0.12 {
			whyParts = append(whyParts, "from a key stakeholder")
		}
		if dependencyScore > 0.12 {
			whyParts = append(whyParts, "is tied to an upcoming meeting")
		}
		if roleBoost > 0 {
			whyParts = append(whyParts, fmt.Sprintf("matches %s focus", user.RoleTitle))
		}

		weighted = append(weighted, scoredTask{
			ScoredTask: model.ScoredTask{
				Title:         signal.Title,
				Source:        signal.Source,
				EffortMinutes: estimateEffort(signal),
				DueAt:         signal.DueAt,
				Column:        pickColumn(score, signal.DueAt, now),
				Link:          signal.URL,
				Confidence:    confidence,
				Why:           strings.Join(whyParts, "; "),
			},
			score: score,
		})
	}

	sort.SliceStable(weighted, func(i, j int) bool {
		return weighted[i].score > weighted[j].score
	})

	bound := max(settings.TaskMin, min(settings.TaskMax, hardTaskCap))
	if len(weighted) > bound {
		weighted = weighted[:bound]
	}

	tasks := make([]model.ScoredTask, len(weighted))
	for i, task := range weighted {
		tasks[i] = task.ScoredTask
	}
	return tasks
}

// dedupeSignals collapses repeats of the same underlying item, keeping
// the most recent occurrence.
func dedupeSignals(signals []model.ActivitySignal) []model.ActivitySignal {
	ordered := make([]model.ActivitySignal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EventAt.After(ordered[j].EventAt)
	})

	seen := make(map[string]bool, len(ordered))
	unique := make([]model.ActivitySignal, 0, len(ordered))
	for _, signal := range ordered {
		key := signalKey(signal)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, signal)
	}
	return unique
}

// signalKey builds the dedup identity. Tracker and manual entries have
// stable external ids; chat-style sources repeat content under fresh
// ids, so their identity is content-shaped instead.
func signalKey(signal model.ActivitySignal) string {
	if signal.Source == model.SourceTracker || signal.Source == model.SourceManual {
		return string(signal.Source) + ":" + normalizeKey(signal.SourceID)
	}

	title := normalizeKey(signal.Title)
	if title == "" {
		return string(signal.Source) + ":" + normalizeKey(signal.SourceID)
	}

	author := normalizeKey(deref(signal.Author))
	channel := normalizeKey(deref(signal.Channel))
	return string(signal.Source) + ":" + title + ":" + author + ":" + channel
}

var keySpacePattern = regexp.MustCompile(`\s+`)

func normalizeKey(value string) string {
	return strings.TrimSpace(keySpacePattern.ReplaceAllString(strings.ToLower(value), " "))
}

func mergeKeywords(userKeywords []string) []string {
	seen := make(map[string]bool, len(urgencyHints)+len(userKeywords))
	merged := make([]string, 0, len(urgencyHints)+len(userKeywords))
	for _, keyword := range urgencyHints {
		if !seen[keyword] {
			seen[keyword] = true
			merged = append(merged, keyword)
		}
	}
	for _, keyword := range userKeywords {
		lowered := strings.ToLower(keyword)
		if !seen[lowered] {
			seen[lowered] = true
			merged = append(merged, lowered)
		}
	}
	return merged
}

func calcSourceWeight(source model.Source, settings model.PrioritizationSettings) float64 {
	switch source {
	case model.SourceManual:
		// Highest priority for manually curated tasks.
		return 0.95
	case model.SourceChat, model.SourceDirect:
		return settings.ChannelWeight
	case model.SourceEmail:
		return settings.EmailWeight
	case model.SourceCalendar:
		return settings.CalendarWeight
	case model.SourceTracker:
		return 0.32
	default:
		return 0.2
	}
}

func calcDueScore(dueAt *time.Time, now time.Time) float64 {
	if dueAt == nil {
		return 0.08
	}
	hours := dueAt.Sub(now).Hours()

	switch {
	case hours <= 0:
		return 0.28
	case hours <= 2:
		return 0.24
	case hours <= 8:
		return 0.18
	case hours <= 24:
		return 0.12
	default:
		return 0.06
	}
}

func calcUrgencyScore(signal model.ActivitySignal, keywords []string) float64 {
	text := strings.ToLower(signal.Text())

	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits++
		}
	}

	score := math.Min(0.22, float64(hits)*0.08)
	if signal.IsMention {
		score += 0.05
	}
	if signal.IsDirectMessage {
		score += 0.05
	}
	if signal.IsFlagged {
		score += 0.05
	}
	return math.Min(0.3, score)
}

func calcStakeholderScore(signal model.ActivitySignal, execSenders []string) float64 {
	if signal.Author == nil || *signal.Author == "" {
		return 0
	}
	author := strings.ToLower(*signal.Author)
	for _, sender := range execSenders {
		if strings.Contains(author, strings.ToLower(sender)) {
			return 0.2
		}
	}
	return 0.04
}

func calcMeetingDependencyScore(signal model.ActivitySignal, now time.Time) float64 {
	if signal.Source != model.SourceCalendar {
		return 0
	}
	if signal.DueAt == nil {
		return 0.07
	}

	hours := signal.DueAt.Sub(now).Hours()
	switch {
	case hours <= 0:
		return 0.16
	case hours <= 3:
		return 0.14
	case hours <= 8:
		return 0.11
	default:
		return 0.06
	}
}

func estimateEffort(signal model.ActivitySignal) int {
	base := 20
	switch signal.Source {
	case model.SourceChat, model.SourceDirect:
		base = 12
	case model.SourceEmail:
		base = 18
	case model.SourceCalendar:
		base = 25
	case model.SourceTracker:
		base = 22
	case model.SourceManual:
		base = 20
	}

	sizeAdjust := int(math.Min(20, math.Round(float64(len(signal.Text()))/45)))
	return base + sizeAdjust
}

func pickColumn(score float64, dueAt *time.Time, now time.Time) model.Column {
	if dueAt != nil && dueAt.Before(now) {
		return model.ColumnNow
	}
	if score >= 0.78 {
		return model.ColumnNow
	}
	if score >= 0.58 {
		return model.ColumnNext
	}
	return model.ColumnWaiting
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
