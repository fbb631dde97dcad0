package classify

import (
	"context"
	"regexp"
	"strings"
)

var (
	boldPattern          = regexp.MustCompile(`\*([^*]+)\*`)
	italicPattern        = regexp.MustCompile(`_([^_]+)_`)
	strikePattern        = regexp.MustCompile(`~([^~]+)~`)
	inlineCodePattern    = regexp.MustCompile("`([^`]+)`")
	codeBlockPattern     = regexp.MustCompile("```[^`]*```")
	replyPrefixPattern   = regexp.MustCompile(`(?i)^(RE|FWD|FW):\s*`)
	bracketPrefixPattern = regexp.MustCompile(`^\[.*?\]\s*`)
	subjectLinePattern   = regexp.MustCompile(`^[^:]+:\s*`)
	userIDPattern        = regexp.MustCompile(`@[UW][A-Z0-9]+`)

	greetingPattern = regexp.MustCompile(`^(hi|hello|hey|good morning|good afternoon|good evening|greetings)`)
	ackPattern      = regexp.MustCompile(`^(thanks|thank you|ok|okay|got it|noted|yes|yeah|yep|no|nope)`)
	stmtPattern     = regexp.MustCompile(`^i (have|had) (a|an|another)`)

	explicitRequestPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(can you|could you|would you|will you) `),
		regexp.MustCompile(`(?i)^(please|pls) `),
		regexp.MustCompile(`(?i)^(i need you to|need you to) `),
		regexp.MustCompile(`(?i)^(requesting|require) `),
	}
)

// HeuristicClassifier is the deterministic local fallback for the
// classification contract. It is much more conservative than the
// semantic backend: only messages that open with an explicit request,
// or carry an urgency flag, get through.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (h *HeuristicClassifier) Classify(_ context.Context, message string, msgCtx MessageContext) Classification {
	flagged := urgencyPattern.MatchString(message)

	if !msgCtx.IsMention && !msgCtx.IsDirectMessage {
		return reject("not a DM or mention")
	}

	cleaned := cleanForClassification(message)
	if len(cleaned) < 30 {
		return reject("too short")
	}

	lower := strings.ToLower(cleaned)
	switch {
	case greetingPattern.MatchString(lower):
		return reject("greeting")
	case ackPattern.MatchString(lower):
		return reject("acknowledgment")
	case stmtPattern.MatchString(lower):
		return reject("statement not request")
	}

	explicit := false
	for _, pattern := range explicitRequestPatterns {
		if pattern.MatchString(cleaned) {
			explicit = true
			break
		}
	}
	if !explicit && !flagged {
		return reject("no explicit request")
	}

	title := TitleFromText(message)
	if len(title) < 15 {
		return reject("no meaningful task title")
	}

	reason := "explicit request"
	if flagged {
		reason = "urgent request"
	}
	return Classification{
		IsTask:     true,
		TaskTitle:  title,
		Confidence: 0.85,
		Reason:     reason,
	}
}

func reject(reason string) Classification {
	return Classification{IsTask: false, Reason: reason}
}

// cleanForClassification strips formatting, reply prefixes, subject
// lines, and user ids so the rule patterns see the message core.
// Order matters: markdown first, then prefixes, then ids.
func cleanForClassification(text string) string {
	cleaned := compact(text)
	cleaned = boldPattern.ReplaceAllString(cleaned, "$1")
	cleaned = italicPattern.ReplaceAllString(cleaned, "$1")
	cleaned = strikePattern.ReplaceAllString(cleaned, "$1")
	cleaned = inlineCodePattern.ReplaceAllString(cleaned, "$1")
	cleaned = codeBlockPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	cleaned = replyPrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = bracketPrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = subjectLinePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	cleaned = userIDPattern.ReplaceAllString(cleaned, "")
	return compact(cleaned)
}

var (
	spacePattern = regexp.MustCompile(`\s+`)

	// urgencyPattern mirrors the ingestion-side flag: a message that
	// reads urgent survives classification even without an explicit
	// request phrasing.
	urgencyPattern = regexp.MustCompile(`(?i)asap|urgent|eod|blocking|today|now`)
)

func compact(text string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// IsUrgent reports whether text contains urgency language. The sync
// pipeline uses it to flag signals and to keep urgent non-task messages
// on the board.
func IsUrgent(text string) bool {
	return urgencyPattern.MatchString(text)
}
