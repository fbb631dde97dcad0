package chat

import (
	"regexp"
	"strings"
)

var (
	mentionPattern   = regexp.MustCompile(`(?i)<@([UW][A-Z0-9]+)(?:\|[^>]+)?>`)
	accountIDPattern = regexp.MustCompile(`(?i)\b([UW][A-Z0-9]{5,})\b`)
)

// MentionedUserIDs extracts the user ids explicitly mentioned in raw
// (pre-normalization) message markup, uppercased.
func MentionedUserIDs(raw string) []string {
	matches := mentionPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.ToUpper(match[1]))
	}
	return ids
}

// MentionTargetInput carries everything known about which user id
// "mentions of me" should match against.
type MentionTargetInput struct {
	Configured  string // explicit override from configuration
	AccountID   string // connection's stored account id
	AccountName string // connection's account label, may embed an id
	AuthUserID  string // id reported by the auth probe
	Token       string
}

// ResolveMentionTarget picks the user id used for strict mention
// filtering. Empty result means strict filtering is unavailable and the
// caller should fall back to any-explicit-mention mode.
func ResolveMentionTarget(input MentionTargetInput) string {
	if configured := strings.ToUpper(strings.TrimSpace(input.Configured)); configured != "" {
		return configured
	}

	if accountID := strings.ToUpper(strings.TrimSpace(input.AccountID)); accountID != "" {
		return accountID
	}

	if match := accountIDPattern.FindStringSubmatch(input.AccountName); match != nil {
		return strings.ToUpper(match[1])
	}

	authUserID := strings.ToUpper(strings.TrimSpace(input.AuthUserID))
	if authUserID == "" {
		return ""
	}

	// Bot tokens do not identify the human user to be matched for direct tags.
	if IsBotToken(input.Token) {
		return ""
	}

	return authUserID
}
