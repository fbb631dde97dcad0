package classify

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	taskPrefixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(can you|could you|would you|please|pls|kindly)\s+`),
		regexp.MustCompile(`(?i)^(i need you to|need you to|need to)\s+`),
		regexp.MustCompile(`(?i)^(action item|todo|to-do|next step|follow up|follow-up)\s*[:\-]?\s*`),
	}

	rePrefixPattern       = regexp.MustCompile(`(?i)^RE:\s*`)
	fwdPrefixPattern      = regexp.MustCompile(`(?i)^FWD:\s*`)
	leadingMentionPattern = regexp.MustCompile(`^(@[A-Za-z0-9._-]+\s+)+`)
	trailingThanksPattern = regexp.MustCompile(`(?i)\b(thanks|thank you|pls|please)\b[!. ]*$`)
	clauseSplitPattern    = regexp.MustCompile(`[.!?\n;]`)
)

// TitleFromText derives a short task title from a message: strip
// formatting and prefixes, take the first non-empty clause, capitalize,
// cap at 120 characters.
func TitleFromText(text string) string {
	value := compact(text)
	if value == "" {
		return ""
	}

	value = boldPattern.ReplaceAllString(value, "$1")
	value = italicPattern.ReplaceAllString(value, "$1")
	value = strikePattern.ReplaceAllString(value, "$1")
	value = inlineCodePattern.ReplaceAllString(value, "$1")
	value = codeBlockPattern.ReplaceAllString(value, "")
	value = strings.TrimSpace(value)

	value = rePrefixPattern.ReplaceAllString(value, "")
	value = fwdPrefixPattern.ReplaceAllString(value, "")
	value = bracketPrefixPattern.ReplaceAllString(value, "")
	value = strings.TrimSpace(value)

	value = leadingMentionPattern.ReplaceAllString(value, "")
	value = userIDPattern.ReplaceAllString(value, "")

	for _, pattern := range taskPrefixPatterns {
		value = pattern.ReplaceAllString(value, "")
	}

	value = trailingThanksPattern.ReplaceAllString(value, "")
	value = compact(value)

	task := firstClause(value)
	if task == "" {
		return ""
	}

	normalized := capitalize(task)
	if len(normalized) > 120 {
		normalized = strings.TrimRight(normalized[:117], " ") + "..."
	}
	return normalized
}

func firstClause(value string) string {
	for _, clause := range clauseSplitPattern.Split(value, -1) {
		if trimmed := strings.TrimSpace(clause); trimmed != "" {
			return trimmed
		}
	}
	return value
}

func capitalize(value string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
