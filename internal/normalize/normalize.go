package normalize

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var (
	whitespacePattern  = regexp.MustCompile(`\s+`)
	userMentionPattern = regexp.MustCompile(`(?i)<@([A-Z0-9]+)>`)
	channelRefPattern  = regexp.MustCompile(`(?i)<#([A-Z0-9]+)\|([^>]+)>`)
	labeledLinkPattern = regexp.MustCompile(`<([^>|]+)\|([^>]+)>`)
	bareLinkPattern    = regexp.MustCompile(`<([^>]+)>`)
	wordPattern        = regexp.MustCompile(`[a-z']+`)
)

// glossary maps known non-English task-signal terms to their working
// language equivalents. Applied before the language heuristic so short
// code-switched requests ("paki review") read as English without a
// translation call.
var glossary = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bpakisuyo\b`), "please"},
	{regexp.MustCompile(`(?i)\bpaki\b`), "please"},
	{regexp.MustCompile(`(?i)\bkailangan\b`), "need"},
	{regexp.MustCompile(`(?i)\bngayon\b`), "today"},
	{regexp.MustCompile(`(?i)\bbukas\b`), "tomorrow"},
	{regexp.MustCompile(`(?i)\bmamaya\b`), "later"},
	{regexp.MustCompile(`(?i)\bagad\b`), "immediately"},
	{regexp.MustCompile(`(?i)\bsalamat\b`), "thanks"},
	{regexp.MustCompile(`(?i)\bpa-?review\b`), "review"},
	{regexp.MustCompile(`(?i)\bpa-?approve\b`), "approve"},
	{regexp.MustCompile(`(?i)\bpa-?update\b`), "update"},
}

var commonEnglishWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "deadline": true, "deploy": true,
	"done": true, "due": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "need": true,
	"next": true, "now": true, "on": true, "please": true, "priority": true,
	"reply": true, "review": true, "schedule": true, "share": true,
	"task": true, "the": true, "this": true, "to": true, "today": true,
	"tomorrow": true, "update": true, "urgent": true, "we": true,
	"with": true, "you": true,
}

// Normalizer turns raw platform markup into working-language plain
// text. Translation is best-effort enrichment: any translator failure
// degrades to the glossary-only result and never aborts the pipeline.
type Normalizer struct {
	translator Translator

	mu   sync.Mutex
	memo map[string]string
}

// New builds a Normalizer. translator may be nil, in which case only
// the glossary pass runs for non-English text.
func New(translator Translator) *Normalizer {
	return &Normalizer{
		translator: translator,
		memo:       make(map[string]string),
	}
}

// Compact collapses runs of whitespace and trims the ends.
func Compact(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// DecodeMarkup rewrites platform mention/link syntax into plain-text
// equivalents: <@U1> -> @U1, <#C1|name> -> #name, <url|label> -> label,
// <url> -> url.
func DecodeMarkup(text string) string {
	text = userMentionPattern.ReplaceAllString(text, "@$1")
	text = channelRefPattern.ReplaceAllString(text, "#$2")
	text = labeledLinkPattern.ReplaceAllString(text, "$2")
	text = bareLinkPattern.ReplaceAllString(text, "$1")
	return text
}

// ApplyGlossary substitutes known non-English task-signal terms.
func ApplyGlossary(text string) string {
	for _, entry := range glossary {
		text = entry.pattern.ReplaceAllString(text, entry.replacement)
	}
	return Compact(text)
}

// LooksLikeEnglish is the cheap gate in front of the translation call:
// ASCII ratio at least 0.9 and common-word hits at least
// max(2, 18% of words). Text without any latin words passes.
func LooksLikeEnglish(text string) bool {
	ascii := 0
	for i := 0; i < len(text); i++ {
		if text[i] < 0x80 {
			ascii++
		}
	}
	total := len(text)
	if total == 0 {
		total = 1
	}
	asciiRatio := float64(ascii) / float64(total)

	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return true
	}

	hits := 0
	for _, word := range words {
		if commonEnglishWords[word] {
			hits++
		}
	}
	minHits := len(words) * 18 / 100
	if minHits < 2 {
		minHits = 2
	}

	return asciiRatio >= 0.9 && hits >= minHits
}

// Normalize runs the full pass: compact, decode markup, glossary,
// language heuristic, optional translation. Results are memoized by
// decoded text for the life of the Normalizer.
func (n *Normalizer) Normalize(ctx context.Context, raw string) string {
	decoded := Compact(DecodeMarkup(raw))
	if decoded == "" {
		return decoded
	}

	n.mu.Lock()
	cached, ok := n.memo[decoded]
	n.mu.Unlock()
	if ok {
		return cached
	}

	result := ApplyGlossary(decoded)

	if !LooksLikeEnglish(result) && n.translator != nil {
		translated, err := n.translator.Translate(ctx, result)
		if err != nil {
			slog.DebugContext(ctx, "translation skipped", "error", err)
		} else if translated != "" {
			result = Compact(translated)
		}
	}

	n.mu.Lock()
	n.memo[decoded] = result
	n.mu.Unlock()

	return result
}
