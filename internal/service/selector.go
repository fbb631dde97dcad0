package service

import (
	"strings"

	"pulseboard.app/signals/internal/chat"
)

// maxDiscoveryChannels bounds the channel count when none of the user's
// key channels are reachable and the selector falls back to a generic
// sample of member channels.
const maxDiscoveryChannels = 6

// SelectConversations picks which conversations a sync run reads.
// Direct messages always make the cut. Channels are limited to ones the
// user is a member of: the configured key channels when any match, a
// bounded sample otherwise. Order is DMs first so the downstream fetch
// cap never starves them.
func SelectConversations(conversations []chat.Conversation, keyChannels []string) []chat.Conversation {
	keys := make(map[string]bool, len(keyChannels))
	for _, name := range keyChannels {
		if normalized := normalizeChannelName(name); normalized != "" {
			keys[normalized] = true
		}
	}

	var dms, matched, members []chat.Conversation
	for _, conversation := range conversations {
		if conversation.IsDM {
			dms = append(dms, conversation)
			continue
		}
		if !conversation.IsMember {
			continue
		}
		members = append(members, conversation)
		if keys[normalizeChannelName(conversation.Name)] {
			matched = append(matched, conversation)
		}
	}

	selected := dms
	if len(matched) > 0 {
		selected = append(selected, matched...)
	} else {
		if len(members) > maxDiscoveryChannels {
			members = members[:maxDiscoveryChannels]
		}
		selected = append(selected, members...)
	}

	return dedupeByID(selected)
}

func normalizeChannelName(name string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "#")
}

func dedupeByID(conversations []chat.Conversation) []chat.Conversation {
	seen := make(map[string]bool, len(conversations))
	unique := make([]chat.Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		if seen[conversation.ID] {
			continue
		}
		seen[conversation.ID] = true
		unique = append(unique, conversation)
	}
	return unique
}
