package chat

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
)

// Conversation is one reachable channel or direct-message thread.
type Conversation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsDM     bool   `json:"is_im"`
	IsMember bool   `json:"is_member"`
}

type conversationsResponse struct {
	Channels         []Conversation `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

const (
	userScopedPageLimit      = 8
	workspaceScopedPageLimit = 4
	conversationPageSize     = 200
)

// ListConversations enumerates every conversation reachable with the
// client's token, deduplicated by id. User-class tokens go through the
// user-scoped discovery endpoint first; on failure the workspace-scoped
// listing is tried as a logged fallback. Page counts are bounded to cap
// worst-case latency.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	if IsUserToken(c.token) {
		conversations, err := c.listPaginated(ctx, "users.conversations", userScopedPageLimit)
		if err == nil {
			return dedupeConversations(conversations), nil
		}
		slog.WarnContext(ctx, "user-scoped conversation listing failed; falling back to workspace listing",
			"error", err)
	}

	conversations, err := c.listPaginated(ctx, "conversations.list", workspaceScopedPageLimit)
	if err != nil {
		return nil, err
	}
	return dedupeConversations(conversations), nil
}

func (c *Client) listPaginated(ctx context.Context, method string, maxPages int) ([]Conversation, error) {
	var conversations []Conversation
	cursor := ""

	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(conversationPageSize))
		params.Set("types", "im,public_channel,private_channel")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp conversationsResponse
		if err := c.get(ctx, method, params, &resp); err != nil {
			return nil, err
		}

		conversations = append(conversations, resp.Channels...)
		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return conversations, nil
}

func dedupeConversations(conversations []Conversation) []Conversation {
	seen := make(map[string]bool, len(conversations))
	unique := conversations[:0]

	for _, conversation := range conversations {
		if seen[conversation.ID] {
			continue
		}
		seen[conversation.ID] = true
		unique = append(unique, conversation)
	}

	return unique
}
