package chat

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Message is one raw message from a conversation's history.
type Message struct {
	TS       string `json:"ts"`
	Text     string `json:"text"`
	User     string `json:"user"`
	Subtype  string `json:"subtype"`
	ThreadTS string `json:"thread_ts"`
}

type historyResponse struct {
	Messages []Message `json:"messages"`
}

const historyPageSize = 120

// History fetches up to 120 messages from one conversation, newest
// first, bounded below by oldest (inclusive).
func (c *Client) History(ctx context.Context, conversationID string, oldest time.Time) ([]Message, error) {
	params := url.Values{}
	params.Set("channel", conversationID)
	params.Set("oldest", strconv.FormatInt(oldest.Unix(), 10))
	params.Set("limit", strconv.Itoa(historyPageSize))
	params.Set("inclusive", "true")

	var resp historyResponse
	if err := c.get(ctx, "conversations.history", params, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// EventTime converts the message's ts field into a timestamp.
// Returns false when ts is missing or unparseable.
func (m Message) EventTime() (time.Time, bool) {
	if m.TS == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseFloat(m.TS, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, int64(secs*float64(time.Second))), true
}
