package chat

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// Identity is the result of the platform's auth probe.
type Identity struct {
	UserID string `json:"user_id"`
	Team   string `json:"team"`
}

// AuthTest verifies the token and returns the authenticated identity.
func (c *Client) AuthTest(ctx context.Context) (Identity, error) {
	var identity Identity
	if err := c.get(ctx, "auth.test", nil, &identity); err != nil {
		return Identity{}, err
	}
	identity.UserID = strings.ToUpper(strings.TrimSpace(identity.UserID))
	return identity, nil
}

type userInfoResponse struct {
	User struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RealName string `json:"real_name"`
		Profile  struct {
			DisplayName        string `json:"display_name"`
			RealName           string `json:"real_name"`
			RealNameNormalized string `json:"real_name_normalized"`
		} `json:"profile"`
	} `json:"user"`
}

// displayNameCache is append-only and keyed by normalized user id.
// Values derive deterministically from the key, so last-writer-wins on
// concurrent lookups is fine.
type displayNameCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func newDisplayNameCache() *displayNameCache {
	return &displayNameCache{names: make(map[string]string)}
}

func (c *displayNameCache) get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}

func (c *displayNameCache) put(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[id] = name
}

// UserDisplayName resolves a platform user id to the best available
// human-readable label. Lookups are memoized for the life of the
// client; a failed lookup caches the raw id so one broken user does not
// generate repeat calls.
func (c *Client) UserDisplayName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}

	normalized := strings.ToUpper(strings.TrimSpace(userID))
	if cached, ok := c.names.get(normalized); ok {
		return cached
	}

	params := url.Values{}
	params.Set("user", normalized)

	var resp userInfoResponse
	if err := c.get(ctx, "users.info", params, &resp); err != nil {
		c.names.put(normalized, normalized)
		return normalized
	}

	label := firstNonEmpty(
		strings.TrimSpace(resp.User.Profile.DisplayName),
		strings.TrimSpace(resp.User.RealName),
		strings.TrimSpace(resp.User.Profile.RealName),
		strings.TrimSpace(resp.User.Name),
		normalized,
	)
	c.names.put(normalized, label)
	return label
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
