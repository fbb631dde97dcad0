package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

// Client is a thin caller over the collaboration platform's Web API.
// All methods are read-only GETs with a bearer token; the platform
// wraps every response in an {ok, error} envelope.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string

	names *displayNameCache
}

type Option func(*Client)

// WithBaseURL overrides the API root. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		names:      newDisplayNameCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsUserToken reports whether token belongs to the user token class
// (as opposed to a bot or app-level token).
func IsUserToken(token string) bool {
	return strings.HasPrefix(token, "xoxp-") ||
		strings.HasPrefix(token, "xwfp-") ||
		strings.HasPrefix(token, "xoxs-")
}

// IsBotToken reports whether token is a bot token. Bot tokens cannot
// read DMs or identify the human user behind the connection.
func IsBotToken(token string) bool {
	return strings.HasPrefix(token, "xoxb-")
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Method: method, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding %s envelope: %w", method, err)
	}
	if !envelope.OK {
		code := envelope.Error
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", method, err)
		}
	}
	return nil
}
