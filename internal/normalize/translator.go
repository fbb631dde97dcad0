package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Translator converts text to the working language. Implementations
// are best-effort: callers treat any error as "keep the input".
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// translateTimeout keeps a slow translation backend from stalling the
// sync; the caller degrades to the glossary-only text on expiry.
const translateTimeout = 3500 * time.Millisecond

// HTTPTranslator posts to a LibreTranslate-compatible endpoint.
type HTTPTranslator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPTranslator(endpoint, apiKey string) *HTTPTranslator {
	return &HTTPTranslator{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: translateTimeout},
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	payload := map[string]string{
		"q":      text,
		"source": "auto",
		"target": "en",
		"format": "text",
	}
	if t.apiKey != "" {
		payload["api_key"] = t.apiKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("x-api-key", t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading translate response: %w", err)
	}

	// Accept the response shapes of the known backends.
	var decoded struct {
		TranslatedText string `json:"translatedText"`
		Translation    string `json:"translation"`
		Data           struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decoding translate response: %w", err)
	}

	switch {
	case decoded.TranslatedText != "":
		return decoded.TranslatedText, nil
	case decoded.Translation != "":
		return decoded.Translation, nil
	case len(decoded.Data.Translations) > 0 && decoded.Data.Translations[0].TranslatedText != "":
		return decoded.Data.Translations[0].TranslatedText, nil
	}

	return "", fmt.Errorf("translate API returned no translation")
}
