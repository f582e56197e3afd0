package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/smakam/globtranslate-claude/internal/config"
)

// GoogleClient calls the Google Translate v2 REST endpoint. One invocation
// makes exactly one request; quota protection lives in the service above.
type GoogleClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

func NewGoogleClient(cfg config.TranslatorConfig) *GoogleClient {
	return &GoogleClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", err
	}
	apiURL := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate failed: %s", httpStatusReason(resp.StatusCode))
	}
	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate response malformed: %w", err)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("translate response has no candidates")
	}
	// The API may return entity-escaped text.
	return html.UnescapeString(out.Data.Translations[0].TranslatedText), nil
}

func httpStatusReason(code int) string {
	switch code {
	case http.StatusTooManyRequests:
		return "remote rate limit exceeded"
	case http.StatusForbidden:
		return "access denied, check the api key"
	case http.StatusBadRequest:
		return "invalid request"
	default:
		return fmt.Sprintf("status %d", code)
	}
}
