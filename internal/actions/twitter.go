package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

const twitterPostURL = "https://api.twitter.com/2/tweets"

// TwitterAction posts the upstream payload as a tweet using a bearer
// token. Parameters: text (overrides the payload text).
type TwitterAction struct {
	token   string
	postURL string
	client  *http.Client
}

func NewTwitterAction(bearerToken string) *TwitterAction {
	return &TwitterAction{
		token:   bearerToken,
		postURL: twitterPostURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *TwitterAction) Type() string { return "twitter" }

func (a *TwitterAction) Execute(ctx context.Context, params map[string]any, input any) (any, error) {
	if a.token == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "twitter action has no bearer token configured", nil)
	}
	text := paramString(params, "text")
	if text == "" {
		text = renderBody(input)
	}
	if text == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "twitter action has no text to post", nil)
	}
	// The API rejects tweets over 280 characters outright.
	if runes := []rune(text); len(runes) > 280 {
		text = string(runes[:277]) + "..."
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.postURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "twitter API unreachable", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if resp.StatusCode >= 400 {
		kind := borg.ErrProviderRejected
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = borg.ErrRateLimited
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			kind = borg.ErrInvalidConfiguration
		case resp.StatusCode >= 500:
			kind = borg.ErrProviderUnavailable
		}
		return nil, borg.NewAdapterError(kind,
			fmt.Sprintf("twitter API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var created struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("decode twitter response: %w", err)
	}
	return map[string]any{"status": "posted", "tweet_id": created.Data.ID}, nil
}
