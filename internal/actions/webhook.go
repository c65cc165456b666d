package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

// maxWebhookResponse caps how much of a webhook response body gets
// recorded in the run log.
const maxWebhookResponse = 64 * 1024

// WebhookAction posts the upstream payload as JSON to an external URL.
// Parameters: url (required), method, headers.
type WebhookAction struct {
	client *http.Client
}

func NewWebhookAction() *WebhookAction {
	return &WebhookAction{client: &http.Client{Timeout: 30 * time.Second}}
}

func (a *WebhookAction) Type() string { return "webhook" }

func (a *WebhookAction) Execute(ctx context.Context, params map[string]any, input any) (any, error) {
	url := paramString(params, "url")
	if url == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "webhook action requires a 'url' parameter", nil)
	}
	method := strings.ToUpper(paramString(params, "method"))
	if method == "" {
		method = http.MethodPost
	}

	var bodyReader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("webhook action: bad request: %v", err), err)
	}
	req.Header.Set("Content-Type", "application/json")
	if hdrs, ok := params["headers"].(map[string]any); ok {
		for k, v := range hdrs {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable,
			fmt.Sprintf("webhook target %s unreachable", url), err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
	if resp.StatusCode >= 400 {
		kind := borg.ErrProviderRejected
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = borg.ErrRateLimited
		case resp.StatusCode >= 500:
			kind = borg.ErrProviderUnavailable
		}
		return nil, borg.NewAdapterError(kind,
			fmt.Sprintf("webhook target returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(bodyBytes),
	}, nil
}
