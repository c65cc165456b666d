package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

// OpenAIProvider speaks the OpenAI chat-completions wire format, which
// Groq, OpenRouter, Together and most hosted backends also serve.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenAIProvider(name, baseURL, apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("provider %q has no API key configured", p.name), nil)
	}

	jsonData, err := json.Marshal(p.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, borg.NewAdapterError(borg.ErrTimeout,
				fmt.Sprintf("provider %q did not respond in time", p.name), err)
		}
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable,
			fmt.Sprintf("provider %q unreachable", p.name), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(p.name, resp.StatusCode, string(respBody))
	}

	var apiResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderRejected,
			fmt.Sprintf("provider %q returned malformed response", p.name), err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, borg.NewAdapterError(borg.ErrProviderRejected,
			fmt.Sprintf("provider %q returned no choices", p.name), nil)
	}

	choice := apiResp.Choices[0]
	return &ChatResponse{Content: choice.Message.Content, FinishReason: choice.FinishReason}, nil
}

// classifyStatus maps an HTTP error status onto the adapter error
// taxonomy so callers can decide whether to retry.
func classifyStatus(name string, status int, body string) error {
	msg := fmt.Sprintf("provider %q error (status %d): %s", name, status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return borg.NewAdapterError(borg.ErrRateLimited, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return borg.NewAdapterError(borg.ErrInvalidConfiguration, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return borg.NewAdapterError(borg.ErrTimeout, msg, nil)
	case status >= 500:
		return borg.NewAdapterError(borg.ErrProviderUnavailable, msg, nil)
	default:
		return borg.NewAdapterError(borg.ErrProviderRejected, msg, nil)
	}
}

func (p *OpenAIProvider) buildRequestBody(req *ChatRequest) map[string]any {
	messages := make([]map[string]any, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = map[string]any{"role": string(m.Role), "content": m.Content}
	}
	body := map[string]any{"model": req.Model, "messages": messages, "stream": false}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		body["max_tokens"] = *req.MaxTokens
	}
	return body
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
}
type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
