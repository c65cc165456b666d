// Package provider holds chat-completion backends for agent nodes. All
// backends speak the OpenAI-compatible wire format; a registry resolves
// "provider/model" identifiers to the backend that serves them.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/borgframework/borg/internal/borg"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
}

type Provider interface {
	Name() string
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ParseModelID splits a "provider/model" identifier. Model names may
// themselves contain slashes (openrouter-style), so only the first
// separator counts.
func ParseModelID(modelID string) (providerName, modelName string, err error) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", borg.NewAdapterError(borg.ErrInvalidConfiguration,
			fmt.Sprintf("invalid model ID %q: expected format 'provider/model'", modelID), nil)
	}
	return parts[0], parts[1], nil
}
