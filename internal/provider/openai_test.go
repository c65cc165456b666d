package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/borgframework/borg/internal/borg"
)

func TestOpenAIProvider_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody["model"] != "llama3-70b-8192" {
			t.Errorf("unexpected model: %v", reqBody["model"])
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello! How can I help?"}, "finish_reason": "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOpenAIProvider("groq", server.URL+"/v1", "test-key")
	resp, err := p.ChatCompletion(context.Background(), &ChatRequest{
		Model:    "llama3-70b-8192",
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Content != "Hello! How can I help?" {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish_reason: got %q", resp.FinishReason)
	}
}

func TestOpenAIProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   borg.AdapterErrorKind
	}{
		{http.StatusTooManyRequests, borg.ErrRateLimited},
		{http.StatusUnauthorized, borg.ErrInvalidConfiguration},
		{http.StatusGatewayTimeout, borg.ErrTimeout},
		{http.StatusBadGateway, borg.ErrProviderUnavailable},
		{http.StatusBadRequest, borg.ErrProviderRejected},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"error": "nope"}`))
		}))

		p := NewOpenAIProvider("groq", server.URL+"/v1", "test-key")
		_, err := p.ChatCompletion(context.Background(), &ChatRequest{Model: "m"})
		server.Close()

		var ae *borg.AdapterError
		if !errors.As(err, &ae) {
			t.Errorf("status %d: expected adapter error, got %v", tt.status, err)
			continue
		}
		if ae.Kind != tt.kind {
			t.Errorf("status %d: kind = %s, want %s", tt.status, ae.Kind, tt.kind)
		}
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	p := NewOpenAIProvider("groq", "http://localhost:1/v1", "")
	_, err := p.ChatCompletion(context.Background(), &ChatRequest{Model: "m"})
	var ae *borg.AdapterError
	if !errors.As(err, &ae) || ae.Kind != borg.ErrInvalidConfiguration {
		t.Fatalf("expected invalid_configuration, got %v", err)
	}
	if borg.IsRetryable(err) {
		t.Fatal("missing key must not be retryable")
	}
}

func TestOpenAIProvider_Unreachable(t *testing.T) {
	p := NewOpenAIProvider("groq", "http://127.0.0.1:1/v1", "test-key")
	_, err := p.ChatCompletion(context.Background(), &ChatRequest{Model: "m"})
	var ae *borg.AdapterError
	if !errors.As(err, &ae) || ae.Kind != borg.ErrProviderUnavailable {
		t.Fatalf("expected provider_unavailable, got %v", err)
	}
	if !borg.IsRetryable(err) {
		t.Fatal("unreachable provider should be retryable")
	}
}
