package provider

import (
	"context"
	"testing"
)

type mockProvider struct {
	name string
	last *ChatRequest
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.last = req
	return &ChatResponse{Content: "mock"}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockProvider{name: "groq"})
	reg.Register(&mockProvider{name: "openai"})
	p, ok := reg.Get("groq")
	if !ok {
		t.Fatal("groq not found")
	}
	if p.Name() != "groq" {
		t.Errorf("name: got %q", p.Name())
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockProvider{name: "groq"})
	p, model, err := reg.Resolve("groq/llama3-70b-8192")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name() != "groq" {
		t.Errorf("provider: got %q", p.Name())
	}
	if model != "llama3-70b-8192" {
		t.Errorf("model: got %q", model)
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.Resolve("unknown/model")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCaller_Call(t *testing.T) {
	mock := &mockProvider{name: "groq"}
	reg := NewRegistry()
	reg.Register(mock)

	c := NewCaller(reg)
	out, err := c.Call(context.Background(), "You are a summarizer.", "summarize this", "groq/llama3-70b-8192", 0.7)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "mock" {
		t.Errorf("output: got %q", out)
	}
	if len(mock.last.Messages) != 2 {
		t.Fatalf("messages: got %d, want system+user", len(mock.last.Messages))
	}
	if mock.last.Messages[0].Role != RoleSystem || mock.last.Messages[1].Role != RoleUser {
		t.Errorf("roles: got %v", mock.last.Messages)
	}
	if mock.last.Temperature == nil || *mock.last.Temperature != 0.7 {
		t.Errorf("temperature not forwarded: %v", mock.last.Temperature)
	}
}
