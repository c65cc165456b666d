package provider

import "context"

// Caller turns a provider registry into the single-call interface agent
// nodes execute through.
type Caller struct {
	registry *Registry
}

func NewCaller(registry *Registry) *Caller {
	return &Caller{registry: registry}
}

// Call resolves the model identifier, sends one system+user exchange,
// and returns the generated text.
func (c *Caller) Call(ctx context.Context, systemPrompt, userPrompt, model string, temperature float64) (string, error) {
	p, modelName, err := c.registry.Resolve(model)
	if err != nil {
		return "", err
	}

	req := &ChatRequest{Model: modelName}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: userPrompt})
	if temperature > 0 {
		req.Temperature = &temperature
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
