package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/condition"
)

// executeNode dispatches a node to its kind handler. The warning return
// carries non-fatal diagnostics (fail-closed condition evaluation).
func (e *Engine) executeNode(ctx context.Context, node *borg.Node, input any) (output any, warning string, err error) {
	switch node.Kind {
	case borg.NodeTrigger:
		// The origin, not computed: the trigger payload passes through.
		return input, "", nil
	case borg.NodeAgent:
		out, err := e.executeAgent(ctx, node, input)
		return out, "", err
	case borg.NodeCondition:
		return e.executeCondition(node, input)
	case borg.NodeAction:
		out, err := e.executeAction(ctx, node, input)
		return out, "", err
	case borg.NodeData:
		out, err := e.executeData(ctx, node, input)
		return out, "", err
	default:
		return nil, "", fmt.Errorf("no handler for node kind %q", node.Kind)
	}
}

// executeAgent builds a system prompt from the agent's identity and
// instructions and forwards the upstream payload's textual content.
func (e *Engine) executeAgent(ctx context.Context, node *borg.Node, input any) (any, error) {
	if e.adapters.Agent == nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "no agent caller configured", nil)
	}
	cfg := node.AgentConfig()
	return callAgent(ctx, e.adapters.Agent, cfg, PayloadText(input))
}

// callAgent is the shared agent invocation path: prompt assembly plus
// the adapter call.
func callAgent(ctx context.Context, caller AgentCaller, cfg borg.AgentConfig, userPrompt string) (string, error) {
	text, err := caller.Call(ctx, BuildSystemPrompt(cfg), userPrompt, cfg.Model, cfg.Temperature)
	if err != nil {
		return "", err
	}
	return text, nil
}

// BuildSystemPrompt assembles an agent node's system prompt from its
// name, description, and instruction list.
func BuildSystemPrompt(cfg borg.AgentConfig) string {
	var sb strings.Builder
	if cfg.Name != "" {
		fmt.Fprintf(&sb, "You are %s.", cfg.Name)
	}
	if cfg.Description != "" {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(cfg.Description)
	}
	if len(cfg.Instructions) > 0 {
		sb.WriteString("\n\nInstructions:")
		for _, inst := range cfg.Instructions {
			sb.WriteString("\n- ")
			sb.WriteString(inst)
		}
	}
	return sb.String()
}

// executeCondition evaluates the node's expression against the upstream
// payload. Evaluation failures fail closed: the node succeeds with
// output false and the error recorded as a warning, and only the false
// branch proceeds.
func (e *Engine) executeCondition(node *borg.Node, input any) (any, string, error) {
	cfg := node.ConditionConfig()
	result, err := condition.Evaluate(cfg.Expression, PayloadMap(input))
	if err != nil {
		return false, err.Error(), nil
	}
	return result, "", nil
}

func (e *Engine) executeAction(ctx context.Context, node *borg.Node, input any) (any, error) {
	if e.adapters.Actions == nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "no action dispatcher configured", nil)
	}
	cfg := node.ActionConfig()
	return e.adapters.Actions.Dispatch(ctx, cfg.ActionType, cfg.Parameters, input)
}

func (e *Engine) executeData(ctx context.Context, node *borg.Node, input any) (any, error) {
	if e.adapters.Data == nil {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "no data reader configured", nil)
	}
	cfg := node.DataConfig()
	return e.adapters.Data.Read(ctx, cfg.Source, cfg.Query, input)
}

// PayloadText extracts the textual content of an upstream payload for
// prompting: a string as-is, a map's "text" field when present,
// otherwise the JSON encoding.
func PayloadText(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}

// PayloadMap coerces an upstream payload into the flat field environment
// condition expressions evaluate against. Agent nodes emit plain text,
// so strings holding a JSON object are decoded and their fields exposed
// directly. Anything else lands under the "input" key.
func PayloadMap(input any) map[string]any {
	switch v := input.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		if trimmed := strings.TrimSpace(v); strings.HasPrefix(trimmed, "{") {
			var fields map[string]any
			if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
				return fields
			}
		}
		return map[string]any{"input": v}
	default:
		return map[string]any{"input": v}
	}
}
