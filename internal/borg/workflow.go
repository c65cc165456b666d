// Package borg defines the core domain types for the Borg workflow engine:
// workflow documents, node kinds, execution runs, and the error taxonomy
// shared by the engine, adapters, and API layers.
package borg

import "time"

// NodeKind identifies the behavior of a workflow node.
type NodeKind string

const (
	NodeTrigger   NodeKind = "trigger"
	NodeAgent     NodeKind = "agent"
	NodeCondition NodeKind = "condition"
	NodeAction    NodeKind = "action"
	NodeData      NodeKind = "data"
)

// Condition output ports. Edges leaving a condition node must name one.
const (
	PortTrue  = "true"
	PortFalse = "false"
)

// WorkflowStatus is the lifecycle state of a workflow document.
type WorkflowStatus string

const (
	WorkflowDraft  WorkflowStatus = "draft"
	WorkflowActive WorkflowStatus = "active"
	WorkflowPaused WorkflowStatus = "paused"
)

// Workflow is a named graph of nodes and edges, persisted as a single
// JSON document. The document is decoded once at load time; the engine
// never re-parses per access.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Status      WorkflowStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Node is a typed unit of work. Config is kind-specific; the typed
// accessors below decode it without re-parsing.
type Node struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"kind"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
}

// Position is canvas layout metadata. It never affects execution.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed connection between two node ports. SourcePort is
// required for condition source nodes ("true"|"false") and empty otherwise.
type Edge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SourcePort string `json:"source_port,omitempty"`
	Target     string `json:"target"`
}

// TriggerType identifies how a workflow execution was initiated.
type TriggerType string

const (
	TriggerManual  TriggerType = "manual"
	TriggerCron    TriggerType = "cron"
	TriggerWebhook TriggerType = "webhook"
	TriggerEvent   TriggerType = "event"
)

// TriggerConfig is the decoded config of a trigger node.
type TriggerConfig struct {
	TriggerType TriggerType
	Schedule    string // cron expression, for cron triggers
	WebhookPath string // for webhook triggers
	EventName   string // for event triggers
}

// AgentConfig is the decoded config of an agent node.
type AgentConfig struct {
	Name         string
	Description  string
	Instructions []string
	Model        string
	Temperature  float64
}

// ConditionConfig is the decoded config of a condition node.
type ConditionConfig struct {
	Expression string
}

// ActionConfig is the decoded config of an action node.
type ActionConfig struct {
	ActionType string // email | webhook | database | drive | twitter
	Parameters map[string]any
}

// DataConfig is the decoded config of a data node.
type DataConfig struct {
	Source string // supabase | sheets | airtable | csv | rss
	Query  string
}

// TriggerConfig decodes the node's config as a trigger config.
func (n *Node) TriggerConfig() TriggerConfig {
	return TriggerConfig{
		TriggerType: TriggerType(configString(n.Config, "trigger_type")),
		Schedule:    configString(n.Config, "schedule"),
		WebhookPath: configString(n.Config, "webhook_path"),
		EventName:   configString(n.Config, "event_name"),
	}
}

// AgentConfig decodes the node's config as an agent config.
func (n *Node) AgentConfig() AgentConfig {
	cfg := AgentConfig{
		Name:        configString(n.Config, "name"),
		Description: configString(n.Config, "description"),
		Model:       configString(n.Config, "model"),
		Temperature: configFloat(n.Config, "temperature"),
	}
	switch v := n.Config["instructions"].(type) {
	case []string:
		cfg.Instructions = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				cfg.Instructions = append(cfg.Instructions, s)
			}
		}
	case string:
		if v != "" {
			cfg.Instructions = []string{v}
		}
	}
	return cfg
}

// ConditionConfig decodes the node's config as a condition config.
func (n *Node) ConditionConfig() ConditionConfig {
	return ConditionConfig{Expression: configString(n.Config, "expression")}
}

// ActionConfig decodes the node's config as an action config.
func (n *Node) ActionConfig() ActionConfig {
	params, _ := n.Config["parameters"].(map[string]any)
	return ActionConfig{
		ActionType: configString(n.Config, "action_type"),
		Parameters: params,
	}
}

// DataConfig decodes the node's config as a data config.
func (n *Node) DataConfig() DataConfig {
	return DataConfig{
		Source: configString(n.Config, "source"),
		Query:  configString(n.Config, "query"),
	}
}

// Node returns the node with the given id, or nil.
func (w *Workflow) Node(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// TriggerNodes returns all trigger nodes in document order.
func (w *Workflow) TriggerNodes() []*Node {
	var out []*Node
	for i := range w.Nodes {
		if w.Nodes[i].Kind == NodeTrigger {
			out = append(out, &w.Nodes[i])
		}
	}
	return out
}

func configString(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func configFloat(cfg map[string]any, key string) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
