package borg

import "time"

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run captures one traversal of a workflow graph in response to one
// trigger firing. The node result log is append-only once recorded.
type Run struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	TriggerType TriggerType    `json:"trigger_type"`
	TriggerRef  string         `json:"trigger_ref,omitempty"` // schedule or trigger binding ID
	Status      RunStatus      `json:"status"`
	Payload     map[string]any `json:"payload,omitempty"`
	NodeResults []NodeResult   `json:"node_results,omitempty"`
	Error       *string        `json:"error,omitempty"`
	RetryOf     *string        `json:"retry_of,omitempty"`
	RetryCount  int            `json:"retry_count"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

// NodeResult records the outcome of a single executed node. Nodes that
// were never attempted (untaken branches, dependents of a failed node)
// do not appear in the log.
type NodeResult struct {
	NodeID     string     `json:"node_id"`
	Output     any        `json:"output,omitempty"`
	Error      *string    `json:"error,omitempty"`
	Warning    string     `json:"warning,omitempty"` // e.g. fail-closed condition evaluation
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Result returns the node result for the given node id, or nil if the
// node never executed.
func (r *Run) Result(nodeID string) *NodeResult {
	for i := range r.NodeResults {
		if r.NodeResults[i].NodeID == nodeID {
			return &r.NodeResults[i]
		}
	}
	return nil
}

// RetryPolicy defines how failed runs are retried. Retry is an explicit
// engine-level decision; node handlers are not assumed idempotent.
type RetryPolicy struct {
	MaxRetries    int           `json:"max_retries"    yaml:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"  yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"      yaml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      5 * time.Minute,
		BackoffFactor: 2.0,
	}
}

// ConcurrencyLimits controls how many runs may execute simultaneously.
type ConcurrencyLimits struct {
	GlobalMax   int `json:"global_max"   yaml:"global_max"`
	PerWorkflow int `json:"per_workflow" yaml:"per_workflow"`
}

// DefaultConcurrencyLimits returns sensible defaults.
func DefaultConcurrencyLimits() ConcurrencyLimits {
	return ConcurrencyLimits{GlobalMax: 10, PerWorkflow: 3}
}

// Schedule defines a cron-based recurring workflow execution.
type Schedule struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	NodeID      string         `json:"node_id,omitempty"` // trigger node this schedule fires
	CronExpr    string         `json:"cron_expr"`
	Payload     map[string]any `json:"payload,omitempty"`
	Enabled     bool           `json:"enabled"`
	Timezone    string         `json:"timezone"`
	RetryPolicy *RetryPolicy   `json:"retry_policy,omitempty"`
	NextRunAt   time.Time      `json:"next_run_at"`
	LastRunAt   *time.Time     `json:"last_run_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TriggerBinding registers an inbound webhook or event with a workflow's
// trigger node. The Path is the public hook identifier.
type TriggerBinding struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflow_id"`
	NodeID       string            `json:"node_id,omitempty"`
	Type         TriggerType       `json:"type"`
	Path         string            `json:"path"` // /api/hooks/{path}
	Secret       string            `json:"secret,omitempty"`
	InputMapping map[string]string `json:"input_mapping,omitempty"` // payload key → input key
	Enabled      bool              `json:"enabled"`
	CreatedAt    time.Time         `json:"created_at"`
}
