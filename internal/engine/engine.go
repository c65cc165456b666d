// Package engine interprets a validated workflow graph for one trigger
// firing, producing an execution run with a per-node result log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/graph"
)

// DefaultNodeTimeout bounds a single node execution so a stalled
// external call cannot hang a run forever.
const DefaultNodeTimeout = 60 * time.Second

// Engine walks a workflow graph from the firing trigger node, executing
// nodes once their dependencies have resolved and propagating each
// node's output downstream. Independent branches run concurrently;
// writes to the run's result log are serialized.
type Engine struct {
	adapters    Adapters
	observer    Observer
	nodeTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver wires a live event consumer (SSE buffer, log).
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithNodeTimeout overrides the per-node execution timeout.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.nodeTimeout = d }
}

// New creates an Engine around the given adapter bundle.
func New(adapters Adapters, opts ...Option) *Engine {
	e := &Engine{adapters: adapters, nodeTimeout: DefaultNodeTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// nodeOutcome is the resolution state of a node within one run.
type nodeOutcome int

const (
	outcomePending nodeOutcome = iota
	outcomeSucceeded
	outcomeFailed
	outcomeSkipped
)

// runState is the only mutable shared state during a run. All access
// goes through mu (single-writer discipline for the result log).
type runState struct {
	mu       sync.Mutex
	outcomes map[string]nodeOutcome
	outputs  map[string]any
	run      *borg.Run
	execErr  error
}

func (st *runState) setOutcome(id string, o nodeOutcome) {
	st.mu.Lock()
	st.outcomes[id] = o
	st.mu.Unlock()
}

// Execute interprets wf for one trigger event. The workflow document is
// treated as immutable for the duration of the run. The returned run
// carries whatever partial results were computed; the error is the first
// node failure (nil for succeeded and cancelled runs).
func (e *Engine) Execute(ctx context.Context, wf *borg.Workflow, ev TriggerEvent) (*borg.Run, error) {
	issues := graph.Validate(wf)
	if issues.HasErrors() {
		return nil, issues
	}
	g, err := graph.Build(wf)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	firing, err := resolveFiringTrigger(wf, ev.NodeID)
	if err != nil {
		return nil, err
	}

	runID := ev.RunID
	if runID == "" {
		runID = borg.GenerateID("run")
	}
	run := &borg.Run{
		ID:          runID,
		WorkflowID:  wf.ID,
		TriggerType: ev.Type,
		TriggerRef:  ev.Ref,
		Status:      borg.RunStatusRunning,
		Payload:     ev.Payload,
		StartedAt:   time.Now(),
	}

	st := &runState{
		outcomes: make(map[string]nodeOutcome, len(wf.Nodes)),
		outputs:  make(map[string]any, len(wf.Nodes)),
		run:      run,
	}

	e.emit(borg.Event{Type: borg.EventRunStarted, RunID: run.ID,
		Payload: map[string]any{"workflow_id": wf.ID}})

	done := make(map[string]chan struct{}, len(wf.Nodes))
	for _, n := range wf.Nodes {
		done[n.ID] = make(chan struct{})
	}

	var wg sync.WaitGroup
	for _, nodeID := range g.TopologicalOrder() {
		nodeID := nodeID
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[nodeID])

			for _, parentID := range g.Parents(nodeID) {
				select {
				case <-done[parentID]:
				case <-ctx.Done():
					st.setOutcome(nodeID, outcomeSkipped)
					return
				}
			}
			if ctx.Err() != nil {
				st.setOutcome(nodeID, outcomeSkipped)
				return
			}

			e.resolveNode(ctx, g, st, firing, ev, nodeID)
		}()
	}
	wg.Wait()

	now := time.Now()
	run.FinishedAt = &now
	switch {
	case st.execErr != nil:
		run.Status = borg.RunStatusFailed
		msg := st.execErr.Error()
		run.Error = &msg
	case ctx.Err() != nil:
		run.Status = borg.RunStatusCancelled
	default:
		run.Status = borg.RunStatusSucceeded
	}

	e.emit(borg.Event{Type: borg.EventRunFinished, RunID: run.ID,
		Payload: map[string]any{"status": string(run.Status)}})

	return run, st.execErr
}

// resolveNode decides whether a node executes or is skipped, then runs
// its handler and records the result.
func (e *Engine) resolveNode(ctx context.Context, g *graph.Graph, st *runState, firing *borg.Node, ev TriggerEvent, nodeID string) {
	node := g.Node(nodeID)

	input, runnable := e.gateNode(g, st, firing, ev, node)
	if !runnable {
		st.setOutcome(nodeID, outcomeSkipped)
		e.emit(borg.Event{Type: borg.EventNodeSkipped, RunID: st.run.ID, NodeID: nodeID})
		return
	}

	e.emit(borg.Event{Type: borg.EventNodeStarted, RunID: st.run.ID, NodeID: nodeID})
	started := time.Now()

	nodeCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	output, warning, execErr := e.executeNode(nodeCtx, node, input)
	cancel()

	if execErr != nil && errors.Is(nodeCtx.Err(), context.DeadlineExceeded) && !isAdapterError(execErr) {
		execErr = borg.NewAdapterError(borg.ErrTimeout,
			fmt.Sprintf("node %q exceeded %s", nodeID, e.nodeTimeout), execErr)
	}

	// A cooperative adapter returning the run context's cancellation is
	// not a node failure; the run finishes as cancelled.
	cancelled := execErr != nil && ctx.Err() != nil && errors.Is(execErr, context.Canceled)

	finished := time.Now()
	result := borg.NodeResult{
		NodeID:     nodeID,
		Output:     output,
		Warning:    warning,
		StartedAt:  started,
		FinishedAt: &finished,
	}

	st.mu.Lock()
	if execErr != nil {
		msg := execErr.Error()
		result.Error = &msg
		st.outcomes[nodeID] = outcomeFailed
		if st.execErr == nil && !cancelled {
			st.execErr = fmt.Errorf("node %q: %w", nodeID, execErr)
		}
	} else {
		st.outcomes[nodeID] = outcomeSucceeded
		st.outputs[nodeID] = output
	}
	st.run.NodeResults = append(st.run.NodeResults, result)
	st.mu.Unlock()

	if execErr != nil {
		e.emit(borg.Event{Type: borg.EventNodeFailed, RunID: st.run.ID, NodeID: nodeID,
			Payload: map[string]any{"error": execErr.Error()}})
		return
	}
	e.emit(borg.Event{Type: borg.EventNodeCompleted, RunID: st.run.ID, NodeID: nodeID,
		Payload: map[string]any{"output": output}})
}

// gateNode applies the readiness rules: a node executes only when every
// parent succeeded and, for condition-sourced edges, the edge's port
// matches the condition's boolean output. The returned input is the
// single active parent's output, or a map keyed by parent id when a node
// joins several branches. The firing trigger node receives the trigger
// payload; other trigger nodes never execute.
func (e *Engine) gateNode(g *graph.Graph, st *runState, firing *borg.Node, ev TriggerEvent, node *borg.Node) (any, bool) {
	if node.Kind == borg.NodeTrigger {
		if node.ID != firing.ID {
			return nil, false
		}
		return ev.Payload, true
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	parents := g.Parents(node.ID)
	if len(parents) == 0 {
		// Orphan non-trigger node: flagged as a warning at validation
		// time, never executed.
		return nil, false
	}

	inbound := g.Inbound(node.ID)
	contributing := make(map[string]bool, len(parents))
	for _, edge := range inbound {
		if st.outcomes[edge.Source] != outcomeSucceeded {
			return nil, false
		}
		if edge.SourcePort != "" {
			taken, _ := st.outputs[edge.Source].(bool)
			if (edge.SourcePort == borg.PortTrue) != taken {
				continue // untaken branch
			}
		}
		contributing[edge.Source] = true
	}

	// Every parent must contribute through at least one active edge.
	for _, p := range parents {
		if !contributing[p] {
			return nil, false
		}
	}

	if len(parents) == 1 {
		return st.outputs[parents[0]], true
	}
	joined := make(map[string]any, len(parents))
	for _, p := range parents {
		joined[p] = st.outputs[p]
	}
	return joined, true
}

func (e *Engine) emit(ev borg.Event) {
	if e.observer != nil {
		e.observer.OnEvent(ev)
	}
}

// resolveFiringTrigger picks the trigger node a run starts from.
func resolveFiringTrigger(wf *borg.Workflow, nodeID string) (*borg.Node, error) {
	triggers := wf.TriggerNodes()
	if nodeID == "" {
		return triggers[0], nil
	}
	for _, n := range triggers {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("trigger node %q not found in workflow %q", nodeID, wf.ID)
}

func isAdapterError(err error) bool {
	var ae *borg.AdapterError
	return errors.As(err, &ae)
}
