package graph

import (
	"fmt"

	"github.com/borgframework/borg/internal/borg"
)

var knownKinds = map[borg.NodeKind]bool{
	borg.NodeTrigger:   true,
	borg.NodeAgent:     true,
	borg.NodeCondition: true,
	borg.NodeAction:    true,
	borg.NodeData:      true,
}

// Validate checks whether a workflow document is executable. It is a
// pure function over the document and collects every problem it finds
// rather than stopping at the first one.
func Validate(wf *borg.Workflow) borg.ValidationErrors {
	var errs borg.ValidationErrors

	nodeByID := make(map[string]*borg.Node, len(wf.Nodes))
	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		if _, dup := nodeByID[n.ID]; dup {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationDuplicateNode, NodeID: n.ID,
				Message: "duplicate node id", Severity: "error",
			})
			continue
		}
		nodeByID[n.ID] = n
		if !knownKinds[n.Kind] {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationUnknownKind, NodeID: n.ID,
				Message: fmt.Sprintf("unknown node kind %q", n.Kind), Severity: "error",
			})
		}
		if n.Kind == borg.NodeAgent && n.AgentConfig().Model == "" {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationMissingModel, NodeID: n.ID,
				Message: "agent node has no model selected", Severity: "error",
			})
		}
	}

	if len(wf.TriggerNodes()) == 0 {
		errs = append(errs, borg.ValidationError{
			Kind:    borg.ValidationNoTrigger,
			Message: "workflow has no trigger node", Severity: "error",
		})
	}

	hasInbound := make(map[string]bool)
	condPorts := make(map[string]map[string]bool) // condition node → ports wired

	for _, e := range wf.Edges {
		src, srcOK := nodeByID[e.Source]
		if !srcOK {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationDanglingEdge, EdgeID: e.ID,
				Message: fmt.Sprintf("edge source %q does not exist", e.Source), Severity: "error",
			})
		}
		if _, ok := nodeByID[e.Target]; !ok {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationDanglingEdge, EdgeID: e.ID,
				Message: fmt.Sprintf("edge target %q does not exist", e.Target), Severity: "error",
			})
		} else {
			hasInbound[e.Target] = true
		}

		if !srcOK {
			continue
		}
		if src.Kind == borg.NodeCondition {
			if e.SourcePort != borg.PortTrue && e.SourcePort != borg.PortFalse {
				errs = append(errs, borg.ValidationError{
					Kind: borg.ValidationBadPort, EdgeID: e.ID,
					Message:  fmt.Sprintf("condition edge must use port %q or %q, got %q", borg.PortTrue, borg.PortFalse, e.SourcePort),
					Severity: "error",
				})
			} else {
				if condPorts[src.ID] == nil {
					condPorts[src.ID] = make(map[string]bool)
				}
				condPorts[src.ID][e.SourcePort] = true
			}
		} else if e.SourcePort != "" {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationBadPort, EdgeID: e.ID,
				Message:  fmt.Sprintf("node %q exposes no port %q", e.Source, e.SourcePort),
				Severity: "error",
			})
		}
	}

	// A condition with only one branch wired is legal: the missing branch
	// is a no-op terminus. Surface it so the editor can show it.
	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		switch n.Kind {
		case borg.NodeCondition:
			ports := condPorts[n.ID]
			if len(ports) == 1 {
				missing := borg.PortFalse
				if !ports[borg.PortTrue] {
					missing = borg.PortTrue
				}
				errs = append(errs, borg.ValidationError{
					Kind: borg.ValidationMissingBranch, NodeID: n.ID,
					Message:  fmt.Sprintf("condition %q branch is unwired and terminates the run", missing),
					Severity: "warning",
				})
			}
		case borg.NodeTrigger:
		default:
			if !hasInbound[n.ID] {
				errs = append(errs, borg.ValidationError{
					Kind: borg.ValidationOrphanNode, NodeID: n.ID,
					Message:  "node has no inbound edge and will never execute",
					Severity: "warning",
				})
			}
		}
	}

	// Cycle check only makes sense once the structure is otherwise sound.
	if !errs.HasErrors() {
		if _, err := Build(wf); err != nil {
			errs = append(errs, borg.ValidationError{
				Kind: borg.ValidationCycle, Message: err.Error(), Severity: "error",
			})
		}
	}

	return errs
}
