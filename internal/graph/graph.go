// Package graph builds a traversable structure from a workflow document
// and validates it for execution.
package graph

import (
	"fmt"
	"sort"

	"github.com/borgframework/borg/internal/borg"
)

// Graph is the decoded, validated adjacency view of a workflow. Built
// once per run; the workflow document is treated as immutable while a
// run executes.
type Graph struct {
	nodes     map[string]*borg.Node
	children  map[string][]string
	parents   map[string][]string
	inbound   map[string][]borg.Edge // edges arriving at a node
	topoOrder []string
}

// Build constructs a Graph from a workflow. It rejects duplicate node
// IDs, dangling edges, and cycles; full structural diagnostics come from
// Validate.
func Build(wf *borg.Workflow) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*borg.Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
		inbound:  make(map[string][]borg.Edge),
	}

	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		if _, exists := g.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate node ID: %s", n.ID)
		}
		g.nodes[n.ID] = n
	}

	for _, e := range wf.Edges {
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("edge references unknown node: %s", e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("edge references unknown node: %s", e.Target)
		}
		g.children[e.Source] = append(g.children[e.Source], e.Target)
		g.parents[e.Target] = append(g.parents[e.Target], e.Source)
		g.inbound[e.Target] = append(g.inbound[e.Target], e)
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.topoOrder = order
	return g, nil
}

// topoSort runs Kahn's algorithm with a sorted ready queue so the order
// is deterministic for a given document.
func (g *Graph) topoSort() ([]string, error) {
	inDegree := make(map[string]int)
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, children := range g.children {
		for _, c := range children {
			inDegree[c]++
		}
	}
	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, c := range g.children[node] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
		sort.Strings(queue)
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("cycle detected in workflow graph")
	}
	return order, nil
}

// TopologicalOrder returns node IDs in dependency order.
func (g *Graph) TopologicalOrder() []string { return g.topoOrder }

// Children returns the IDs of nodes downstream of nodeID.
func (g *Graph) Children(nodeID string) []string { return g.children[nodeID] }

// Parents returns the IDs of nodes upstream of nodeID.
func (g *Graph) Parents(nodeID string) []string { return g.parents[nodeID] }

// Inbound returns the edges arriving at nodeID.
func (g *Graph) Inbound(nodeID string) []borg.Edge { return g.inbound[nodeID] }

// Node returns the node definition for id, or nil.
func (g *Graph) Node(id string) *borg.Node { return g.nodes[id] }

// Roots returns all nodes with no inbound edges.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}
