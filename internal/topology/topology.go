package topology

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a loop that contains no feedback edge.
type CycleError struct {
	// Path lists the actors of the loop; the first one is repeated at the end.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a node with the given ID. Adding an existing ID does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*edge),
		dependents: make(map[string]*edge),
	}
	g.order = append(g.order, id)
}

// AddEdge records a link from the producer fromID to the consumer toID.
// Self-links are accepted; unless they are feedback they form a cycle.
func (g *Graph) AddEdge(fromID, toID string, feedback bool) error {
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	e, ok := fromNode.dependents[toID]
	if !ok {
		e = &edge{}
		fromNode.dependents[toID] = e
		toNode.deps[fromID] = e
	}
	e.links++
	if feedback {
		e.feedback++
	}
	return nil
}

// DetectCycles returns a *CycleError for the first loop found that is not
// broken by a feedback edge.
func (g *Graph) DetectCycles() error {
	// Depth-first search with a recursion stack; permanent marks nodes whose
	// descendants are known to be acyclic.
	permanent := make(map[string]bool)
	onStack := make(map[string]int)
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if at, ok := onStack[n.id]; ok {
			path := append(slices.Clone(stack[at:]), n.id)
			return &CycleError{Path: path}
		}

		onStack[n.id] = len(stack)
		stack = append(stack, n.id)

		for _, id := range sortedKeys(n.dependents) {
			if n.dependents[id].isFeedback() {
				continue
			}
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// Unreachable returns the nodes that cannot be reached from any of the given
// sources by following edges forward, in insertion order. Feedback edges
// count: a loop reached from a source is reachable as a whole.
func (g *Graph) Unreachable(sources []string) []string {
	seen := make(map[string]bool, len(g.nodes))
	queue := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := g.nodes[s]; ok && !seen[s] {
			seen[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for next := range g.nodes[id].dependents {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []string
	for _, id := range g.order {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// Order returns the nodes so that every producer comes before its consumers,
// ignoring feedback edges. Ties keep insertion order. It fails with a
// *CycleError when the graph has an unbroken loop.
func (g *Graph) Order() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		for _, e := range g.nodes[id].deps {
			if !e.isFeedback() {
				indegree[id]++
			}
		}
	}

	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		for _, id := range g.order {
			if done[id] || indegree[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for next, e := range g.nodes[id].dependents {
				if !e.isFeedback() {
					indegree[next]--
				}
			}
			break
		}
	}
	return out, nil
}

func sortedKeys(m map[string]*edge) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
