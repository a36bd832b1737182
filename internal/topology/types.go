package topology

// Graph is a set of actors and the links between them. It is built and
// queried by a single goroutine.
type Graph struct {
	nodes map[string]*node
	// order records insertion so traversals are deterministic.
	order []string
}

type node struct {
	id string
	// deps are producers feeding this node, keyed by id.
	deps map[string]*edge
	// dependents are consumers of this node, keyed by id.
	dependents map[string]*edge
}

// edge aggregates every link between two actors. It only counts as feedback
// when all of those links are.
type edge struct {
	links    int
	feedback int
}

func (e *edge) isFeedback() bool {
	return e.links > 0 && e.links == e.feedback
}
