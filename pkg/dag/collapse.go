package dag

// CollapseNodes merges from into into.
//
// Every edge targeting from is redirected to into. A redirected edge is
// dropped instead when its source already has an edge to into, when the
// source is into itself, or when into is the root. All of from's outgoing
// edges are removed and from is marked unresolved, so it is resolved again
// if a later change brings it back. into's own edges are not touched. from
// is left in the graph with no edges, to be removed by
// [CleanupOrphanedNodes].
//
// Returns ErrUnknownNode if either node is missing and ErrRootRemoval if
// from is the root. Collapsing a node into itself is a no-op.
func CollapseNodes(g *Graph, from, into NodeID) error {
	fromNode, ok := g.Node(from)
	if !ok {
		return ErrUnknownNode
	}
	if _, ok := g.Node(into); !ok {
		return ErrUnknownNode
	}
	if from == into {
		return nil
	}
	if from == g.Root() {
		return ErrRootRemoval
	}

	for _, e := range g.EdgesTo(from) {
		if _, dup := g.EdgeBetween(e.From, into); dup || e.From == into || into == g.Root() {
			if err := g.RemoveEdge(e.ID); err != nil {
				return err
			}
			continue
		}
		if err := g.RedirectEdge(e.ID, into); err != nil {
			return err
		}
	}
	for _, e := range g.EdgesFrom(from) {
		if err := g.RemoveEdge(e.ID); err != nil {
			return err
		}
	}
	fromNode.Resolved = false
	return nil
}

// CleanupOrphanedNodes removes every non-root node that cannot be reached
// from the root and returns how many were removed. Nodes with no incoming
// edges are always unreachable; so are cycles cut off from the root.
func CleanupOrphanedNodes(g *Graph) int {
	reachable := Reachable(g)
	removed := 0
	for _, n := range g.Nodes() {
		if reachable[n.ID] {
			continue
		}
		if err := g.RemoveNode(n.ID); err == nil {
			removed++
		}
	}
	return removed
}
