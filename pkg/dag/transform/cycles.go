package transform

import "github.com/matzehuels/stackresolve/pkg/dag"

// BackEdges returns the edges that close a dependency cycle, found by a
// depth-first search from the root. Maven permits cycles between artifacts;
// the refinement passes tolerate them, and callers use this to report them.
func BackEdges(g *dag.Graph) []*dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[dag.NodeID]int, g.NodeCount())
	var back []*dag.Edge

	var dfs func(id dag.NodeID)
	dfs = func(id dag.NodeID) {
		color[id] = gray
		for _, e := range g.EdgesFrom(id) {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				back = append(back, e)
			}
		}
		color[id] = black
	}

	if g.RootNode() != nil {
		dfs(g.Root())
	}
	return back
}
