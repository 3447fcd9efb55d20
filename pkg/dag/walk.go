package dag

// Visitor receives traversal events from a [Walker].
//
// For each reachable node the walker calls DiscoverNode, then DiscoverEdge
// and FinishEdge for every outgoing edge, then FinishNode. DiscoverGraph
// opens the walk and FinishGraph closes it. depth is the node's distance
// from the root as seen by the walker (root = 0).
//
// Visitors may change edge attributes such as Scope during the walk but must
// not add or remove nodes or edges; structural changes belong in FinishGraph.
type Visitor interface {
	DiscoverGraph(g *Graph)
	DiscoverNode(n *Node, depth int)
	DiscoverEdge(e *Edge)
	FinishEdge(e *Edge)
	FinishNode(n *Node, depth int)
	FinishGraph(g *Graph) error
}

// BaseVisitor implements every [Visitor] method as a no-op. Embed it and
// override the events you need.
type BaseVisitor struct{}

func (BaseVisitor) DiscoverGraph(*Graph)     {}
func (BaseVisitor) DiscoverNode(*Node, int)  {}
func (BaseVisitor) DiscoverEdge(*Edge)       {}
func (BaseVisitor) FinishEdge(*Edge)         {}
func (BaseVisitor) FinishNode(*Node, int)    {}
func (BaseVisitor) FinishGraph(*Graph) error { return nil }

// Walker drives a [Visitor] over every node reachable from the graph root.
// Each reachable node is discovered exactly once and every outgoing edge of
// a discovered node is reported exactly once, including edges to nodes that
// were already discovered.
//
// Visit returns ErrGraphModified if the node or edge set changed before
// FinishGraph, otherwise the error returned by FinishGraph.
type Walker interface {
	Visit(g *Graph, v Visitor) error
}

// DepthFirst walks the graph in pre-order. The descent into an undiscovered
// target happens between DiscoverEdge and FinishEdge of the edge leading to
// it, so a visitor can maintain root-to-node path state. depth is the length
// of the current DFS path.
type DepthFirst struct{}

// Visit implements [Walker].
func (DepthFirst) Visit(g *Graph, v Visitor) error {
	start := g.modCount()
	seen := make(map[NodeID]bool, g.NodeCount())

	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		seen[n.ID] = true
		v.DiscoverNode(n, depth)
		for _, e := range g.EdgesFrom(n.ID) {
			v.DiscoverEdge(e)
			if !seen[e.To] {
				if child, ok := g.Node(e.To); ok {
					visit(child, depth+1)
				}
			}
			v.FinishEdge(e)
		}
		v.FinishNode(n, depth)
	}

	v.DiscoverGraph(g)
	if root := g.RootNode(); root != nil {
		visit(root, 0)
	}
	if g.modCount() != start {
		return ErrGraphModified
	}
	return v.FinishGraph(g)
}

// BreadthFirst walks the graph in level order. A node's outgoing edges are
// reported between its DiscoverNode and FinishNode. depth is the BFS level,
// i.e. the length of the shortest path from the root.
type BreadthFirst struct{}

type queued struct {
	node  *Node
	depth int
}

// Visit implements [Walker].
func (BreadthFirst) Visit(g *Graph, v Visitor) error {
	start := g.modCount()
	v.DiscoverGraph(g)

	root := g.RootNode()
	if root == nil {
		return v.FinishGraph(g)
	}
	seen := map[NodeID]bool{root.ID: true}
	queue := []queued{{root, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		v.DiscoverNode(cur.node, cur.depth)
		for _, e := range g.EdgesFrom(cur.node.ID) {
			v.DiscoverEdge(e)
			if !seen[e.To] {
				seen[e.To] = true
				if child, ok := g.Node(e.To); ok {
					queue = append(queue, queued{child, cur.depth + 1})
				}
			}
			v.FinishEdge(e)
		}
		v.FinishNode(cur.node, cur.depth)
	}
	if g.modCount() != start {
		return ErrGraphModified
	}
	return v.FinishGraph(g)
}

// Reachable returns the set of nodes reachable from the root, root included.
func Reachable(g *Graph) map[NodeID]bool {
	seen := make(map[NodeID]bool, g.NodeCount())
	if g.RootNode() == nil {
		return seen
	}
	stack := []NodeID{g.Root()}
	seen[g.Root()] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.EdgesFrom(id) {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}
