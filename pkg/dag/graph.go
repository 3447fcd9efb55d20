package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrUnknownNode is returned when a [NodeID] does not refer to a live node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned when an [EdgeID] does not refer to a live edge.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrDuplicateArtifact is returned by [Graph.AddNode] when a node for the
	// same coordinate (key and version) already exists. Use [Graph.EnsureNode]
	// for get-or-create semantics.
	ErrDuplicateArtifact = errors.New("duplicate artifact")

	// ErrRootRemoval is returned when an operation would remove or collapse
	// the root node.
	ErrRootRemoval = errors.New("cannot remove root node")

	// ErrRootHasParent is returned by [Graph.AddEdge] and [Graph.RedirectEdge]
	// when an edge would target the root, and by [Graph.Validate] when one does.
	ErrRootHasParent = errors.New("root node cannot have incoming edges")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates graph corruption.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrVersionConflict is returned by [Graph.ValidateRefined] when two live
	// nodes share an [ArtifactKey].
	ErrVersionConflict = errors.New("version conflict")

	// ErrGraphModified is returned by a [Walker] when the node or edge set
	// changed while the walk was in progress. Visitors must stage structural
	// changes and apply them in FinishGraph.
	ErrGraphModified = errors.New("graph modified during walk")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as an artifact description or the repository it was fetched from.
type Metadata map[string]any

// NodeID is a stable node handle. IDs are never reused within a graph.
type NodeID int

// EdgeID is a stable edge handle. IDs are never reused within a graph.
type EdgeID int

// Node is one artifact version in the dependency graph.
//
// A node is created unresolved; the resolver fills Dependencies and
// DependencyManagement, creates the outgoing edges and sets Resolved.
// Dependencies is consumed by the resolver only and never changed by the
// refinement passes.
type Node struct {
	ID       NodeID
	Artifact ArtifactRef
	Resolved bool

	DependencyManagement []ManagementEntry
	Dependencies         []Dependency

	Meta Metadata

	excludes map[ArtifactKey]struct{}
}

// Key returns the version-less identity of the node's artifact.
func (n *Node) Key() ArtifactKey { return n.Artifact.ArtifactKey }

// Exclude adds keys to the node's exclusion set. Excluded artifacts are not
// followed when the node's dependencies are resolved.
func (n *Node) Exclude(keys ...ArtifactKey) {
	if len(keys) == 0 {
		return
	}
	if n.excludes == nil {
		n.excludes = make(map[ArtifactKey]struct{}, len(keys))
	}
	for _, k := range keys {
		n.excludes[k.Normalize()] = struct{}{}
	}
}

// Excludes reports whether k is in the node's exclusion set.
func (n *Node) Excludes(k ArtifactKey) bool {
	_, ok := n.excludes[k.Normalize()]
	return ok
}

// Exclusions returns the node's exclusion set in sorted order.
func (n *Node) Exclusions() []ArtifactKey {
	keys := slices.Collect(maps.Keys(n.excludes))
	SortKeys(keys)
	return keys
}

// Edge is a directed dependency from the declaring node to the dependency.
// Scope may be changed in place by refinement passes; endpoints change only
// through [Graph.RedirectEdge].
type Edge struct {
	ID       EdgeID
	From     NodeID
	To       NodeID
	Scope    string
	Optional bool
}

// Graph is a mutable, rooted dependency graph with arena-style storage.
//
// Nodes and edges are addressed by integer handles that stay valid until the
// element is removed, so passes can stage changes by ID during a walk and
// commit them afterwards. Each coordinate maps to at most one node; several
// nodes may share an [ArtifactKey] until conflicts are resolved. Cycles are
// permitted, edges into the root are not.
//
// All iteration is in ascending ID order, except [Graph.EdgesFrom] and
// [Graph.EdgesTo], which return edges in attachment order.
//
// The zero value is not usable - use [New]. Graph is not safe for concurrent
// use without external synchronization.
type Graph struct {
	nodes    map[NodeID]*Node
	edges    map[EdgeID]*Edge
	byRef    map[ArtifactRef]NodeID
	outgoing map[NodeID][]EdgeID
	incoming map[NodeID][]EdgeID
	root     NodeID
	nextNode NodeID
	nextEdge EdgeID
	mods     int
	meta     Metadata
}

// New creates a graph containing only an unresolved root node for ref.
func New(root ArtifactRef) *Graph {
	g := &Graph{
		nodes:    make(map[NodeID]*Node),
		edges:    make(map[EdgeID]*Edge),
		byRef:    make(map[ArtifactRef]NodeID),
		outgoing: make(map[NodeID][]EdgeID),
		incoming: make(map[NodeID][]EdgeID),
		nextNode: 1,
		nextEdge: 1,
		meta:     Metadata{},
	}
	n, _ := g.AddNode(root)
	g.root = n.ID
	return g
}

// Meta returns the graph-level metadata map.
func (g *Graph) Meta() Metadata { return g.meta }

// Root returns the root node's ID.
func (g *Graph) Root() NodeID { return g.root }

// RootNode returns the root node.
func (g *Graph) RootNode() *Node { return g.nodes[g.root] }

// Node returns the node with the given ID and true, or nil and false.
// The returned pointer refers to the node in the graph.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByRef returns the node for an exact coordinate, if present.
func (g *Graph) NodeByRef(ref ArtifactRef) (*Node, bool) {
	id, ok := g.byRef[ref.Normalize()]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// AddNode creates an unresolved node for ref.
// Returns ErrDuplicateArtifact if a node for ref already exists.
func (g *Graph) AddNode(ref ArtifactRef) (*Node, error) {
	ref = ref.Normalize()
	if _, exists := g.byRef[ref]; exists {
		return nil, ErrDuplicateArtifact
	}
	n := &Node{ID: g.nextNode, Artifact: ref, Meta: Metadata{}}
	g.nextNode++
	g.nodes[n.ID] = n
	g.byRef[ref] = n.ID
	g.mods++
	return n, nil
}

// EnsureNode returns the node for ref, creating it if needed. The boolean
// reports whether a node was created.
func (g *Graph) EnsureNode(ref ArtifactRef) (*Node, bool) {
	if n, ok := g.NodeByRef(ref); ok {
		return n, false
	}
	n, _ := g.AddNode(ref)
	return n, true
}

// AddEdge adds a dependency edge from → to with the given scope.
// Returns ErrUnknownNode if either endpoint is missing and ErrRootHasParent
// if to is the root. Parallel edges are allowed.
func (g *Graph) AddEdge(from, to NodeID, scope string) (*Edge, error) {
	if _, ok := g.nodes[from]; !ok {
		return nil, ErrUnknownNode
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, ErrUnknownNode
	}
	if to == g.root {
		return nil, ErrRootHasParent
	}
	e := &Edge{ID: g.nextEdge, From: from, To: to, Scope: scope}
	g.nextEdge++
	g.edges[e.ID] = e
	g.outgoing[from] = append(g.outgoing[from], e.ID)
	g.incoming[to] = append(g.incoming[to], e.ID)
	g.mods++
	return e, nil
}

// Edge returns the edge with the given ID and true, or nil and false.
func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// EdgeBetween returns the first edge from → to, if any.
func (g *Graph) EdgeBetween(from, to NodeID) (*Edge, bool) {
	for _, id := range g.outgoing[from] {
		if e := g.edges[id]; e.To == to {
			return e, true
		}
	}
	return nil, false
}

// EdgesFrom returns the outgoing edges of a node in attachment order.
// The slice is a fresh copy; the edges are live.
func (g *Graph) EdgesFrom(id NodeID) []*Edge { return g.collect(g.outgoing[id]) }

// EdgesTo returns the incoming edges of a node in attachment order.
// The slice is a fresh copy; the edges are live.
func (g *Graph) EdgesTo(id NodeID) []*Edge { return g.collect(g.incoming[id]) }

func (g *Graph) collect(ids []EdgeID) []*Edge {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Edge, len(ids))
	for i, id := range ids {
		out[i] = g.edges[id]
	}
	return out
}

// RemoveEdge deletes an edge. Returns ErrUnknownEdge if it does not exist.
func (g *Graph) RemoveEdge(id EdgeID) error {
	e, ok := g.edges[id]
	if !ok {
		return ErrUnknownEdge
	}
	delete(g.edges, id)
	g.outgoing[e.From] = deleteID(g.outgoing[e.From], id)
	g.incoming[e.To] = deleteID(g.incoming[e.To], id)
	g.mods++
	return nil
}

// RedirectEdge points an existing edge at a different target, keeping its
// ID, source, scope and position in the source's outgoing list.
func (g *Graph) RedirectEdge(id EdgeID, to NodeID) error {
	e, ok := g.edges[id]
	if !ok {
		return ErrUnknownEdge
	}
	if _, ok := g.nodes[to]; !ok {
		return ErrUnknownNode
	}
	if to == g.root {
		return ErrRootHasParent
	}
	if e.To == to {
		return nil
	}
	g.incoming[e.To] = deleteID(g.incoming[e.To], id)
	e.To = to
	g.incoming[to] = append(g.incoming[to], id)
	g.mods++
	return nil
}

// RemoveNode deletes a node and every edge touching it.
// The root cannot be removed.
func (g *Graph) RemoveNode(id NodeID) error {
	n, ok := g.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if id == g.root {
		return ErrRootRemoval
	}
	for _, eid := range slices.Clone(g.outgoing[id]) {
		_ = g.RemoveEdge(eid)
	}
	for _, eid := range slices.Clone(g.incoming[id]) {
		_ = g.RemoveEdge(eid)
	}
	delete(g.outgoing, id)
	delete(g.incoming, id)
	delete(g.byRef, n.Artifact)
	delete(g.nodes, id)
	g.mods++
	return nil
}

// Nodes returns all live nodes in ascending ID order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all live edges in ascending ID order.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, id := range slices.Sorted(maps.Keys(g.edges)) {
		edges = append(edges, g.edges[id])
	}
	return edges
}

// Unresolved returns the nodes whose dependencies have not been resolved
// yet, in ascending ID order.
func (g *Graph) Unresolved() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if !n.Resolved {
			out = append(out, n)
		}
	}
	return out
}

// Conflicts groups nodes that share an [ArtifactKey]. Only groups with two
// or more members are returned. Groups are ordered by their lowest node ID
// and members by ID.
func (g *Graph) Conflicts() [][]*Node {
	groups := make(map[ArtifactKey][]*Node)
	var order []ArtifactKey
	for _, n := range g.Nodes() {
		k := n.Key()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], n)
	}
	var out [][]*Node
	for _, k := range order {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Validate checks structural integrity: every edge endpoint is a live node
// and the root has no incoming edges.
//
// Returns ErrInvalidEdgeEndpoint or ErrRootHasParent on violation.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return ErrInvalidEdgeEndpoint
		}
		if _, ok := g.nodes[e.To]; !ok {
			return ErrInvalidEdgeEndpoint
		}
	}
	if len(g.incoming[g.root]) > 0 {
		return ErrRootHasParent
	}
	return nil
}

// ValidateRefined runs [Graph.Validate] and additionally requires that no
// two live nodes share an [ArtifactKey]. It holds after conflict resolution.
func (g *Graph) ValidateRefined() error {
	if err := g.Validate(); err != nil {
		return err
	}
	if len(g.Conflicts()) > 0 {
		return ErrVersionConflict
	}
	return nil
}

// modCount is bumped by every structural change. Walkers compare it before
// and after a walk.
func (g *Graph) modCount() int { return g.mods }

func deleteID(ids []EdgeID, id EdgeID) []EdgeID {
	return slices.DeleteFunc(ids, func(x EdgeID) bool { return x == id })
}
