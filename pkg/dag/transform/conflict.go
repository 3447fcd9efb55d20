package transform

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/version"
)

// location is the shallowest place a conflicting node was reached.
type location struct {
	node  *dag.Node
	edge  dag.EdgeID
	depth int
}

// ConflictVisitor mediates one group of nodes sharing an artifact key.
//
// During the walk it records, for every member of the group, the minimum
// depth at which an edge reaches it (the depth of the declaring node plus
// one). FinishGraph picks the winner, nearest first, then newest version,
// and collapses every other member into it.
type ConflictVisitor struct {
	dag.BaseVisitor

	members   []*dag.Node
	set       map[dag.NodeID]bool
	g         *dag.Graph
	locations map[dag.NodeID]location
	logger    *log.Logger

	winner *dag.Node
}

// NewConflictVisitor returns a visitor for the given conflict group.
func NewConflictVisitor(members []*dag.Node, logger *log.Logger) *ConflictVisitor {
	set := make(map[dag.NodeID]bool, len(members))
	for _, m := range members {
		set[m.ID] = true
	}
	return &ConflictVisitor{
		members:   members,
		set:       set,
		locations: make(map[dag.NodeID]location),
		logger:    orDiscard(logger),
	}
}

func (v *ConflictVisitor) DiscoverGraph(g *dag.Graph) { v.g = g }

func (v *ConflictVisitor) DiscoverNode(n *dag.Node, depth int) {
	for _, e := range v.g.EdgesFrom(n.ID) {
		if !v.set[e.To] {
			continue
		}
		d := depth + 1
		if cur, ok := v.locations[e.To]; ok && cur.depth <= d {
			continue
		}
		target, _ := v.g.Node(e.To)
		v.locations[e.To] = location{node: target, edge: e.ID, depth: d}
	}
}

func (v *ConflictVisitor) FinishGraph(g *dag.Graph) error {
	v.winner = v.pick(g)
	if v.winner == nil {
		v.logger.Debug("conflict group unreachable", "artifact", v.members[0].Key())
		return nil
	}
	for _, m := range v.members {
		if m.ID == v.winner.ID {
			continue
		}
		v.logger.Debug("conflict lost", "loser", m.Artifact, "winner", v.winner.Artifact)
		if err := dag.CollapseNodes(g, m.ID, v.winner.ID); err != nil {
			return err
		}
	}
	return nil
}

// Winner returns the node chosen by FinishGraph, or nil.
func (v *ConflictVisitor) Winner() *dag.Node { return v.winner }

func (v *ConflictVisitor) pick(g *dag.Graph) *dag.Node {
	if v.set[g.Root()] {
		return g.RootNode()
	}
	if len(v.locations) == 0 {
		return nil
	}
	locs := make([]location, 0, len(v.locations))
	for _, l := range v.locations {
		locs = append(locs, l)
	}
	return slices.MinFunc(locs, compareLocations).node
}

// compareLocations orders candidates best first: shallowest, then newest
// version, then version string and node ID for a total order.
func compareLocations(a, b location) int {
	return cmp.Or(
		cmp.Compare(a.depth, b.depth),
		version.Compare(b.node.Artifact.Version, a.node.Artifact.Version),
		strings.Compare(b.node.Artifact.Version, a.node.Artifact.Version),
		cmp.Compare(a.node.ID, b.node.ID),
	)
}

// ResolveConflicts is the [Task] that leaves a single version of every
// artifact in the graph. Each conflict group gets its own walk with a
// [ConflictVisitor]; orphaned nodes are removed at the end.
type ResolveConflicts struct {
	// Walker used for each group; defaults to depth-first.
	Walker dag.Walker

	logger   *log.Logger
	resolved int
}

// NewResolveConflicts returns the resolve-conflicts task.
func NewResolveConflicts(logger *log.Logger) *ResolveConflicts {
	return &ResolveConflicts{Walker: dag.DepthFirst{}, logger: orDiscard(logger)}
}

func (t *ResolveConflicts) ID() string { return TaskResolveConflicts }

func (t *ResolveConflicts) Execute(_ context.Context, g *dag.Graph) error {
	walker := t.Walker
	if walker == nil {
		walker = dag.DepthFirst{}
	}

	t.resolved = 0
	for _, group := range g.Conflicts() {
		v := NewConflictVisitor(group, t.logger)
		if err := walker.Visit(g, v); err != nil {
			return graphError(t.ID(), err)
		}
		if v.Winner() != nil {
			t.resolved++
		}
	}

	removed := dag.CleanupOrphanedNodes(g)
	t.logger.Debug("conflicts resolved", "groups", t.resolved, "removed", removed)
	return nil
}

// Resolved returns how many conflict groups the last Execute mediated.
func (t *ResolveConflicts) Resolved() int { return t.resolved }
