package transform

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

type pair struct {
	to, from dag.NodeID
}

type pairSeen struct {
	depth int
	edges []dag.EdgeID
}

// ReductionVisitor is a breadth-first [dag.Visitor] that removes edges
// reaching a node from deeper than necessary.
//
// For every (target, source) pair it records the BFS depth of the source.
// In FinishGraph, each target reached from two or more distinct sources
// keeps only the edges whose source sits at the minimum recorded depth;
// sources tied at that depth all keep their edges. Running the visitor a
// second time removes nothing.
type ReductionVisitor struct {
	dag.BaseVisitor

	current int
	seen    map[pair]*pairSeen
	order   []pair
	removed int
}

// NewReductionVisitor returns an empty reduction visitor.
func NewReductionVisitor() *ReductionVisitor {
	return &ReductionVisitor{seen: make(map[pair]*pairSeen)}
}

func (v *ReductionVisitor) DiscoverNode(_ *dag.Node, depth int) { v.current = depth }

func (v *ReductionVisitor) DiscoverEdge(e *dag.Edge) {
	p := pair{to: e.To, from: e.From}
	s, ok := v.seen[p]
	if !ok {
		s = &pairSeen{depth: v.current}
		v.seen[p] = s
		v.order = append(v.order, p)
	}
	s.depth = min(s.depth, v.current)
	s.edges = append(s.edges, e.ID)
}

func (v *ReductionVisitor) FinishGraph(g *dag.Graph) error {
	byTarget := make(map[dag.NodeID][]pair)
	var targets []dag.NodeID
	for _, p := range v.order {
		if _, ok := byTarget[p.to]; !ok {
			targets = append(targets, p.to)
		}
		byTarget[p.to] = append(byTarget[p.to], p)
	}

	for _, to := range targets {
		pairs := byTarget[to]
		if len(pairs) < 2 {
			continue
		}
		shallowest := slices.MinFunc(pairs, func(a, b pair) int {
			return v.seen[a].depth - v.seen[b].depth
		})
		minDepth := v.seen[shallowest].depth
		for _, p := range pairs {
			if v.seen[p].depth == minDepth {
				continue
			}
			for _, id := range v.seen[p].edges {
				if err := g.RemoveEdge(id); err != nil {
					return err
				}
				v.removed++
			}
		}
	}
	return nil
}

// Removed returns how many edges FinishGraph removed.
func (v *ReductionVisitor) Removed() int { return v.removed }

// TransitiveReduction is the [Task] that runs a [ReductionVisitor] over a
// breadth-first walk.
type TransitiveReduction struct {
	logger  *log.Logger
	removed int
}

// NewTransitiveReduction returns the transitive-reduction task.
func NewTransitiveReduction(logger *log.Logger) *TransitiveReduction {
	return &TransitiveReduction{logger: orDiscard(logger)}
}

func (t *TransitiveReduction) ID() string { return TaskTransitiveReduction }

func (t *TransitiveReduction) Execute(_ context.Context, g *dag.Graph) error {
	v := NewReductionVisitor()
	if err := (dag.BreadthFirst{}).Visit(g, v); err != nil {
		return graphError(t.ID(), err)
	}
	t.removed = v.Removed()
	t.logger.Debug("transitive edges removed", "count", t.removed)
	return nil
}

// Removed returns how many edges the last Execute removed.
func (t *TransitiveReduction) Removed() int { return t.removed }
