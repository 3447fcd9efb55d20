package transform

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

// ScopeVisitor is a depth-first [dag.Visitor] that makes every transitive
// edge inherit the scope of the edge leading to its source.
//
// Edges leaving the root keep their declared scope (an empty one reads as
// compile). Every other edge is overwritten with the scope on top of the
// stack, i.e. the scope of the edge the walk descended through.
type ScopeVisitor struct {
	dag.BaseVisitor

	root  dag.NodeID
	stack []string
}

// NewScopeVisitor returns a visitor whose stack starts at compile.
func NewScopeVisitor() *ScopeVisitor {
	return &ScopeVisitor{stack: []string{dag.ScopeCompile}}
}

func (v *ScopeVisitor) DiscoverGraph(g *dag.Graph) { v.root = g.Root() }

func (v *ScopeVisitor) DiscoverEdge(e *dag.Edge) {
	if e.From == v.root {
		if e.Scope == "" {
			e.Scope = dag.ScopeCompile
		}
	} else {
		e.Scope = v.stack[len(v.stack)-1]
	}
	v.stack = append(v.stack, e.Scope)
}

func (v *ScopeVisitor) FinishEdge(*dag.Edge) {
	if len(v.stack) > 1 {
		v.stack = v.stack[:len(v.stack)-1]
	}
}

// PropagateScopes is the [Task] that runs a [ScopeVisitor] over a
// depth-first walk.
type PropagateScopes struct {
	logger *log.Logger
}

// NewPropagateScopes returns the propagate-scopes task.
func NewPropagateScopes(logger *log.Logger) *PropagateScopes {
	return &PropagateScopes{logger: orDiscard(logger)}
}

func (t *PropagateScopes) ID() string { return TaskPropagateScopes }

func (t *PropagateScopes) Execute(_ context.Context, g *dag.Graph) error {
	if err := (dag.DepthFirst{}).Visit(g, NewScopeVisitor()); err != nil {
		return graphError(t.ID(), err)
	}
	t.logger.Debug("scopes propagated", "edges", g.EdgeCount())
	return nil
}
