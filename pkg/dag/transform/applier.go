package transform

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

// ManagementApplier is a depth-first [dag.Visitor] that applies
// dependency-management rules.
//
// While walking it adds each matching rule's exclusions to the visiting
// node, overwrites the edge scope when the rule carries one, and stages a
// version change for the edge target when the rule's version differs from
// the version already staged for it (or, if nothing is staged, from the
// target's own version). Staged changes are committed in FinishGraph: the
// target is collapsed into the node for the managed version, which is
// created and resolved first if the graph does not contain it yet.
//
// An applier is single-use; create a new one per walk.
type ManagementApplier struct {
	dag.BaseVisitor

	ctx      context.Context
	resolver NodeResolver
	logger   *log.Logger

	g       *dag.Graph
	stack   *ManagementStack
	order   []dag.NodeID
	pending map[dag.NodeID]string
	created int
}

// NewManagementApplier returns an applier that resolves newly created
// nodes with r. A nil resolver leaves created nodes unresolved.
func NewManagementApplier(ctx context.Context, r NodeResolver, logger *log.Logger) *ManagementApplier {
	return &ManagementApplier{
		ctx:      ctx,
		resolver: r,
		logger:   orDiscard(logger),
		stack:    NewManagementStack(),
		pending:  make(map[dag.NodeID]string),
	}
}

func (a *ManagementApplier) DiscoverGraph(g *dag.Graph) { a.g = g }

func (a *ManagementApplier) DiscoverNode(n *dag.Node, _ int) {
	a.stack.Push(n)
	for _, e := range a.g.EdgesFrom(n.ID) {
		target, ok := a.g.Node(e.To)
		if !ok {
			continue
		}
		rule, ok := a.stack.Rules(target.Key())
		if !ok {
			continue
		}

		n.Exclude(rule.Exclusions...)

		if rule.Version != "" {
			staged, ok := a.pending[e.To]
			if !ok {
				staged = target.Artifact.Version
			}
			if rule.Version != staged {
				if _, seen := a.pending[e.To]; !seen {
					a.order = append(a.order, e.To)
				}
				a.pending[e.To] = rule.Version
				a.logger.Debug("staged managed version", "artifact", target.Artifact, "version", rule.Version)
			}
		}

		if rule.Scope != "" {
			e.Scope = rule.Scope
		}
	}
}

func (a *ManagementApplier) FinishNode(*dag.Node, int) { a.stack.Pop() }

func (a *ManagementApplier) FinishGraph(g *dag.Graph) error {
	for _, id := range a.order {
		if err := a.collapseVersion(g, id, a.pending[id]); err != nil {
			return err
		}
	}
	return nil
}

// collapseVersion replaces the node id by the node for the same artifact at
// version to, creating and resolving that node if necessary. A node that an
// earlier collapse stripped of its edges is resolved again and counts as
// created.
func (a *ManagementApplier) collapseVersion(g *dag.Graph, id dag.NodeID, to string) error {
	from, ok := g.Node(id)
	if !ok {
		return dag.ErrUnknownNode
	}
	if from.Artifact.Version == to {
		return nil
	}

	toRef := from.Artifact.WithVersion(to)
	into, exists := g.NodeByRef(toRef)
	if !exists || !into.Resolved {
		if !exists {
			var err error
			if into, err = g.AddNode(toRef); err != nil {
				return err
			}
			a.logger.Debug("created managed node", "artifact", toRef)
		} else {
			// Collapsed away earlier in this commit; its edges are gone.
			a.logger.Debug("revived managed node", "artifact", toRef)
		}
		a.created++
		if a.resolver != nil {
			if err := a.resolver.ResolveNode(a.ctx, g, into.ID); err != nil {
				return err
			}
		}
	}

	a.logger.Debug("collapsed", "from", from.Artifact, "into", into.Artifact)
	return dag.CollapseNodes(g, from.ID, into.ID)
}

// CreatedNodes reports whether committing the staged changes added nodes
// to the graph.
func (a *ManagementApplier) CreatedNodes() bool { return a.created > 0 }

// Created returns how many nodes were added.
func (a *ManagementApplier) Created() int { return a.created }

// ApplyManagement is a [Task] running a single [ManagementApplier] walk.
type ApplyManagement struct {
	resolver NodeResolver
	logger   *log.Logger
	created  int
}

// NewApplyManagement returns the apply-management task.
func NewApplyManagement(r NodeResolver, logger *log.Logger) *ApplyManagement {
	return &ApplyManagement{resolver: r, logger: orDiscard(logger)}
}

func (t *ApplyManagement) ID() string { return TaskApplyManagement }

func (t *ApplyManagement) Execute(ctx context.Context, g *dag.Graph) error {
	created, err := applyManagement(ctx, g, t.resolver, t.logger)
	t.created = created
	return graphError(t.ID(), err)
}

// CreatedNodes reports whether the last run added nodes to the graph.
func (t *ApplyManagement) CreatedNodes() bool { return t.created > 0 }

func applyManagement(ctx context.Context, g *dag.Graph, r NodeResolver, logger *log.Logger) (int, error) {
	a := NewManagementApplier(ctx, r, logger)
	err := dag.DepthFirst{}.Visit(g, a)
	return a.Created(), err
}
