package transform

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

// DefaultMaxIterations bounds the populate-graph loop.
const DefaultMaxIterations = 5

// PopulateGraph is the [Task] that drives resolution and dependency
// management to a fixed point.
//
// Each iteration resolves every unresolved node and then runs one
// management walk. Version collapses can introduce new nodes whose own
// dependencies and management rules are unknown, so the loop repeats until
// an iteration creates no node or MaxIterations iterations have run.
// Nodes left unreachable by a management walk are removed before the next
// iteration, so they are never resolved again.
type PopulateGraph struct {
	MaxIterations int

	resolver   NodeResolver
	logger     *log.Logger
	iterations int
}

// NewPopulateGraph returns the populate-graph task with
// [DefaultMaxIterations].
func NewPopulateGraph(r NodeResolver, logger *log.Logger) *PopulateGraph {
	return &PopulateGraph{MaxIterations: DefaultMaxIterations, resolver: r, logger: orDiscard(logger)}
}

func (t *PopulateGraph) ID() string { return TaskPopulateGraph }

func (t *PopulateGraph) Execute(ctx context.Context, g *dag.Graph) error {
	if t.resolver == nil {
		return invariantError(t.ID(), "no node resolver configured")
	}
	remaining := t.MaxIterations
	if remaining <= 0 {
		remaining = DefaultMaxIterations
	}

	t.iterations = 0
	for {
		if err := t.resolver.ResolveGraph(ctx, g); err != nil {
			return taskError(t.ID(), err)
		}
		created, err := applyManagement(ctx, g, t.resolver, t.logger)
		if err != nil {
			return graphError(t.ID(), err)
		}
		removed := dag.CleanupOrphanedNodes(g)
		t.iterations++
		remaining--

		t.logger.Debug("populate iteration", "iteration", t.iterations, "created", created, "removed", removed, "nodes", g.NodeCount())
		if created == 0 {
			break
		}
		if remaining == 0 {
			t.logger.Warn("populate-graph stopped before reaching a fixed point", "iterations", t.iterations)
			break
		}
	}

	return nil
}

// Iterations returns how many iterations the last Execute ran.
func (t *PopulateGraph) Iterations() int { return t.iterations }
