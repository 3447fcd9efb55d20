package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
	errs "github.com/matzehuels/stackresolve/pkg/errors"
)

// Task IDs of the built-in refinement passes.
const (
	TaskPopulateGraph       = "populate-graph"
	TaskApplyManagement     = "apply-management"
	TaskResolveConflicts    = "resolve-conflicts"
	TaskTransitiveReduction = "transitive-reduction"
	TaskPropagateScopes     = "propagate-scopes"
)

// Task is one refinement pass over a graph. Execute returns nil or a
// *[TaskError].
type Task interface {
	ID() string
	Execute(ctx context.Context, g *dag.Graph) error
}

// NodeResolver populates unresolved nodes: it fills the node's dependency
// and management lists, creates its outgoing edges and marks it resolved.
type NodeResolver interface {
	// ResolveNode resolves a single node.
	ResolveNode(ctx context.Context, g *dag.Graph, id dag.NodeID) error
	// ResolveGraph resolves every node that is currently unresolved,
	// including nodes it creates while doing so.
	ResolveGraph(ctx context.Context, g *dag.Graph) error
}

// TaskError is returned by a failing [Task]. Err is either the resolver's
// error, unchanged, or a coded error describing a broken graph invariant.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Task, e.Err) }

func (e *TaskError) Unwrap() error { return e.Err }

func taskError(task string, err error) error {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) && te.Task == task {
		return err
	}
	return &TaskError{Task: task, Err: err}
}

func invariantError(task, format string, args ...any) error {
	return &TaskError{Task: task, Err: errs.New(errs.ErrCodeInvariant, format, args...)}
}

// graphError maps graph sentinel errors to invariant violations; anything
// else (a resolver failure) is passed through.
func graphError(task string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		dag.ErrUnknownNode, dag.ErrUnknownEdge, dag.ErrRootRemoval,
		dag.ErrRootHasParent, dag.ErrGraphModified, dag.ErrDuplicateArtifact,
	} {
		if errors.Is(err, sentinel) {
			return &TaskError{Task: task, Err: errs.Wrap(errs.ErrCodeInvariant, err, "graph invariant violated")}
		}
	}
	return taskError(task, err)
}

// Report describes one task run.
type Report struct {
	Task        string
	Duration    time.Duration
	NodesBefore int
	NodesAfter  int
	EdgesBefore int
	EdgesAfter  int
}

// Pipeline runs tasks in order over one graph. The first failing task stops
// the pipeline; changes already made to the graph are kept.
type Pipeline struct {
	Tasks  []Task
	Logger *log.Logger

	// OnStart, if set, is called before each task. The returned context is
	// passed to the task and to OnComplete.
	OnStart func(ctx context.Context, task string) context.Context
	// OnComplete, if set, is called after each task with its report and error.
	OnComplete func(ctx context.Context, r Report, err error)
}

// NewPipeline returns a pipeline running tasks in order.
func NewPipeline(logger *log.Logger, tasks ...Task) *Pipeline {
	return &Pipeline{Tasks: tasks, Logger: orDiscard(logger)}
}

// DefaultPipeline returns the standard refinement order: populate-graph,
// resolve-conflicts, transitive-reduction, propagate-scopes.
func DefaultPipeline(r NodeResolver, logger *log.Logger) *Pipeline {
	logger = orDiscard(logger)
	return NewPipeline(logger,
		NewPopulateGraph(r, logger),
		NewResolveConflicts(logger),
		NewTransitiveReduction(logger),
		NewPropagateScopes(logger),
	)
}

// Without returns a copy of p that skips the tasks with the given IDs.
func (p *Pipeline) Without(ids ...string) *Pipeline {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	out := *p
	out.Tasks = nil
	for _, t := range p.Tasks {
		if !skip[t.ID()] {
			out.Tasks = append(out.Tasks, t)
		}
	}
	return &out
}

// Run executes every task and returns a report per completed task.
func (p *Pipeline) Run(ctx context.Context, g *dag.Graph) ([]Report, error) {
	logger := orDiscard(p.Logger)
	reports := make([]Report, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if err := ctx.Err(); err != nil {
			return reports, &TaskError{Task: t.ID(), Err: errs.Wrap(errs.ErrCodeCancelled, err, "pipeline cancelled")}
		}

		taskCtx := ctx
		if p.OnStart != nil {
			taskCtx = p.OnStart(ctx, t.ID())
		}

		r := Report{Task: t.ID(), NodesBefore: g.NodeCount(), EdgesBefore: g.EdgeCount()}
		start := time.Now()
		err := t.Execute(taskCtx, g)
		r.Duration = time.Since(start)
		r.NodesAfter, r.EdgesAfter = g.NodeCount(), g.EdgeCount()

		if p.OnComplete != nil {
			p.OnComplete(taskCtx, r, err)
		}
		if err != nil {
			return reports, taskError(t.ID(), err)
		}
		logger.Debug("task complete", "task", r.Task,
			"nodes", r.NodesAfter, "edges", r.EdgesAfter, "duration", r.Duration)
		reports = append(reports, r)
	}
	return reports, nil
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return l
}
