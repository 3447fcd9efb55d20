package deps

import (
	"context"
	"maps"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// Resolver populates graph nodes from descriptors returned by a [Fetcher].
// It implements transform.NodeResolver and builds raw graphs with [Resolver.Build].
//
// Descriptors are memoized per Resolver, so a node that is collapsed and
// later recreated costs one fetch.
type Resolver struct {
	fetcher Fetcher
	opts    Options
	logger  *log.Logger

	mu    sync.Mutex
	descs map[dag.ArtifactRef]*Descriptor
	errs  map[dag.ArtifactRef]error
}

// NewResolver returns a resolver reading descriptors from f.
func NewResolver(f Fetcher, opts Options) *Resolver {
	opts = opts.WithDefaults()
	return &Resolver{
		fetcher: f,
		opts:    opts,
		logger:  opts.Logger,
		descs:   make(map[dag.ArtifactRef]*Descriptor),
		errs:    make(map[dag.ArtifactRef]error),
	}
}

// Build creates a graph rooted at root and resolves it completely.
func (r *Resolver) Build(ctx context.Context, root dag.ArtifactRef) (*dag.Graph, error) {
	if err := errors.ValidateVersion(root.Version); err != nil {
		return nil, &ResolveError{Artifact: root, Err: err}
	}
	g := dag.New(root)
	if err := r.ResolveGraph(ctx, g); err != nil {
		return nil, err
	}
	r.logger.Debug("graph built", "root", root, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

// ResolveGraph resolves unresolved nodes until none remain. Descriptors for
// each round are fetched concurrently; the graph itself is only touched on
// the calling goroutine.
func (r *Resolver) ResolveGraph(ctx context.Context, g *dag.Graph) error {
	for {
		pending := g.Unresolved()
		if len(pending) == 0 {
			return nil
		}
		if err := r.prefetch(ctx, pending); err != nil {
			return err
		}
		for _, n := range pending {
			if err := r.ResolveNode(ctx, g, n.ID); err != nil {
				return err
			}
		}
	}
}

// ResolveNode fills the node's dependency and management lists, creates its
// outgoing edges and marks it resolved. Resolving a resolved node is a no-op.
//
// Below the root, optional dependencies (unless IncludeOptional is set) and
// test or provided dependencies are not followed. Dependencies matching one
// of the node's exclusions are skipped everywhere. A dependency without a
// version takes it from the descriptor's own management; if there is none
// the dependency is skipped with a warning. Once the graph holds MaxNodes
// nodes, no new node is created.
func (r *Resolver) ResolveNode(ctx context.Context, g *dag.Graph, id dag.NodeID) error {
	n, ok := g.Node(id)
	if !ok {
		return dag.ErrUnknownNode
	}
	if n.Resolved {
		return nil
	}
	desc, err := r.descriptor(ctx, n.Artifact)
	if err != nil {
		return &ResolveError{Artifact: n.Artifact, Err: err}
	}

	isRoot := id == g.Root()
	n.DependencyManagement = desc.Management
	n.Dependencies = nil
	maps.Copy(n.Meta, desc.Metadata())

	for _, d := range desc.Dependencies {
		if !r.follow(n, d, isRoot) {
			continue
		}
		ref := d.Artifact.Normalize()
		if ref.Version == "" {
			ref.Version = desc.managedVersion(ref.Key())
			if ref.Version == "" {
				r.logger.Warn("dependency has no version", "artifact", n.Artifact, "dependency", ref.Key())
				continue
			}
		}
		if err := errors.ValidateVersion(ref.Version); err != nil {
			r.logger.Warn("skipping dependency", "artifact", n.Artifact, "dependency", ref, "err", err)
			continue
		}
		d.Artifact = ref
		n.Dependencies = append(n.Dependencies, d)

		child, exists := g.NodeByRef(ref)
		if !exists {
			if g.NodeCount() >= r.opts.MaxNodes {
				r.logger.Warn("node limit reached", "limit", r.opts.MaxNodes, "skipped", ref)
				continue
			}
			child, _ = g.AddNode(ref)
		}
		if child.ID == g.Root() {
			continue
		}
		child.Exclude(d.Exclusions...)
		child.Exclude(n.Exclusions()...)
		if _, dup := g.EdgeBetween(n.ID, child.ID); dup {
			continue
		}
		e, err := g.AddEdge(n.ID, child.ID, d.Scope)
		if err != nil {
			return &ResolveError{Artifact: n.Artifact, Err: err}
		}
		e.Optional = d.Optional
	}

	n.Resolved = true
	return nil
}

func (r *Resolver) follow(n *dag.Node, d dag.Dependency, isRoot bool) bool {
	if n.Excludes(d.Artifact.Key()) {
		return false
	}
	if isRoot {
		return true
	}
	if d.Optional && !r.opts.IncludeOptional {
		return false
	}
	return d.Scope != dag.ScopeTest && d.Scope != dag.ScopeProvided
}

// prefetch warms the descriptor memo for nodes. Fetch errors are remembered
// and reported by ResolveNode; only cancellation aborts the prefetch.
func (r *Resolver) prefetch(ctx context.Context, nodes []*dag.Node) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Workers)
	for _, n := range nodes {
		ref := n.Artifact
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, _ = r.descriptor(ctx, ref)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Wrap(errors.ErrCodeCancelled, err, "resolution cancelled")
	}
	return nil
}

func (r *Resolver) descriptor(ctx context.Context, ref dag.ArtifactRef) (*Descriptor, error) {
	r.mu.Lock()
	if d, ok := r.descs[ref]; ok {
		r.mu.Unlock()
		return d, nil
	}
	if err, ok := r.errs[ref]; ok {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	d, err := r.fetcher.Fetch(ctx, ref, r.opts.Refresh)
	if err != nil && errors.GetCode(err) == "" {
		err = errors.Wrap(errors.ErrCodeResolve, err, "fetch %s", ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			r.errs[ref] = err
		}
		return nil, err
	}
	r.descs[ref] = d
	return d, nil
}
