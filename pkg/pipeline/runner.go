package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/dag/transform"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/graph"
	"github.com/matzehuels/stackresolve/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, fetcher and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Fetcher  deps.Fetcher
	Logger   *log.Logger
	GraphTTL time.Duration // lifetime of cached raw graphs
}

// NewRunner creates a runner reading descriptors from f.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(f deps.Fetcher, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Fetcher:  f,
		Logger:   logger,
		GraphTTL: cache.GraphTTL,
	}
}

// Execute runs the complete build → refine pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString(), Root: opts.RootRef()}
	logger := r.Logger.With("run", result.RunID)

	// Stage 1: Build
	buildStart := time.Now()
	g, buildHit, err := r.BuildWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.RawNodeCount = g.NodeCount()
	result.Stats.RawEdgeCount = g.EdgeCount()
	result.Stats.Conflicts = len(g.Conflicts())
	result.CacheInfo.BuildHit = buildHit

	logger.Info("built graph",
		"root", result.Root,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"conflicts", result.Stats.Conflicts,
		"cached", buildHit,
		"duration", result.Stats.BuildTime)

	// Stage 2: Refine
	refineStart := time.Now()
	reports, err := r.Refine(ctx, g, opts)
	result.Reports = reports
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.RefineTime = time.Since(refineStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.BackEdges = len(transform.BackEdges(g))

	logger.Info("refined graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"tasks", len(reports),
		"duration", result.Stats.RefineTime)

	return result, nil
}

// BuildWithCacheInfo builds the raw graph with caching and returns cache hit info.
// The cached graph is the unrefined one, so refinement options can change
// without invalidating it.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, opts Options) (*dag.Graph, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForBuild(); err != nil {
		return nil, false, err
	}
	if r.Fetcher == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "runner has no fetcher")
	}

	root := opts.RootRef()
	cacheKey := r.Keyer.GraphKey(root.String(), opts.GraphKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if g, err := graph.UnmarshalGraph(data); err == nil {
				hooks.OnCacheHit(ctx, "graph")
				return g, true, nil
			}
			// If deserialization fails, fall through to rebuild
		}
		hooks.OnCacheMiss(ctx, "graph")
	}

	pipelineHooks := observability.Pipeline()
	pipelineHooks.OnBuildStart(ctx, root.String())
	start := time.Now()
	g, err := deps.NewResolver(r.Fetcher, opts.ResolverOptions()).Build(ctx, root)
	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	pipelineHooks.OnBuildComplete(ctx, root.String(), nodes, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := graph.MarshalGraph(g); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.GraphTTL); err == nil {
			hooks.OnCacheSet(ctx, "graph", len(data))
		} else {
			opts.Logger.Warn("caching graph failed", "err", err)
		}
	}
	return g, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, opts Options) (*dag.Graph, error) {
	g, _, err := r.BuildWithCacheInfo(ctx, opts)
	return g, err
}

// Refine runs the refinement passes on g in place. Nodes created by
// dependency management are resolved with the runner's fetcher.
func (r *Runner) Refine(ctx context.Context, g *dag.Graph, opts Options) ([]transform.Report, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRefine(); err != nil {
		return nil, err
	}
	if r.Fetcher == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "runner has no fetcher")
	}
	resolver := deps.NewResolver(r.Fetcher, opts.ResolverOptions())
	p := transform.DefaultPipeline(resolver, opts.Logger).Without(opts.Skip...)
	for _, t := range p.Tasks {
		if pg, ok := t.(*transform.PopulateGraph); ok {
			pg.MaxIterations = opts.MaxIterations
		}
	}

	hooks := observability.Pipeline()
	p.OnStart = func(ctx context.Context, task string) context.Context {
		hooks.OnTaskStart(ctx, task, g.NodeCount())
		return ctx
	}
	p.OnComplete = func(ctx context.Context, rep transform.Report, err error) {
		hooks.OnTaskComplete(ctx, rep.Task, rep.NodesAfter, rep.Duration, err)
	}
	return p.Run(ctx, g)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
