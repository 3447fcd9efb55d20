// Package pipeline runs stackresolve end to end: build the raw dependency
// graph, then refine it into Maven's canonical form.
//
// This package is shared by the resolve and refine commands so both apply
// the same defaults, caching and observability hooks.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Build: resolve the root and everything it reaches (pkg/deps). The raw
//     graph is cached under a key derived from the root and the resolver
//     options.
//  2. Refine: run the refinement passes (pkg/dag/transform) in order:
//     populate-graph, resolve-conflicts, transitive-reduction,
//     propagate-scopes.
//
// # Usage
//
//	runner := pipeline.NewRunner(fetcher, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Root: "org.example:app:1.0",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stats.NodeCount)
//
// Refine a graph that was built elsewhere:
//
//	reports, err := runner.Refine(ctx, g, pipeline.Options{})
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/dag/transform"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxNodes is the maximum number of nodes the builder creates.
	DefaultMaxNodes = deps.DefaultMaxNodes

	// DefaultWorkers is the number of concurrent descriptor fetches.
	DefaultWorkers = deps.DefaultWorkers

	// DefaultMaxIterations bounds the populate-graph loop.
	DefaultMaxIterations = transform.DefaultMaxIterations
)

// Tasks lists the refinement task IDs in execution order.
var Tasks = []string{
	transform.TaskPopulateGraph,
	transform.TaskResolveConflicts,
	transform.TaskTransitiveReduction,
	transform.TaskPropagateScopes,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization so runs can be described in files.
type Options struct {
	// Build options
	Root            string   `json:"root"` // group:artifact[:type[:classifier]]:version
	MaxNodes        int      `json:"max_nodes,omitempty"`
	Workers         int      `json:"workers,omitempty"`
	IncludeOptional bool     `json:"include_optional,omitempty"`
	Sources         []string `json:"sources,omitempty"` // metadata sources, part of the graph cache key
	Refresh         bool     `json:"refresh,omitempty"`

	// Refine options
	MaxIterations int      `json:"max_iterations,omitempty"`
	Skip          []string `json:"skip,omitempty"` // task IDs not to run

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	root      dag.ArtifactRef
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Root is the parsed root coordinate.
	Root dag.ArtifactRef

	// Graph is the refined dependency graph.
	Graph *dag.Graph

	// Reports has one entry per refinement task that ran.
	Reports []transform.Report

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RawNodeCount int // nodes after build
	RawEdgeCount int
	Conflicts    int // artifacts present in more than one version after build
	NodeCount    int // nodes after refinement
	EdgeCount    int
	BackEdges    int // edges closing a dependency cycle after refinement
	BuildTime    time.Duration
	RefineTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	BuildHit bool // Whether the raw graph came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateTask checks that id names a refinement task.
func ValidateTask(id string) error {
	if !slices.Contains(Tasks, id) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown task %q (must be one of: %v)", id, Tasks)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForRefine(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBuild parses the root coordinate and applies build defaults.
func (o *Options) ValidateForBuild() error {
	if o.Root == "" {
		return errors.New(errors.ErrCodeInvalidInput, "root coordinate is required")
	}
	ref, err := dag.ParseRef(o.Root)
	if err != nil {
		return err
	}
	o.root = ref
	if o.MaxNodes < 0 || o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_nodes and workers must not be negative")
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	o.setLogger()
	return nil
}

// ValidateForRefine checks the refine options and applies defaults.
// It does not need a root: refine also runs on graphs read from files.
func (o *Options) ValidateForRefine() error {
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_iterations must not be negative")
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	for _, id := range o.Skip {
		if err := ValidateTask(id); err != nil {
			return err
		}
	}
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// RootRef returns the parsed root. Valid after ValidateForBuild.
func (o *Options) RootRef() dag.ArtifactRef { return o.root }

// ResolverOptions returns the builder options.
func (o *Options) ResolverOptions() deps.Options {
	return deps.Options{
		MaxNodes:        o.MaxNodes,
		Workers:         o.Workers,
		IncludeOptional: o.IncludeOptional,
		Refresh:         o.Refresh,
		Logger:          o.Logger,
	}
}

// GraphKeyOpts returns cache key options for the raw graph.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		MaxNodes:        o.MaxNodes,
		IncludeOptional: o.IncludeOptional,
		Sources:         o.Sources,
	}
}
