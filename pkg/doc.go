// Package pkg provides the core libraries for stackresolve, a Maven
// dependency graph resolver.
//
// # Overview
//
// Stackresolve builds the dependency graph of a Maven artifact from POM
// metadata and refines it into the graph Maven would use: dependency
// management is applied, each artifact keeps a single version, redundant
// edges are dropped and scopes are propagated from the root.
//
// # Architecture
//
// The typical data flow:
//
//	Maven repositories / TOML catalogs
//	         ↓
//	    [maven] package (POMs → effective models → descriptors)
//	         ↓
//	    [deps] package (build the raw graph)
//	         ↓
//	    [dag/transform] package (populate, resolve conflicts, reduce, propagate scopes)
//	         ↓
//	    [graph] / [render/nodelink] (JSON, DOT, SVG, PDF, PNG)
//
// [pipeline] runs the whole chain with caching and is what the CLI calls.
//
// # Quick Start
//
//	repo, _ := maven.NewRemoteRepository("central", maven.CentralURL)
//	runner := pipeline.NewRunner(maven.NewFetcher(repo, nil), nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{Root: "org.example:app:1.0"})
//	if err != nil {
//	    return err
//	}
//	svg, _ := nodelink.RenderSVG(ctx, nodelink.ToDOT(result.Graph, nodelink.Options{Scopes: true}))
//
// # Main Packages
//
// ## Domain
//
// [dag] - The dependency graph: artifact coordinates, nodes with dependency
// and management lists, scoped edges, walkers and visitors, node collapse.
//
// [dag/transform] - The refinement tasks and the pipeline that runs them.
//
// [version] - Maven version ordering.
//
// [deps] - Descriptors, fetchers and the resolver that builds raw graphs.
//
// [maven] - POM parsing, parent inheritance, BOM import, local and remote
// repositories.
//
// ## Infrastructure
//
// [cache] - File, Redis and MongoDB caches for POMs and graphs.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Hooks for build, task, cache and HTTP events.
//
// [errors] - Coded errors and input validation.
//
// ## Output
//
// [graph] - JSON serialization of graphs.
//
// [render/nodelink] - Graphviz diagrams; [render] converts SVG to PDF/PNG.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include tests against real servers
package pkg
