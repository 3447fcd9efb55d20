// Package deps builds raw dependency graphs from artifact descriptors.
//
// # Overview
//
// A [Descriptor] is what a project model declares for one artifact version:
// its dependencies (with scope, optional flag and exclusions) and its
// dependencyManagement entries. Descriptors come from a [Fetcher]:
//
//   - [MemoryFetcher]: in-memory, filled by hand or from a TOML catalog
//     ([LoadCatalog])
//   - maven.Fetcher: POM files from local and remote repositories
//   - [ChainFetcher]: several fetchers tried in order
//
// # Resolving
//
// [Resolver] turns descriptors into graph structure. [Resolver.Build]
// creates the graph for a root coordinate; [Resolver.ResolveNode] and
// [Resolver.ResolveGraph] resolve individual nodes and are what the
// refinement passes in transform call when management creates new nodes:
//
//	r := deps.NewResolver(fetcher, deps.Options{MaxNodes: 1000})
//	g, err := r.Build(ctx, dag.NewRef("org.example", "app", "1.0"))
//
// Each round of ResolveGraph fetches the descriptors of all pending nodes
// concurrently (bounded by Options.Workers) and then mutates the graph on
// the calling goroutine.
//
// # Filtering
//
// The root's dependencies are always followed. Below the root, test and
// provided dependencies are dropped, and optional ones unless
// Options.IncludeOptional is set. Exclusions declared on a dependency are
// added to the dependency's node and inherited by its children.
//
// # Errors
//
// Failures to fetch or parse a descriptor are returned as [ResolveError],
// wrapping a coded error from pkg/errors (ARTIFACT_NOT_FOUND,
// NETWORK_ERROR, INVALID_METADATA, ...).
package deps
