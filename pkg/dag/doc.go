// Package dag provides the mutable artifact graph that dependency resolution
// and refinement operate on.
//
// # Overview
//
// A [Graph] is rooted at the artifact being resolved. Each node is one
// artifact version ([ArtifactRef]); each edge is a dependency declaration
// from the declaring artifact to the dependency, annotated with a scope.
// During resolution the same artifact ([ArtifactKey]) may appear at several
// versions and may be reached along several paths; the refinement passes in
// the [transform] subpackage reduce this raw graph to one version per
// artifact with a single, scope-annotated set of edges.
//
// # Storage
//
// Nodes and edges live in an arena and are addressed by integer handles
// ([NodeID], [EdgeID]) that are never reused. A pass can therefore record
// "edge 17 should move to node 9" during a traversal and apply it later
// without worrying about iterator invalidation:
//
//	g := dag.New(dag.NewRef("com.example", "app", "1.0"))
//	lib, _ := g.AddNode(dag.NewRef("com.example", "lib", "2.1"))
//	g.AddEdge(g.Root(), lib.ID, dag.ScopeCompile)
//
// Iteration ([Graph.Nodes], [Graph.Edges]) is in ascending ID order so
// every pass is deterministic.
//
// # Traversal
//
// A [Walker] drives a [Visitor] through the graph. [DepthFirst] reports
// nodes in pre-order and descends between DiscoverEdge and FinishEdge, which
// lets a visitor keep root-to-node path state. [BreadthFirst] reports nodes
// level by level with their shortest distance from the root.
//
// Visitors must not add or remove nodes or edges while the walk is running;
// they stage changes and apply them in FinishGraph. Walkers detect
// violations and return [ErrGraphModified].
//
// # Graph Utilities
//
// [CollapseNodes] merges one node into another by redirecting its incoming
// edges, and [CleanupOrphanedNodes] drops nodes that are no longer reachable
// from the root. Together they implement version mediation.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
//
// [transform]: github.com/matzehuels/stackresolve/pkg/dag/transform
package dag
