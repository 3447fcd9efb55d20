// Package transform provides the refinement passes that turn a raw
// dependency graph into Maven's canonical form.
//
// # Overview
//
// A freshly built graph may contain several versions of the same artifact,
// several paths to the same node and the scopes exactly as each POM declared
// them. The passes in this package run in a fixed order:
//
//   - [PopulateGraph] resolves the graph and applies dependency management
//     until no new nodes appear (at most [DefaultMaxIterations] rounds)
//   - [ResolveConflicts] keeps one version per artifact: the nearest to the
//     root, and on a tie the newest
//   - [TransitiveReduction] drops edges that reach a node from deeper than
//     its shallowest parents
//   - [PropagateScopes] makes transitive edges inherit the scope of the path
//     that leads to them
//
// [DefaultPipeline] wires them together:
//
//	p := transform.DefaultPipeline(resolver, logger)
//	reports, err := p.Run(ctx, g)
//
// # Visitors and Staged Mutation
//
// Each pass is a [dag.Visitor] driven by a [dag.Walker]. Visitors record
// what should change while the walk runs and apply it in FinishGraph, after
// iteration is over. Only edge scopes are changed in place.
//
// # Dependency Management
//
// The [ManagementStack] follows the depth-first path. When several nodes on
// the path manage the same artifact, the rule declared closest to the root
// wins. Exclusions from a rule are added to the node that is being visited,
// not to the managed dependency.
//
// # Errors
//
// Every task returns nil or a [TaskError]. Resolver failures are wrapped
// unchanged; broken graph invariants carry the INVARIANT_VIOLATION code.
// Nothing is rolled back when a task fails.
package transform
