// Package maven reads Maven project models (POMs) and serves them as
// dependency descriptors.
//
// # Repositories
//
// A [Repository] returns raw POM documents:
//
//   - [LocalRepository]: a directory in Maven layout, e.g. ~/.m2/repository
//   - [RemoteRepository]: an HTTP repository such as [CentralURL], with a
//     pluggable cache and retries for transient failures
//   - [ChainRepository]: several repositories, first hit wins
//
// # Effective Models
//
// [Fetcher] turns a POM into its effective model before handing it to the
// resolver:
//
//  1. The parent chain is loaded (at most [MaxParentDepth] levels) and
//     merged, child values first.
//  2. ${...} references are interpolated from properties and the
//     project.* built-ins.
//  3. import-scoped BOMs in dependencyManagement are replaced by the
//     entries they manage.
//
// Dependencies without a version take it from the effective
// dependencyManagement.
//
//	repo, _ := maven.NewRemoteRepository("central", maven.CentralURL,
//	    maven.WithCache(c, cache.NewDefaultKeyer(), cache.POMTTL))
//	r := deps.NewResolver(maven.NewFetcher(repo, logger), deps.Options{})
//	g, err := r.Build(ctx, dag.NewRef("org.example", "app", "1.0"))
//
// # Errors
//
// Missing POMs carry ARTIFACT_NOT_FOUND, malformed ones INVALID_METADATA
// and transport failures NETWORK_ERROR (see pkg/errors).
package maven
