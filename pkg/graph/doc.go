// Package graph provides the JSON serialization format for dependency
// graphs.
//
// The format is used for `stackresolve resolve --format json`, for the
// graph cache and as input to `stackresolve refine`.
//
// # Format
//
//	{
//	  "root": 1,
//	  "nodes": [
//	    {"id": 1, "coordinate": "org.example:app:1.0", "resolved": true},
//	    {"id": 2, "coordinate": "org.example:core:2.1", "resolved": true}
//	  ],
//	  "edges": [
//	    {"from": 1, "to": 2, "scope": "compile"}
//	  ]
//	}
//
// Coordinates use group:artifact[:type[:classifier]]:version; the type is
// omitted when it is jar. Nodes may also carry their exclusions, declared
// dependencies, dependencyManagement rules and metadata, so a saved graph
// can be refined again without refetching anything.
//
// # Round Trips
//
// [FromDAG] followed by [ToDAG] reproduces the structure, the coordinates
// and all node state. Node and edge handles are reassigned on import.
// Numbers in metadata come back as float64.
package graph
