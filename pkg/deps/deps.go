package deps

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

const (
	DefaultMaxNodes = 5000 // Default maximum artifacts in a graph
	DefaultWorkers  = 20   // Default concurrent descriptor fetches
)

// Options configures a [Resolver].
type Options struct {
	MaxNodes        int         // Maximum nodes in the graph (default: 5000)
	Workers         int         // Concurrent descriptor fetches (default: 20)
	IncludeOptional bool        // Follow optional dependencies below the root
	Refresh         bool        // Bypass cached descriptors
	Logger          *log.Logger // Optional; discards by default
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return opts
}

// Descriptor is the dependency metadata of one artifact version, as declared
// by its project model after inheritance and interpolation.
type Descriptor struct {
	Artifact     dag.ArtifactRef       // Coordinate the descriptor describes
	Packaging    string                // pom, jar, ... (informational)
	Description  string                // Project description
	URL          string                // Project homepage
	Dependencies []dag.Dependency      // Declared dependencies in declaration order
	Management   []dag.ManagementEntry // dependencyManagement entries
}

// Metadata converts descriptor fields to node metadata.
func (d *Descriptor) Metadata() dag.Metadata {
	m := dag.Metadata{}
	if d.Packaging != "" {
		m["packaging"] = d.Packaging
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.URL != "" {
		m["url"] = d.URL
	}
	return m
}

// managedVersion returns the version d's management assigns to key.
func (d *Descriptor) managedVersion(key dag.ArtifactKey) string {
	key = key.Normalize()
	for _, m := range d.Management {
		if m.Target.Normalize() == key {
			return m.Version
		}
	}
	return ""
}

// Fetcher retrieves artifact descriptors.
type Fetcher interface {
	// Fetch returns the descriptor for ref. If refresh is true, cached data
	// is bypassed.
	Fetch(ctx context.Context, ref dag.ArtifactRef, refresh bool) (*Descriptor, error)
}

// ResolveError reports a failure to resolve a single artifact.
type ResolveError struct {
	Artifact dag.ArtifactRef
	Err      error
}

func (e *ResolveError) Error() string { return fmt.Sprintf("resolve %s: %v", e.Artifact, e.Err) }

func (e *ResolveError) Unwrap() error { return e.Err }
