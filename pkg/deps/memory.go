package deps

import (
	"context"
	"sync"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// MemoryFetcher serves descriptors from memory. It is safe for concurrent use.
type MemoryFetcher struct {
	mu    sync.RWMutex
	descs map[dag.ArtifactRef]*Descriptor
}

// NewMemoryFetcher returns a fetcher holding descs.
func NewMemoryFetcher(descs ...*Descriptor) *MemoryFetcher {
	f := &MemoryFetcher{descs: make(map[dag.ArtifactRef]*Descriptor, len(descs))}
	for _, d := range descs {
		f.Add(d)
	}
	return f
}

// Add stores d under its normalized coordinate, replacing any previous entry.
func (f *MemoryFetcher) Add(d *Descriptor) {
	d.Artifact = d.Artifact.Normalize()
	f.mu.Lock()
	f.descs[d.Artifact] = d
	f.mu.Unlock()
}

// Len returns the number of stored descriptors.
func (f *MemoryFetcher) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.descs)
}

// Fetch implements [Fetcher].
func (f *MemoryFetcher) Fetch(_ context.Context, ref dag.ArtifactRef, _ bool) (*Descriptor, error) {
	f.mu.RLock()
	d, ok := f.descs[ref.Normalize()]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "artifact %s not found", ref)
	}
	return d, nil
}

// ChainFetcher tries each fetcher in order. An artifact-not-found error
// falls through to the next fetcher; any other error is returned at once.
type ChainFetcher []Fetcher

// Fetch implements [Fetcher].
func (c ChainFetcher) Fetch(ctx context.Context, ref dag.ArtifactRef, refresh bool) (*Descriptor, error) {
	for _, f := range c {
		d, err := f.Fetch(ctx, ref, refresh)
		if err == nil {
			return d, nil
		}
		if !errors.Has(err, errors.ErrCodeArtifactNotFound) {
			return nil, err
		}
	}
	return nil, errors.New(errors.ErrCodeArtifactNotFound, "artifact %s not found", ref)
}
