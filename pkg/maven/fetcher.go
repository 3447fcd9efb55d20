package maven

import (
	"context"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// MaxParentDepth bounds parent chains and nested BOM imports.
const MaxParentDepth = 10

// ModelCacheSize is the number of effective models a fetcher keeps in memory.
const ModelCacheSize = 4096

// Fetcher builds effective project models from a [Repository] and serves
// them as descriptors. It implements deps.Fetcher and is safe for
// concurrent use.
//
// The effective model of a POM is the POM merged with its parent chain
// (child values win), with ${...} properties interpolated and import-scoped
// BOMs in dependencyManagement replaced by the BOM's managed dependencies.
type Fetcher struct {
	repo   Repository
	logger *log.Logger

	models *lru.Cache[dag.ArtifactRef, *Project]
}

// NewFetcher returns a fetcher reading POMs from repo.
func NewFetcher(repo Repository, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	// lru.New only fails for a non-positive size.
	models, _ := lru.New[dag.ArtifactRef, *Project](ModelCacheSize)
	return &Fetcher{
		repo:   repo,
		logger: logger,
		models: models,
	}
}

// Fetch implements deps.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, ref dag.ArtifactRef, refresh bool) (*deps.Descriptor, error) {
	p, err := f.Effective(ctx, ref, refresh)
	if err != nil {
		return nil, err
	}
	return descriptor(ref, p), nil
}

// Effective returns the effective model for ref.
func (f *Fetcher) Effective(ctx context.Context, ref dag.ArtifactRef, refresh bool) (*Project, error) {
	return f.effective(ctx, pomRef(ref), refresh, nil)
}

// pomRef drops type and classifier: every artifact of a version shares one POM.
func pomRef(ref dag.ArtifactRef) dag.ArtifactRef {
	return dag.NewRef(ref.GroupID, ref.ArtifactID, ref.Version)
}

func (f *Fetcher) effective(ctx context.Context, ref dag.ArtifactRef, refresh bool, chain []dag.ArtifactRef) (*Project, error) {
	if slices.Contains(chain, ref) {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "cyclic parent or import chain at %s", ref)
	}
	if len(chain) >= MaxParentDepth {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "parent chain of %s deeper than %d", chain[0], MaxParentDepth)
	}

	if !refresh {
		if p, ok := f.models.Get(ref); ok {
			return p, nil
		}
	}

	p, err := f.load(ctx, ref, refresh, append(chain, ref))
	if err != nil {
		return nil, err
	}
	f.models.Add(ref, p)
	return p, nil
}

func (f *Fetcher) load(ctx context.Context, ref dag.ArtifactRef, refresh bool, chain []dag.ArtifactRef) (*Project, error) {
	data, err := f.repo.FetchPOM(ctx, ref, refresh)
	if err != nil {
		return nil, err
	}
	p, err := ParsePOM(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "pom %s", ref)
	}

	if p.Parent != nil {
		parent, err := f.effective(ctx, pomRef(p.Parent.Ref()), refresh, chain)
		if err != nil {
			return nil, wrap(err, "parent of %s", ref)
		}
		inherit(p, parent)
	}
	if p.GroupID == "" {
		p.GroupID = ref.GroupID
	}
	if p.Version == "" {
		p.Version = ref.Version
	}
	p.interpolateAll()

	if err := f.importBOMs(ctx, p, refresh, chain); err != nil {
		return nil, err
	}
	return p, nil
}

// inherit merges parent values into child. Child values win; dependencies
// and management entries are merged by key.
func inherit(child, parent *Project) {
	if child.GroupID == "" {
		child.GroupID = parent.GroupID
	}
	if child.Version == "" {
		child.Version = parent.Version
	}
	if child.Description == "" {
		child.Description = parent.Description
	}
	if child.URL == "" {
		child.URL = parent.URL
	}

	props := make(Properties, len(parent.Properties)+len(child.Properties))
	for k, v := range parent.Properties {
		props[k] = v
	}
	for k, v := range child.Properties {
		props[k] = v
	}
	child.Properties = props

	child.Dependencies = mergeDeps(child.Dependencies, parent.Dependencies)
	child.DependencyManagement = mergeDeps(child.DependencyManagement, parent.DependencyManagement)
}

func mergeDeps(own, inherited []Dependency) []Dependency {
	seen := make(map[dag.ArtifactKey]bool, len(own))
	for _, d := range own {
		seen[d.Key()] = true
	}
	out := slices.Clone(own)
	for _, d := range inherited {
		if !seen[d.Key()] {
			d.Exclusions = slices.Clone(d.Exclusions)
			out = append(out, d)
		}
	}
	return out
}

// wrap adds context to err and keeps its code.
func wrap(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeResolve
	}
	return errors.Wrap(code, err, format, args...)
}

func (f *Fetcher) importBOMs(ctx context.Context, p *Project, refresh bool, chain []dag.ArtifactRef) error {
	var managed, imports []Dependency
	for _, d := range p.DependencyManagement {
		if d.IsImport() {
			imports = append(imports, d)
		} else {
			managed = append(managed, d)
		}
	}
	for _, imp := range imports {
		bomRef := dag.NewRef(imp.GroupID, imp.ArtifactID, imp.Version)
		if err := errors.ValidateVersion(bomRef.Version); err != nil {
			f.logger.Warn("skipping bom import", "project", p.ArtifactID, "bom", bomRef, "err", err)
			continue
		}
		bom, err := f.effective(ctx, bomRef, refresh, chain)
		if err != nil {
			return wrap(err, "import %s", bomRef)
		}
		managed = mergeDeps(managed, bom.DependencyManagement)
	}
	p.DependencyManagement = managed
	return nil
}

// descriptor converts an effective model to a resolver descriptor.
// Dependencies without a version take it from the model's management.
func descriptor(ref dag.ArtifactRef, p *Project) *deps.Descriptor {
	d := &deps.Descriptor{
		Artifact:    ref,
		Packaging:   p.Packaging,
		Description: p.Description,
		URL:         p.URL,
	}

	managed := make(map[dag.ArtifactKey]string, len(p.DependencyManagement))
	for _, m := range p.DependencyManagement {
		d.Management = append(d.Management, dag.ManagementEntry{
			Target:     m.Key(),
			Version:    m.Version,
			Scope:      m.Scope,
			Exclusions: exclusionKeys(m.Exclusions),
		})
		managed[m.Key()] = m.Version
	}

	for _, dep := range p.Dependencies {
		version := dep.Version
		if version == "" {
			version = managed[dep.Key()]
		}
		d.Dependencies = append(d.Dependencies, dag.Dependency{
			Artifact:   dep.Key().WithVersion(version),
			Scope:      dep.Scope,
			Optional:   dep.IsOptional(),
			Exclusions: exclusionKeys(dep.Exclusions),
		})
	}
	return d
}

func exclusionKeys(excl []Exclusion) []dag.ArtifactKey {
	if len(excl) == 0 {
		return nil
	}
	keys := make([]dag.ArtifactKey, len(excl))
	for i, e := range excl {
		keys[i] = dag.NewKey(e.GroupID, e.ArtifactID)
	}
	return keys
}

var _ deps.Fetcher = (*Fetcher)(nil)
