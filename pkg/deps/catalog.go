package deps

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// A catalog is a TOML file of artifact descriptors, used to resolve graphs
// offline:
//
//	[[artifact]]
//	coordinate = "org.example:app:1.0"
//	dependencies = [
//	  { coordinate = "org.example:lib:1.0", scope = "compile" },
//	  { coordinate = "org.example:util", exclusions = ["org.slf4j:slf4j-api"] },
//	]
//	management = [
//	  { target = "org.example:util", version = "2.1" },
//	]
type catalogFile struct {
	Artifact []catalogArtifact `toml:"artifact"`
}

type catalogArtifact struct {
	Coordinate   string              `toml:"coordinate"`
	Packaging    string              `toml:"packaging"`
	Description  string              `toml:"description"`
	URL          string              `toml:"url"`
	Dependencies []catalogDependency `toml:"dependencies"`
	Management   []catalogManagement `toml:"management"`
}

type catalogDependency struct {
	Coordinate string   `toml:"coordinate"`
	Version    string   `toml:"version"`
	Scope      string   `toml:"scope"`
	Optional   bool     `toml:"optional"`
	Exclusions []string `toml:"exclusions"`
}

type catalogManagement struct {
	Target     string   `toml:"target"`
	Version    string   `toml:"version"`
	Scope      string   `toml:"scope"`
	Exclusions []string `toml:"exclusions"`
}

// LoadCatalog reads a TOML catalog file into a [MemoryFetcher].
func LoadCatalog(path string) (*MemoryFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a TOML catalog. Unknown keys are rejected.
func ParseCatalog(data []byte) (*MemoryFetcher, error) {
	var file catalogFile
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown catalog key %q", undecoded[0].String())
	}

	f := NewMemoryFetcher()
	for i, a := range file.Artifact {
		d, err := a.descriptor()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "catalog artifact #%d", i+1)
		}
		f.Add(d)
	}
	return f, nil
}

func (a catalogArtifact) descriptor() (*Descriptor, error) {
	ref, err := dag.ParseRef(a.Coordinate)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{
		Artifact:    ref,
		Packaging:   a.Packaging,
		Description: a.Description,
		URL:         a.URL,
	}
	for _, cd := range a.Dependencies {
		dep, err := cd.dependency()
		if err != nil {
			return nil, err
		}
		d.Dependencies = append(d.Dependencies, dep)
	}
	for _, cm := range a.Management {
		target, err := dag.ParseKey(cm.Target)
		if err != nil {
			return nil, err
		}
		excl, err := parseKeys(cm.Exclusions)
		if err != nil {
			return nil, err
		}
		d.Management = append(d.Management, dag.ManagementEntry{
			Target:     target,
			Version:    cm.Version,
			Scope:      cm.Scope,
			Exclusions: excl,
		})
	}
	return d, nil
}

// dependency accepts either a full coordinate or a key plus an optional
// version field; a missing version is filled from management later.
func (cd catalogDependency) dependency() (dag.Dependency, error) {
	var ref dag.ArtifactRef
	if r, err := dag.ParseRef(cd.Coordinate); err == nil && cd.Version == "" {
		ref = r
	} else {
		key, kerr := dag.ParseKey(cd.Coordinate)
		if kerr != nil {
			return dag.Dependency{}, kerr
		}
		ref = key.WithVersion(cd.Version)
	}
	excl, err := parseKeys(cd.Exclusions)
	if err != nil {
		return dag.Dependency{}, err
	}
	return dag.Dependency{Artifact: ref, Scope: cd.Scope, Optional: cd.Optional, Exclusions: excl}, nil
}

func parseKeys(ss []string) ([]dag.ArtifactKey, error) {
	var keys []dag.ArtifactKey
	for _, s := range ss {
		k, err := dag.ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
