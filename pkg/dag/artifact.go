package dag

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/stackresolve/pkg/errors"
)

// DefaultType is the packaging type assumed when a coordinate omits one.
const DefaultType = "jar"

// ArtifactKey identifies an artifact independently of its version.
//
// Two nodes with equal keys but different versions are a version conflict.
// ArtifactKey is comparable and is used directly as a map key. Keys built
// with [NewKey] or [ParseKey] always carry a non-empty Type; use
// [ArtifactKey.Normalize] on hand-built values before comparing them.
type ArtifactKey struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Type       string
}

// NewKey returns the key for group:artifact with the default type.
func NewKey(groupID, artifactID string) ArtifactKey {
	return ArtifactKey{GroupID: groupID, ArtifactID: artifactID, Type: DefaultType}
}

// Normalize returns k with an empty Type replaced by [DefaultType].
func (k ArtifactKey) Normalize() ArtifactKey {
	if k.Type == "" {
		k.Type = DefaultType
	}
	return k
}

// WithVersion returns the full coordinate for k at version v.
func (k ArtifactKey) WithVersion(v string) ArtifactRef {
	return ArtifactRef{ArtifactKey: k, Version: v}
}

// String renders the key as group:artifact[:type[:classifier]]. The type is
// omitted when it is the default and no classifier is present.
func (k ArtifactKey) String() string {
	var b strings.Builder
	b.WriteString(k.GroupID)
	b.WriteByte(':')
	b.WriteString(k.ArtifactID)
	typ := cmp.Or(k.Type, DefaultType)
	if typ != DefaultType || k.Classifier != "" {
		b.WriteByte(':')
		b.WriteString(typ)
		if k.Classifier != "" {
			b.WriteByte(':')
			b.WriteString(k.Classifier)
		}
	}
	return b.String()
}

// Compare orders keys by group, artifact, type and classifier.
func (k ArtifactKey) Compare(o ArtifactKey) int {
	return cmp.Or(
		strings.Compare(k.GroupID, o.GroupID),
		strings.Compare(k.ArtifactID, o.ArtifactID),
		strings.Compare(k.Type, o.Type),
		strings.Compare(k.Classifier, o.Classifier),
	)
}

// ArtifactRef is a full artifact coordinate: a key plus a version.
// It addresses exactly one node in a [Graph].
type ArtifactRef struct {
	ArtifactKey
	Version string
}

// NewRef returns the coordinate group:artifact:version with the default type.
func NewRef(groupID, artifactID, version string) ArtifactRef {
	return NewKey(groupID, artifactID).WithVersion(version)
}

// Key returns the version-less identity of r.
func (r ArtifactRef) Key() ArtifactKey { return r.ArtifactKey }

// Normalize returns r with an empty Type replaced by [DefaultType].
func (r ArtifactRef) Normalize() ArtifactRef {
	r.ArtifactKey = r.ArtifactKey.Normalize()
	return r
}

// WithVersion returns a copy of r pointing at version v.
func (r ArtifactRef) WithVersion(v string) ArtifactRef {
	r.Version = v
	return r
}

// String renders r in Maven coordinate order: group:artifact[:type[:classifier]]:version.
func (r ArtifactRef) String() string {
	return r.ArtifactKey.String() + ":" + r.Version
}

// ParseKey parses group:artifact, group:artifact:type or
// group:artifact:type:classifier.
func ParseKey(s string) (ArtifactKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return ArtifactKey{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"invalid artifact key %q: expected group:artifact[:type[:classifier]]", s)
	}
	k := ArtifactKey{GroupID: parts[0], ArtifactID: parts[1]}
	if len(parts) > 2 {
		k.Type = parts[2]
	}
	if len(parts) > 3 {
		k.Classifier = parts[3]
	}
	if err := validateKey(k, len(parts)); err != nil {
		return ArtifactKey{}, err
	}
	return k.Normalize(), nil
}

// ParseRef parses group:artifact:version, group:artifact:type:version or
// group:artifact:type:classifier:version.
func ParseRef(s string) (ArtifactRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return ArtifactRef{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"invalid coordinate %q: expected group:artifact[:type[:classifier]]:version", s)
	}
	version := parts[len(parts)-1]
	k, err := ParseKey(strings.Join(parts[:len(parts)-1], ":"))
	if err != nil {
		return ArtifactRef{}, err
	}
	if err := errors.ValidateVersion(version); err != nil {
		return ArtifactRef{}, err
	}
	return k.WithVersion(version), nil
}

func validateKey(k ArtifactKey, parts int) error {
	if err := errors.ValidateCoordinatePart("groupId", k.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("artifactId", k.ArtifactID); err != nil {
		return err
	}
	if parts > 2 {
		if err := errors.ValidateCoordinatePart("type", k.Type); err != nil {
			return err
		}
	}
	if parts > 3 {
		if err := errors.ValidateCoordinatePart("classifier", k.Classifier); err != nil {
			return err
		}
	}
	return nil
}

// Dependency is a dependency declaration as read from artifact metadata.
// An empty Version means the version is expected to come from dependency
// management.
type Dependency struct {
	Artifact   ArtifactRef
	Scope      string
	Optional   bool
	Exclusions []ArtifactKey
}

// ManagementEntry is a dependency-management rule declared by a node. It
// overrides the version, scope and exclusions of every occurrence of Target
// below the declaring node.
type ManagementEntry struct {
	Target     ArtifactKey
	Version    string
	Scope      string
	Exclusions []ArtifactKey
}

// Scopes recognised by the resolver and the scope propagator.
const (
	ScopeCompile  = "compile"
	ScopeRuntime  = "runtime"
	ScopeProvided = "provided"
	ScopeTest     = "test"
	ScopeSystem   = "system"
	ScopeImport   = "import"
)

// SortKeys sorts keys in place by [ArtifactKey.Compare].
func SortKeys(keys []ArtifactKey) {
	slices.SortFunc(keys, ArtifactKey.Compare)
}
