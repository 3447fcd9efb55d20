package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Keyer generates cache keys.
type Keyer interface {
	// POMKey returns the key for a POM document served by repo.
	POMKey(repo, coordinate string) string
	// GraphKey returns the key for a built, unrefined graph.
	GraphKey(root string, opts GraphKeyOpts) string
}

// GraphKeyOpts are the resolver options that change a built graph.
type GraphKeyOpts struct {
	MaxNodes        int      `json:"max_nodes"`
	IncludeOptional bool     `json:"include_optional"`
	Sources         []string `json:"sources"` // repositories or catalogs, in lookup order
}

// DefaultKeyer produces readable POM keys and hashed graph keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// POMKey returns "pom:<repo>:<coordinate>".
func (DefaultKeyer) POMKey(repo, coordinate string) string {
	return "pom:" + repo + ":" + coordinate
}

// GraphKey returns "graph:<sha256 of root and opts>".
func (DefaultKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	opts.Sources = slices.Clone(opts.Sources)
	return hashKey("graph", root, opts)
}

// hashKey returns "<prefix>:<hex sha256 of the JSON encoding of parts>".
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	// Encoding plain strings and GraphKeyOpts cannot fail.
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

var _ Keyer = DefaultKeyer{}
