package graph

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// Graph is the canonical serialization format for dependency graphs.
// Used for output files, the graph cache and re-running refinement on a
// saved graph.
//
// Node IDs are the in-memory handles at the time of export. They are only
// meaningful within one document; [ToDAG] assigns fresh handles.
type Graph struct {
	Root  int            `json:"root" bson:"root"`
	Nodes []Node         `json:"nodes" bson:"nodes"`
	Edges []Edge         `json:"edges" bson:"edges"`
	Meta  map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Node is one artifact version.
type Node struct {
	ID           int            `json:"id" bson:"id"`
	Coordinate   string         `json:"coordinate" bson:"coordinate"`
	Resolved     bool           `json:"resolved,omitempty" bson:"resolved,omitempty"`
	Exclusions   []string       `json:"exclusions,omitempty" bson:"exclusions,omitempty"`
	Management   []Management   `json:"management,omitempty" bson:"management,omitempty"`
	Dependencies []Dependency   `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Meta         map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Management is a dependencyManagement rule declared by a node.
type Management struct {
	Target     string   `json:"target" bson:"target"`
	Version    string   `json:"version,omitempty" bson:"version,omitempty"`
	Scope      string   `json:"scope,omitempty" bson:"scope,omitempty"`
	Exclusions []string `json:"exclusions,omitempty" bson:"exclusions,omitempty"`
}

// Dependency is a declared dependency of a node.
type Dependency struct {
	Coordinate string   `json:"coordinate" bson:"coordinate"`
	Scope      string   `json:"scope,omitempty" bson:"scope,omitempty"`
	Optional   bool     `json:"optional,omitempty" bson:"optional,omitempty"`
	Exclusions []string `json:"exclusions,omitempty" bson:"exclusions,omitempty"`
}

// Edge is a directed dependency between two node IDs.
type Edge struct {
	From     int    `json:"from" bson:"from"`
	To       int    `json:"to" bson:"to"`
	Scope    string `json:"scope,omitempty" bson:"scope,omitempty"`
	Optional bool   `json:"optional,omitempty" bson:"optional,omitempty"`
}

// FromDAG converts a graph to its serialization format.
// Nodes and edges are in ascending ID order for deterministic output.
func FromDAG(g *dag.Graph) Graph {
	nodes := g.Nodes()
	edges := g.Edges()
	out := Graph{
		Root:  int(g.Root()),
		Nodes: make([]Node, len(nodes)),
		Edges: make([]Edge, len(edges)),
		Meta:  copyMeta(g.Meta()),
	}
	for i, n := range nodes {
		out.Nodes[i] = nodeFromDAG(n)
	}
	for i, e := range edges {
		out.Edges[i] = Edge{From: int(e.From), To: int(e.To), Scope: e.Scope, Optional: e.Optional}
	}
	return out
}

// ToDAG converts a Graph back to a dag.Graph. Returns an INVALID_GRAPH
// error if the root is missing, a coordinate is malformed or duplicated,
// or an edge references an unknown node or points at the root.
func ToDAG(gj Graph) (*dag.Graph, error) {
	idx := slices.IndexFunc(gj.Nodes, func(n Node) bool { return n.ID == gj.Root })
	if idx < 0 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "root node %d not found", gj.Root)
	}
	rootRef, err := dag.ParseRef(gj.Nodes[idx].Coordinate)
	if err != nil {
		return nil, invalid(err, "root node %d", gj.Root)
	}

	g := dag.New(rootRef)
	maps.Copy(g.Meta(), gj.Meta)
	ids := make(map[int]dag.NodeID, len(gj.Nodes))
	ids[gj.Root] = g.Root()

	for i, nj := range gj.Nodes {
		var n *dag.Node
		if i == idx {
			n = g.RootNode()
		} else {
			if _, dup := ids[nj.ID]; dup {
				return nil, errors.New(errors.ErrCodeInvalidGraph, "duplicate node id %d", nj.ID)
			}
			ref, err := dag.ParseRef(nj.Coordinate)
			if err != nil {
				return nil, invalid(err, "node %d", nj.ID)
			}
			if n, err = g.AddNode(ref); err != nil {
				return nil, invalid(err, "node %d (%s)", nj.ID, ref)
			}
			ids[nj.ID] = n.ID
		}
		if err := fillNode(n, nj); err != nil {
			return nil, invalid(err, "node %d", nj.ID)
		}
	}

	for _, ej := range gj.Edges {
		from, okFrom := ids[ej.From]
		to, okTo := ids[ej.To]
		if !okFrom || !okTo {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "edge %d->%d: unknown node", ej.From, ej.To)
		}
		e, err := g.AddEdge(from, to, ej.Scope)
		if err != nil {
			return nil, invalid(err, "edge %d->%d", ej.From, ej.To)
		}
		e.Optional = ej.Optional
	}
	return g, nil
}

func invalid(err error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeInvalidGraph, err, format, args...)
}

func nodeFromDAG(n *dag.Node) Node {
	out := Node{
		ID:         int(n.ID),
		Coordinate: n.Artifact.String(),
		Resolved:   n.Resolved,
		Exclusions: keyStrings(n.Exclusions()),
		Meta:       copyMeta(n.Meta),
	}
	for _, m := range n.DependencyManagement {
		out.Management = append(out.Management, Management{
			Target:     m.Target.String(),
			Version:    m.Version,
			Scope:      m.Scope,
			Exclusions: keyStrings(m.Exclusions),
		})
	}
	for _, d := range n.Dependencies {
		out.Dependencies = append(out.Dependencies, Dependency{
			Coordinate: d.Artifact.String(),
			Scope:      d.Scope,
			Optional:   d.Optional,
			Exclusions: keyStrings(d.Exclusions),
		})
	}
	return out
}

func fillNode(n *dag.Node, nj Node) error {
	n.Resolved = nj.Resolved
	maps.Copy(n.Meta, nj.Meta)

	excl, err := parseKeys(nj.Exclusions)
	if err != nil {
		return err
	}
	n.Exclude(excl...)

	for _, mj := range nj.Management {
		target, err := dag.ParseKey(mj.Target)
		if err != nil {
			return err
		}
		excl, err := parseKeys(mj.Exclusions)
		if err != nil {
			return err
		}
		n.DependencyManagement = append(n.DependencyManagement, dag.ManagementEntry{
			Target:     target,
			Version:    mj.Version,
			Scope:      mj.Scope,
			Exclusions: excl,
		})
	}
	for _, dj := range nj.Dependencies {
		ref, err := parseDependencyRef(dj.Coordinate)
		if err != nil {
			return err
		}
		excl, err := parseKeys(dj.Exclusions)
		if err != nil {
			return err
		}
		n.Dependencies = append(n.Dependencies, dag.Dependency{
			Artifact:   ref,
			Scope:      dj.Scope,
			Optional:   dj.Optional,
			Exclusions: excl,
		})
	}
	return nil
}

// parseDependencyRef accepts a full coordinate or, for a dependency whose
// version comes from management, a coordinate with an empty version.
func parseDependencyRef(s string) (dag.ArtifactRef, error) {
	if rest, ok := strings.CutSuffix(s, ":"); ok {
		k, err := dag.ParseKey(rest)
		return k.WithVersion(""), err
	}
	return dag.ParseRef(s)
}

func keyStrings(keys []dag.ArtifactKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func parseKeys(ss []string) ([]dag.ArtifactKey, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	keys := make([]dag.ArtifactKey, len(ss))
	for i, s := range ss {
		k, err := dag.ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// copyMeta creates a shallow copy of metadata to avoid mutation.
// Returns nil for empty metadata.
func copyMeta(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
