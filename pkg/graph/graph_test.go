package graph

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

func sample(t *testing.T) *dag.Graph {
	t.Helper()
	g := dag.New(dag.NewRef("org.example", "app", "1.0"))
	root := g.RootNode()
	root.Resolved = true
	root.DependencyManagement = []dag.ManagementEntry{{
		Target:     dag.NewKey("org.example", "core"),
		Version:    "2.1",
		Exclusions: []dag.ArtifactKey{dag.NewKey("commons-logging", "commons-logging")},
	}}
	root.Dependencies = []dag.Dependency{
		{Artifact: dag.NewKey("org.example", "core").WithVersion(""), Scope: dag.ScopeCompile},
		{Artifact: dag.NewRef("junit", "junit", "4.13.2"), Scope: dag.ScopeTest, Optional: true},
	}
	root.Meta["url"] = "https://example.org"
	g.Meta()["repository"] = "central"

	core, _ := g.AddNode(dag.NewRef("org.example", "core", "2.1"))
	core.Resolved = true
	core.Exclude(dag.NewKey("commons-logging", "commons-logging"))
	pom := dag.ArtifactRef{
		ArtifactKey: dag.ArtifactKey{GroupID: "org.example", ArtifactID: "bom", Type: "pom"},
		Version:     "3",
	}
	bom, _ := g.AddNode(pom)

	if _, err := g.AddEdge(root.ID, core.ID, dag.ScopeCompile); err != nil {
		t.Fatal(err)
	}
	e, _ := g.AddEdge(core.ID, bom.ID, dag.ScopeRuntime)
	e.Optional = true
	return g
}

func TestRoundTrip(t *testing.T) {
	g := sample(t)
	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalGraph(data)
	if err != nil {
		t.Fatal(err)
	}

	if back.NodeCount() != g.NodeCount() || back.EdgeCount() != g.EdgeCount() {
		t.Fatalf("got %d nodes %d edges, want %d %d",
			back.NodeCount(), back.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	if back.RootNode().Artifact != g.RootNode().Artifact {
		t.Errorf("root = %s", back.RootNode().Artifact)
	}

	root := back.RootNode()
	if len(root.DependencyManagement) != 1 || root.DependencyManagement[0].Version != "2.1" ||
		len(root.DependencyManagement[0].Exclusions) != 1 {
		t.Errorf("management = %+v", root.DependencyManagement)
	}
	if len(root.Dependencies) != 2 || root.Dependencies[0].Artifact.Version != "" || !root.Dependencies[1].Optional {
		t.Errorf("dependencies = %+v", root.Dependencies)
	}
	if root.Meta["url"] != "https://example.org" || back.Meta()["repository"] != "central" {
		t.Errorf("metadata lost: %v %v", root.Meta, back.Meta())
	}

	core, ok := back.NodeByRef(dag.NewRef("org.example", "core", "2.1"))
	if !ok || !core.Resolved || !core.Excludes(dag.NewKey("commons-logging", "commons-logging")) {
		t.Errorf("core = %+v", core)
	}
	bom, ok := back.NodeByRef(dag.ArtifactRef{
		ArtifactKey: dag.ArtifactKey{GroupID: "org.example", ArtifactID: "bom", Type: "pom"},
		Version:     "3",
	})
	if !ok || bom.Resolved {
		t.Fatalf("bom = %+v, %v", bom, ok)
	}
	e, ok := back.EdgeBetween(core.ID, bom.ID)
	if !ok || e.Scope != dag.ScopeRuntime || !e.Optional {
		t.Errorf("core->bom edge = %+v", e)
	}

	again, _ := MarshalGraph(back)
	if !bytes.Equal(data, again) {
		t.Errorf("second export differs:\n%s\n---\n%s", data, again)
	}
}

func TestFromDAGOrdering(t *testing.T) {
	g := sample(t)
	out := FromDAG(g)
	for i := 1; i < len(out.Nodes); i++ {
		if out.Nodes[i-1].ID >= out.Nodes[i].ID {
			t.Fatalf("nodes not sorted by id: %v", out.Nodes)
		}
	}
	if out.Root != int(g.Root()) {
		t.Errorf("Root = %d", out.Root)
	}
	if out.Nodes[0].Coordinate != "org.example:app:1.0" {
		t.Errorf("root coordinate = %q", out.Nodes[0].Coordinate)
	}
}

func TestToDAGErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		code errors.Code
	}{
		{"malformed", `{"nodes": [`, errors.ErrCodeInvalidFormat},
		{"missing root", `{"root": 9, "nodes": [{"id": 1, "coordinate": "g:a:1"}]}`, errors.ErrCodeInvalidGraph},
		{"bad coordinate", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1"}, {"id": 2, "coordinate": "nope"}]}`, errors.ErrCodeInvalidGraph},
		{"duplicate coordinate", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1"}, {"id": 2, "coordinate": "g:b:1"}, {"id": 3, "coordinate": "g:b:1"}]}`, errors.ErrCodeInvalidGraph},
		{"duplicate id", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1"}, {"id": 2, "coordinate": "g:b:1"}, {"id": 2, "coordinate": "g:c:1"}]}`, errors.ErrCodeInvalidGraph},
		{"unknown edge target", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1"}], "edges": [{"from": 1, "to": 5}]}`, errors.ErrCodeInvalidGraph},
		{"edge into root", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1"}, {"id": 2, "coordinate": "g:b:1"}], "edges": [{"from": 2, "to": 1}]}`, errors.ErrCodeInvalidGraph},
		{"bad exclusion", `{"root": 1, "nodes": [{"id": 1, "coordinate": "g:a:1", "exclusions": ["x"]}]}`, errors.ErrCodeInvalidGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.json))
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestGraphFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteGraphFile(sample(t), path); err != nil {
		t.Fatal(err)
	}
	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d", g.NodeCount())
	}

	_, err = ReadGraphFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}
