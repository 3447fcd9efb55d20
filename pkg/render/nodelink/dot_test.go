package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/stackresolve/pkg/dag"
)

func sample() *dag.Graph {
	g := dag.New(dag.NewRef("org.example", "app", "1.0"))
	g.RootNode().Resolved = true
	core, _ := g.AddNode(dag.NewRef("org.example", "core", "2.1"))
	core.Resolved = true
	core.Meta["url"] = "https://example.org"
	junit, _ := g.AddNode(dag.NewRef("junit", "junit", "4.13.2"))
	opt, _ := g.AddNode(dag.NewRef("org.example", "extra", "1.0"))
	opt.Resolved = true

	_, _ = g.AddEdge(g.Root(), core.ID, dag.ScopeCompile)
	_, _ = g.AddEdge(g.Root(), junit.ID, dag.ScopeTest)
	e, _ := g.AddEdge(core.ID, opt.ID, dag.ScopeRuntime)
	e.Optional = true
	return g
}

func TestToDOT(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    []string
		notWant []string
	}{
		{
			name: "plain",
			want: []string{
				"digraph G {",
				`n1 [label="app\n1.0", tooltip="org.example:app:1.0", fillcolor=lightblue];`,
				`n3 [label="junit\n4.13.2", tooltip="junit:junit:4.13.2", style="rounded,filled,dashed", fillcolor=lightgrey, fontcolor=black];`,
				"n1 -> n2;",
				"n1 -> n3 [style=dashed];",
				"n2 -> n4 [style=dotted];",
			},
			notWant: []string{"url:", `label="compile"`},
		},
		{
			name: "detailed with scopes",
			opts: Options{Detailed: true, Scopes: true},
			want: []string{
				`label="core\n2.1\norg.example\nurl: https://example.org"`,
				`n1 -> n2 [label="compile"];`,
				`n1 -> n3 [label="test", style=dashed];`,
				`n2 -> n4 [label="runtime", style=dotted];`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(sample(), tt.opts)
			for _, w := range tt.want {
				if !strings.Contains(dot, w) {
					t.Errorf("DOT missing %q:\n%s", w, dot)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(dot, w) {
					t.Errorf("DOT contains %q:\n%s", w, dot)
				}
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sample(), Options{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG: %.100s", svg)
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("expected error for invalid DOT")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.25" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.25" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", got, want)
	}
}
