package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the group ID and node metadata to labels.
	Detailed bool
	// Scopes labels every edge with its scope.
	Scopes bool
}

// graphAttrs and nodeDefaults open every generated document.
var (
	graphAttrs   = []string{"rankdir=TB", `bgcolor="transparent"`, "ranksep=0.5", "nodesep=0.3"}
	nodeDefaults = `shape=box, style="rounded,filled", fillcolor=white, fontsize=24, margin="0.2,0.1"`
)

// ToDOT converts a dependency graph to Graphviz DOT.
//
// Nodes are named n<ID>. The root is filled light blue, unresolved nodes
// are grey and dashed. Optional edges are dotted; test and provided edges
// are dashed.
func ToDOT(g *dag.Graph, opts Options) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	for _, a := range graphAttrs {
		fmt.Fprintf(&b, "  %s;\n", a)
	}
	fmt.Fprintf(&b, "  node [%s];\n\n", nodeDefaults)

	for _, n := range g.Nodes() {
		writeStmt(&b, fmt.Sprintf("n%d", n.ID), nodeAttrs(n, n.ID == g.Root(), opts.Detailed))
	}
	b.WriteString("\n")
	for _, e := range g.Edges() {
		writeStmt(&b, fmt.Sprintf("n%d -> n%d", e.From, e.To), edgeAttrs(e, opts.Scopes))
	}
	b.WriteString("}\n")
	return b.String()
}

func writeStmt(b *strings.Builder, head string, attrs []string) {
	if len(attrs) == 0 {
		fmt.Fprintf(b, "  %s;\n", head)
		return
	}
	fmt.Fprintf(b, "  %s [%s];\n", head, strings.Join(attrs, ", "))
}

func nodeLabel(n *dag.Node, detailed bool) string {
	lines := []string{n.Artifact.ArtifactID, n.Artifact.Version}
	if detailed {
		lines = append(lines, n.Artifact.GroupID)
		for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
			lines = append(lines, fmt.Sprintf("%s: %v", k, n.Meta[k]))
		}
	}
	return strings.Join(lines, "\n")
}

func nodeAttrs(n *dag.Node, root, detailed bool) []string {
	attrs := []string{
		"label=" + strconv.Quote(nodeLabel(n, detailed)),
		"tooltip=" + strconv.Quote(n.Artifact.String()),
	}
	if root {
		return append(attrs, "fillcolor=lightblue")
	}
	if !n.Resolved {
		attrs = append(attrs, `style="rounded,filled,dashed"`, "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

func edgeAttrs(e *dag.Edge, scopes bool) []string {
	var attrs []string
	if scopes && e.Scope != "" {
		attrs = append(attrs, "label="+strconv.Quote(e.Scope))
	}
	if e.Optional {
		return append(attrs, "style=dotted")
	}
	if e.Scope == dag.ScopeTest || e.Scope == dag.ScopeProvided {
		attrs = append(attrs, "style=dashed")
	}
	return attrs
}

// RenderSVG lays out dot with the embedded Graphviz and returns SVG sized
// from its viewBox.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based width and height with
// pixel sizes taken from the viewBox, so browsers scale the drawing.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders dot to SVG and converts it with rsvg-convert.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders dot to SVG and rasterizes it at scale with rsvg-convert.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
