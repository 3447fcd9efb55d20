// Package render turns dependency graphs into pictures.
//
// The [nodelink] subpackage produces Graphviz DOT source and SVG for a
// graph. This package converts SVG to other formats with the external
// rsvg-convert tool (from librsvg):
//
//	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{}))
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// A [Converter] with Binary set uses another rsvg-convert executable.
//
// [nodelink]: github.com/matzehuels/stackresolve/pkg/render/nodelink
package render
