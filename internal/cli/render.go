package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackresolve/pkg/config"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/graph"
	"github.com/matzehuels/stackresolve/pkg/render/nodelink"
)

// pngScale is the rasterization factor for PNG output.
const pngScale = 2.0

// outputOpts holds the flags shared by commands that emit a graph.
type outputOpts struct {
	formats  string // comma-separated; empty means the configured default
	output   string // output file, or base path for several formats
	detailed bool   // group IDs and metadata in DOT-based formats
}

func addOutputFlags(cmd *cobra.Command, opts *outputOpts) {
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): "+strings.Join(config.Formats, ", ")+" (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several); stdout if empty")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show group IDs and metadata in dot/svg/pdf/png")
}

func addSourceFlags(cmd *cobra.Command, opts *sourceOpts) {
	cmd.Flags().StringSliceVar(&opts.catalogs, "catalog", nil, "TOML catalog of artifact descriptors (repeatable)")
	cmd.Flags().StringSliceVar(&opts.repos, "repo", nil, "repository name from the config, URL or local directory (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the metadata and graph cache")
}

// parseFormats splits the --format flag, falling back to def. Duplicates
// are dropped.
func parseFormats(s, def string) ([]string, error) {
	if s == "" {
		s = def
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(config.Formats, f) {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"invalid format: %s (must be one of: %s)", f, strings.Join(config.Formats, ", "))
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// writeOutputs renders g in each format. A single format without an output
// path goes to w; otherwise files are written and listed.
func writeOutputs(ctx context.Context, w io.Writer, g *dag.Graph, formats []string, opts *outputOpts) error {
	if opts.output == "" && len(formats) > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "--output is required for several formats")
	}
	for _, f := range formats {
		data, err := renderFormat(ctx, g, f, opts.detailed)
		if err != nil {
			return err
		}
		if opts.output == "" {
			_, err := w.Write(data)
			return err
		}
		path := outputPath(opts.output, f, len(formats) > 1)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		printFile(path)
	}
	return nil
}

func renderFormat(ctx context.Context, g *dag.Graph, format string, detailed bool) ([]byte, error) {
	dot := func() string {
		return nodelink.ToDOT(g, nodelink.Options{Detailed: detailed, Scopes: true})
	}
	switch format {
	case config.FormatTree:
		return []byte(renderTree(g) + "\n"), nil
	case config.FormatJSON:
		return graph.MarshalGraph(g)
	case config.FormatDOT:
		return []byte(dot()), nil
	case config.FormatSVG:
		return nodelink.RenderSVG(ctx, dot())
	case config.FormatPDF:
		return nodelink.RenderPDF(ctx, dot())
	case config.FormatPNG:
		return nodelink.RenderPNG(ctx, dot(), pngScale)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "invalid format: %s", format)
}

// outputPath derives the file for one format. With several formats the
// base path's extension is replaced; tree output gets ".txt".
func outputPath(base, format string, multi bool) string {
	if !multi {
		return base
	}
	ext := format
	if format == config.FormatTree {
		ext = "txt"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + ext
}
