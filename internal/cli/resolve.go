package cli

import (
	"cmp"
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackresolve/pkg/pipeline"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	source          sourceOpts
	output          outputOpts
	maxNodes        int
	includeOptional bool
	skip            []string
	refresh         bool
}

// resolveCommand creates the resolve command: build the graph of a root
// coordinate, refine it, and write it in the requested formats.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve <coordinate>",
		Short: "Resolve the dependency graph of a Maven artifact",
		Long: `Resolve the dependency graph of a Maven artifact and refine it.

The coordinate is group:artifact[:type[:classifier]]:version. Descriptors are
read from the catalogs given with --catalog and from the repositories in the
config file (Maven Central by default).

Examples:
  stackresolve resolve org.example:app:1.0
  stackresolve resolve org.example:app:1.0 -f json -o app.json
  stackresolve resolve org.example:app:1.0 --catalog deps.toml -f dot,svg -o app
  stackresolve resolve org.example:app:1.0 --skip transitive-reduction`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), cmd.OutOrStdout(), args[0], &opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addOutputFlags(cmd, &opts.output)
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "maximum nodes to create (default from config)")
	cmd.Flags().BoolVar(&opts.includeOptional, "include-optional", false, "follow optional dependencies below the root")
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "refinement tasks to skip (repeatable)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached metadata and graphs")

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, w io.Writer, coordinate string, opts *resolveOpts) error {
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	formats, err := parseFormats(opts.output.formats, cfg.Output.Format)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, opts.source)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, pipeline.Options{
		Root:            coordinate,
		MaxNodes:        cmp.Or(opts.maxNodes, cfg.Resolve.MaxNodes),
		Workers:         cfg.Resolve.Workers,
		IncludeOptional: opts.includeOptional || cfg.Resolve.IncludeOptional,
		Sources:         opts.source.names(),
		Refresh:         opts.refresh,
		MaxIterations:   cfg.Resolve.MaxIterations,
		Skip:            opts.skip,
		Logger:          loggerFromContext(ctx),
	})
	if err != nil {
		return err
	}

	printSuccess("Resolved %s", result.Root)
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.Stats.Conflicts, result.CacheInfo.BuildHit)
	if n := result.Stats.BackEdges; n > 0 {
		printWarning("%d dependency cycle(s) in the refined graph", n)
	}
	if n := len(result.Graph.Unresolved()); n > 0 {
		printWarning("%d node(s) left unresolved (node limit reached?)", n)
	}
	return writeOutputs(ctx, w, result.Graph, formats, &opts.output)
}
