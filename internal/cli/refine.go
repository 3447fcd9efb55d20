package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackresolve/pkg/graph"
	"github.com/matzehuels/stackresolve/pkg/pipeline"
)

// refineOpts holds the command-line flags for the refine command.
type refineOpts struct {
	source sourceOpts
	output outputOpts
	skip   []string
}

// refineCommand creates the refine command, which runs the refinement
// passes on a graph read from a JSON file. Nodes created by dependency
// management are resolved from the configured sources.
func (c *CLI) refineCommand() *cobra.Command {
	var opts refineOpts

	cmd := &cobra.Command{
		Use:   "refine <graph.json>",
		Short: "Refine a dependency graph read from a JSON file",
		Long: `Refine a dependency graph read from a JSON file.

Examples:
  stackresolve refine raw.json
  stackresolve refine raw.json --catalog deps.toml -f json -o refined.json
  stackresolve refine raw.json --skip resolve-conflicts -f dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRefine(cmd.Context(), cmd.OutOrStdout(), args[0], &opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addOutputFlags(cmd, &opts.output)
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "refinement tasks to skip (repeatable)")

	return cmd
}

func (c *CLI) runRefine(ctx context.Context, w io.Writer, path string, opts *refineOpts) error {
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	formats, err := parseFormats(opts.output.formats, cfg.Output.Format)
	if err != nil {
		return err
	}

	g, err := graph.ReadGraphFile(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, opts.source)
	if err != nil {
		return err
	}
	defer runner.Close()

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	reports, err := runner.Refine(ctx, g, pipeline.Options{
		MaxNodes:        cfg.Resolve.MaxNodes,
		Workers:         cfg.Resolve.Workers,
		IncludeOptional: cfg.Resolve.IncludeOptional,
		MaxIterations:   cfg.Resolve.MaxIterations,
		Skip:            opts.skip,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	prog.done("Refined "+path, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	printSuccess("Refined %s", g.RootNode().Artifact)
	for _, r := range reports {
		printDetail("%-22s %d → %d nodes, %d → %d edges", r.Task, r.NodesBefore, r.NodesAfter, r.EdgesBefore, r.EdgesAfter)
	}
	return writeOutputs(ctx, w, g, formats, &opts.output)
}
