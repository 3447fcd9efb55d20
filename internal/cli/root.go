package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackresolve/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The logger is attached to the command context in PersistentPreRunE and is
// available to every subcommand through loggerFromContext. Errors are not
// printed by cobra; the caller reports them.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stackresolve computes Maven dependency graphs",
		Long: `Stackresolve builds the dependency graph of a Maven artifact and refines it
the way Maven does: dependency management is applied, version conflicts are
settled (nearest wins, newest on a tie), transitive edges are reduced and
scopes are propagated.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			c.installHooks()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/stackresolve/config.toml)")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.refineCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}
