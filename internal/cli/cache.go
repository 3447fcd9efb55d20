package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/config"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata and graph cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. With --expired,
// only stale entries of the file cache are removed.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var expired bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached POMs and graphs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.Config()
			if err != nil {
				return err
			}
			backend := cfg.Cache.Backend
			if backend == config.BackendNone {
				printInfo("Caching is disabled; nothing to clear")
				return nil
			}

			ctx := cmd.Context()
			store, err := newCache(ctx, cfg.Cache, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if expired {
				pruner, ok := store.(cache.Pruner)
				if !ok {
					printInfo("The %s backend expires entries itself", backend)
					return nil
				}
				n, err := pruner.Prune(ctx)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "prune %s cache", backend)
				}
				printSuccess("Removed %d expired entries", n)
				return nil
			}

			clearer, ok := store.(cache.Clearer)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "the %s backend cannot be cleared", backend)
			}
			s := startSpinner(ctx, fmt.Sprintf("Clearing %s cache...", backend))
			if err := clearer.Clear(ctx); err != nil {
				if s.interrupted() {
					s.stop()
					return ctx.Err()
				}
				s.fail("Clearing %s cache failed", backend)
				return err
			}
			s.succeed("Cleared %s cache", backend)
			if fc, ok := store.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&expired, "expired", false, "only remove expired entries (file cache)")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand. For the file
// backend it prints the directory; for remote backends, the server.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.Config()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch cc := cfg.Cache; cc.Backend {
			case config.BackendRedis:
				fmt.Fprintf(w, "redis://%s/%d\n", cc.RedisAddr, cc.RedisDB)
			case config.BackendMongo:
				fmt.Fprintf(w, "%s (database %s)\n", cc.MongoURI, cc.MongoDatabase)
			case config.BackendNone:
				printInfo("Caching is disabled")
			default:
				dir := cc.Dir
				if dir == "" {
					if dir, err = cacheDir(); err != nil {
						return fmt.Errorf("get cache dir: %w", err)
					}
				}
				fmt.Fprintln(w, dir)
			}
			return nil
		},
	}
}
