// Package cli implements the stackresolve command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/config"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/maven"
	"github.com/matzehuels/stackresolve/pkg/observability"
	"github.com/matzehuels/stackresolve/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "stackresolve"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     *config.Config

	metricsFile string
	registry    *prometheus.Registry
	metrics     *observability.MetricsHooks
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level, pipeline, cache
// and HTTP events are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.installHooks()
}

// installHooks registers log hooks at debug level and metrics hooks when
// --metrics-textfile is set. With neither, the no-op defaults are restored.
func (c *CLI) installHooks() {
	var hooks observability.MultiHooks
	if c.Logger.GetLevel() <= log.DebugLevel {
		hooks = append(hooks, observability.NewLogHooks(c.Logger))
	}
	if c.metricsFile != "" {
		if c.metrics == nil {
			c.registry = prometheus.NewRegistry()
			m, err := observability.NewMetricsHooks(c.registry)
			if err != nil {
				c.Logger.Warn("metrics disabled", "err", err)
			}
			c.metrics = m
		}
		if c.metrics != nil {
			hooks = append(hooks, c.metrics)
		}
	}

	switch len(hooks) {
	case 0:
		observability.Reset()
	case 1:
		observability.SetHooks(hooks[0])
	default:
		observability.SetHooks(hooks)
	}
}

// WriteMetrics writes collected metrics in the Prometheus text format to
// the --metrics-textfile path. It does nothing if the flag is not set.
func (c *CLI) WriteMetrics() error {
	if c.metricsFile == "" || c.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write metrics to %s", c.metricsFile)
	}
	return nil
}

// Config loads the configuration on first use: the --config file, or the
// default location if the flag is not set.
func (c *CLI) Config() (config.Config, error) {
	if c.config == nil {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		c.config = &cfg
	}
	return *c.config, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// sourceOpts selects where artifact descriptors come from.
type sourceOpts struct {
	catalogs []string // TOML catalog files, searched first
	repos    []string // configured repository names, URLs or local directories
	noCache  bool
}

// names identifies the sources for the graph cache key.
func (s sourceOpts) names() []string {
	out := make([]string, 0, len(s.catalogs)+len(s.repos))
	for _, c := range s.catalogs {
		out = append(out, "catalog:"+c)
	}
	return append(out, s.repos...)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, src sourceOpts) (*pipeline.Runner, error) {
	store, err := newCache(ctx, cfg.Cache, src.noCache)
	if err != nil {
		return nil, err
	}
	keyer := newKeyer(cfg.Cache)
	fetcher, err := c.newFetcher(cfg, src, store, keyer)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	runner := pipeline.NewRunner(fetcher, store, keyer, c.Logger)
	runner.GraphTTL = time.Duration(cfg.Cache.GraphTTL)
	return runner, nil
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cc config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cc.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
			Prefix:   cc.Prefix,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open redis cache")
		}
		return rc, nil
	case config.BackendMongo:
		mc, err := cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:      cc.MongoURI,
			Database: cc.MongoDatabase,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open mongo cache")
		}
		return mc, nil
	}

	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newKeyer scopes keys by the configured prefix. Redis applies the prefix
// itself so that clearing can be limited to it.
func newKeyer(cc config.Cache) cache.Keyer {
	if cc.Prefix == "" || cc.Backend == config.BackendRedis {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, cc.Prefix)
}

// newFetcher chains catalogs before Maven repositories. With catalogs and
// no --repo flag, only the catalogs are used.
func (c *CLI) newFetcher(cfg config.Config, src sourceOpts, store cache.Cache, keyer cache.Keyer) (deps.Fetcher, error) {
	var chain deps.ChainFetcher
	for _, path := range src.catalogs {
		f, err := deps.LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
	}

	if len(src.catalogs) == 0 || len(src.repos) > 0 {
		repos, err := selectRepositories(cfg.Repositories, src.repos)
		if err != nil {
			return nil, err
		}
		var mrepos maven.ChainRepository
		for _, r := range repos {
			repo, err := newRepository(r, store, keyer, time.Duration(cfg.Cache.POMTTL))
			if err != nil {
				return nil, err
			}
			mrepos = append(mrepos, repo)
		}
		chain = append(chain, maven.NewFetcher(mrepos, c.Logger))
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// selectRepositories picks repositories by --repo value: the name of a
// configured repository, an http(s) URL or a local directory.
func selectRepositories(configured []config.Repository, names []string) ([]config.Repository, error) {
	if len(names) == 0 {
		return configured, nil
	}
	out := make([]config.Repository, 0, len(names))
	for _, name := range names {
		if i := slices.IndexFunc(configured, func(r config.Repository) bool { return r.Name == name }); i >= 0 {
			out = append(out, configured[i])
			continue
		}
		if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
			out = append(out, config.Repository{Name: name, URL: name})
			continue
		}
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			out = append(out, config.Repository{Name: name, Path: name})
			continue
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown repository %q", name)
	}
	return out, nil
}

// newRepository opens one Maven repository. Remote POMs are cached in store.
func newRepository(r config.Repository, store cache.Cache, keyer cache.Keyer, ttl time.Duration) (maven.Repository, error) {
	if !r.Remote() {
		return maven.NewLocalRepository(r.Path), nil
	}
	return maven.NewRemoteRepository(r.Name, r.URL, maven.WithCache(store, keyer, ttl))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stackresolve/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
