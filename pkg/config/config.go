package config

import (
	"cmp"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag/transform"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/maven"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Output formats.
const (
	FormatTree = "tree"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

// Formats lists every output format.
var Formats = []string{FormatTree, FormatJSON, FormatDOT, FormatSVG, FormatPDF, FormatPNG}

// Environment variables that override the file.
const (
	EnvCache     = "STACKRESOLVE_CACHE"
	EnvRedisAddr = "STACKRESOLVE_REDIS_ADDR"
	EnvMongoURI  = "STACKRESOLVE_MONGO_URI"
)

// Config is the contents of config.toml.
type Config struct {
	Resolve      Resolve      `toml:"resolve"`
	Repositories []Repository `toml:"repository"`
	Cache        Cache        `toml:"cache"`
	Output       Output       `toml:"output"`
}

// Resolve holds graph building and refinement limits.
type Resolve struct {
	MaxNodes        int  `toml:"max_nodes"`
	Workers         int  `toml:"workers"`
	IncludeOptional bool `toml:"include_optional"`
	MaxIterations   int  `toml:"max_iterations"`
}

// Repository is a Maven repository: a remote URL or a local directory.
type Repository struct {
	Name string `toml:"name"`
	URL  string `toml:"url,omitempty"`
	Path string `toml:"path,omitempty"`
}

// Remote reports whether r is an HTTP repository.
func (r Repository) Remote() bool { return r.URL != "" }

// Cache selects and configures the metadata cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir,omitempty"`
	POMTTL        Duration `toml:"pom_ttl"`
	GraphTTL      Duration `toml:"graph_ttl"`
	Prefix        string   `toml:"prefix,omitempty"`
	RedisAddr     string   `toml:"redis_addr,omitempty"`
	RedisPassword string   `toml:"redis_password,omitempty"`
	RedisDB       int      `toml:"redis_db,omitempty"`
	MongoURI      string   `toml:"mongo_uri,omitempty"`
	MongoDatabase string   `toml:"mongo_database,omitempty"`
}

// Output holds presentation defaults.
type Output struct {
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	c.Resolve.MaxNodes = cmp.Or(c.Resolve.MaxNodes, deps.DefaultMaxNodes)
	c.Resolve.Workers = cmp.Or(c.Resolve.Workers, deps.DefaultWorkers)
	c.Resolve.MaxIterations = cmp.Or(c.Resolve.MaxIterations, transform.DefaultMaxIterations)
	if len(c.Repositories) == 0 {
		c.Repositories = []Repository{{Name: "central", URL: maven.CentralURL}}
	} else {
		c.Repositories = slices.Clone(c.Repositories)
	}
	c.Cache.Backend = cmp.Or(c.Cache.Backend, BackendFile)
	c.Cache.POMTTL = cmp.Or(c.Cache.POMTTL, Duration(cache.POMTTL))
	c.Cache.GraphTTL = cmp.Or(c.Cache.GraphTTL, Duration(cache.GraphTTL))
	c.Cache.MongoDatabase = cmp.Or(c.Cache.MongoDatabase, "stackresolve")
	c.Output.Format = cmp.Or(c.Output.Format, FormatTree)
	return c
}

// Validate checks c for values the rest of the program cannot use.
func (c Config) Validate() error {
	if c.Resolve.MaxNodes < 0 || c.Resolve.Workers < 0 || c.Resolve.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "resolve limits must not be negative")
	}

	seen := make(map[string]bool, len(c.Repositories))
	for i, r := range c.Repositories {
		if r.Name == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "repository %d: name is required", i+1)
		}
		if seen[r.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "repository %q defined twice", r.Name)
		}
		seen[r.Name] = true
		switch {
		case (r.URL == "") == (r.Path == ""):
			return errors.New(errors.ErrCodeInvalidConfig, "repository %q: set exactly one of url and path", r.Name)
		case r.URL != "":
			if err := errors.ValidateURL(r.URL); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "repository %q", r.Name)
			}
		}
	}

	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis requires redis_addr")
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend mongo requires mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.POMTTL < 0 || c.Cache.GraphTTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown output format %q", c.Output.Format)
	}
	return nil
}

// DefaultPath returns the config file location, following XDG
// (~/.config/stackresolve/config.toml on Linux).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stackresolve", "config.toml"), nil
}

// Load reads the file at path, applies environment overrides and defaults,
// and validates the result. An empty path means [DefaultPath]; a missing
// default file yields the defaults, a missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return finish(Config{})
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !explicit:
		return finish(Config{})
	case err != nil:
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}

	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	return finish(c)
}

func finish(c Config) (Config, error) {
	c = applyEnv(c, os.LookupEnv).WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse decodes TOML without applying defaults. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return c, nil
}

// applyEnv overrides cache settings from the environment. A Redis address
// or Mongo URI also selects its backend unless one was chosen explicitly.
func applyEnv(c Config, lookup func(string) (string, bool)) Config {
	if v, ok := lookup(EnvCache); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = cmp.Or(c.Cache.Backend, BackendRedis)
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Cache.MongoURI = v
		c.Cache.Backend = cmp.Or(c.Cache.Backend, BackendMongo)
	}
	return c
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
