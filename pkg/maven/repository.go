package maven

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/stackresolve/pkg/buildinfo"
	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/observability"
)

// CentralURL is the base URL of Maven Central.
const CentralURL = "https://repo1.maven.org/maven2"

const (
	httpTimeout = 10 * time.Second
	maxPOMSize  = 4 << 20
)

// Repository serves POM documents.
type Repository interface {
	// Name identifies the repository in cache keys and logs.
	Name() string
	// FetchPOM returns the POM for ref. A missing POM is reported with
	// errors.ErrCodeArtifactNotFound. If refresh is true, cached copies are
	// bypassed.
	FetchPOM(ctx context.Context, ref dag.ArtifactRef, refresh bool) ([]byte, error)
}

// pomPath returns the repository-relative path of ref's POM in the standard
// layout: org/example/lib/1.0/lib-1.0.pom.
func pomPath(ref dag.ArtifactRef) string {
	return path.Join(
		strings.ReplaceAll(ref.GroupID, ".", "/"),
		ref.ArtifactID,
		ref.Version,
		ref.ArtifactID+"-"+ref.Version+".pom",
	)
}

// LocalRepository reads POMs from a directory in Maven layout, such as
// ~/.m2/repository.
type LocalRepository struct {
	root string
}

// NewLocalRepository returns a repository rooted at dir.
func NewLocalRepository(dir string) *LocalRepository { return &LocalRepository{root: dir} }

// DefaultLocalRepository returns ~/.m2/repository.
func DefaultLocalRepository() (*LocalRepository, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewLocalRepository(filepath.Join(home, ".m2", "repository")), nil
}

// Name returns "local:<dir>".
func (r *LocalRepository) Name() string { return "local:" + r.root }

// FetchPOM reads the POM file from disk.
func (r *LocalRepository) FetchPOM(_ context.Context, ref dag.ArtifactRef, _ bool) ([]byte, error) {
	rel := pomPath(ref)
	if err := errors.ValidatePath(rel); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "%s not found in %s", ref, r.root)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", rel)
	}
	return data, nil
}

// RemoteRepository fetches POMs over HTTP. Responses are cached and
// transient failures (network errors, 5xx) are retried with backoff.
type RemoteRepository struct {
	name    string
	baseURL string
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	retry   func(ctx context.Context, fn func() error) error
}

// RemoteOption configures a RemoteRepository.
type RemoteOption func(*RemoteRepository)

// WithCache stores fetched POMs in c under keys from keyer.
func WithCache(c cache.Cache, keyer cache.Keyer, ttl time.Duration) RemoteOption {
	return func(r *RemoteRepository) {
		r.cache, r.keyer, r.ttl = c, keyer, ttl
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteRepository) { r.http = c }
}

// WithRetry replaces the retry policy, by default [cache.RetryWithBackoff].
func WithRetry(retry func(ctx context.Context, fn func() error) error) RemoteOption {
	return func(r *RemoteRepository) { r.retry = retry }
}

// NewRemoteRepository returns a repository serving POMs from baseURL.
func NewRemoteRepository(name, baseURL string, opts ...RemoteOption) (*RemoteRepository, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	r := &RemoteRepository{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeout},
		cache:   cache.NewNullCache(),
		keyer:   cache.NewDefaultKeyer(),
		ttl:     cache.POMTTL,
		retry:   cache.RetryWithBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the repository name.
func (r *RemoteRepository) Name() string { return r.name }

// FetchPOM returns the POM from cache or from the server.
func (r *RemoteRepository) FetchPOM(ctx context.Context, ref dag.ArtifactRef, refresh bool) ([]byte, error) {
	key := r.keyer.POMKey(r.name, ref.String())
	hooks := observability.Cache()
	if !refresh {
		if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, "pom")
			return data, nil
		}
		hooks.OnCacheMiss(ctx, "pom")
	}

	var data []byte
	err := r.retry(ctx, func() error {
		var err error
		data, err = r.get(ctx, r.baseURL+"/"+pomPath(ref))
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrCodeArtifactNotFound) {
			return nil, errors.New(errors.ErrCodeArtifactNotFound, "%s not found in %s", ref, r.name)
		}
		return nil, err
	}

	if err := r.cache.Set(ctx, key, data, r.ttl); err == nil {
		hooks.OnCacheSet(ctx, "pom", len(data))
	}
	return data, nil
}

func (r *RemoteRepository) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", rawURL))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, rawURL); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPOMSize))
	if err != nil {
		return nil, cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", rawURL))
	}
	return data, nil
}

func checkStatus(resp *http.Response, rawURL string) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeArtifactNotFound, "GET %s: status %d", rawURL, code)
	case code >= 500 || code == http.StatusTooManyRequests:
		err := errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)
		return cache.RetryAfter(err, retryAfter(resp.Header.Get("Retry-After")))
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)
	}
}

// retryAfter parses a Retry-After header given in seconds. HTTP dates and
// malformed values yield 0.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ChainRepository tries repositories in order. A not-found result falls
// through to the next repository; any other error is returned at once.
type ChainRepository []Repository

// Name lists the chained repositories.
func (c ChainRepository) Name() string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name()
	}
	return fmt.Sprintf("chain(%s)", strings.Join(names, ","))
}

// FetchPOM returns the first POM found.
func (c ChainRepository) FetchPOM(ctx context.Context, ref dag.ArtifactRef, refresh bool) ([]byte, error) {
	for _, r := range c {
		data, err := r.FetchPOM(ctx, ref, refresh)
		if err == nil {
			return data, nil
		}
		if !errors.Has(err, errors.ErrCodeArtifactNotFound) {
			return nil, err
		}
	}
	return nil, errors.New(errors.ErrCodeArtifactNotFound, "%s not found in any repository", ref)
}

var (
	_ Repository = (*LocalRepository)(nil)
	_ Repository = (*RemoteRepository)(nil)
	_ Repository = ChainRepository(nil)
)
