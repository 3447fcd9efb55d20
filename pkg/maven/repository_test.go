package maven

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stackresolve/pkg/buildinfo"
	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/errors"
)

var fastRetry = cache.Backoff{Attempts: 3, Initial: time.Millisecond, Max: 10 * time.Millisecond}.Retry

func TestPOMPath(t *testing.T) {
	got := pomPath(dag.NewRef("org.apache.commons", "commons-lang3", "3.14.0"))
	want := "org/apache/commons/commons-lang3/3.14.0/commons-lang3-3.14.0.pom"
	if got != want {
		t.Errorf("pomPath = %q, want %q", got, want)
	}
}

func writePOM(t *testing.T, root string, ref dag.ArtifactRef, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(pomPath(ref)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalRepository(t *testing.T) {
	dir := t.TempDir()
	ref := dag.NewRef("org.example", "lib", "1.0")
	writePOM(t, dir, ref, "<project><artifactId>lib</artifactId></project>")
	repo := NewLocalRepository(dir)

	data, err := repo.FetchPOM(context.Background(), ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<artifactId>lib</artifactId>") {
		t.Errorf("data = %q", data)
	}

	_, err = repo.FetchPOM(context.Background(), ref.WithVersion("2.0"), false)
	if !errors.Is(err, errors.ErrCodeArtifactNotFound) {
		t.Errorf("missing pom error = %v", err)
	}
	if !strings.HasPrefix(repo.Name(), "local:") {
		t.Errorf("Name = %q", repo.Name())
	}
}

func TestLocalRepositoryRejectsTraversal(t *testing.T) {
	repo := NewLocalRepository(t.TempDir())
	_, err := repo.FetchPOM(context.Background(), dag.NewRef("..", "..", "1.0"), false)
	if err == nil {
		t.Fatal("expected error for path traversal")
	}
	if errors.Is(err, errors.ErrCodeArtifactNotFound) {
		t.Errorf("traversal reported as not found: %v", err)
	}
}

func TestNewRemoteRepositoryValidatesURL(t *testing.T) {
	if _, err := NewRemoteRepository("bad", "not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestRemoteRepositoryFetchPOM(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path != "/maven2/org/example/lib/1.0/lib-1.0.pom" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<project><artifactId>lib</artifactId></project>"))
	}))
	defer server.Close()

	repo, err := NewRemoteRepository("test", server.URL+"/maven2/", WithRetry(fastRetry))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	data, err := repo.FetchPOM(ctx, dag.NewRef("org.example", "lib", "1.0"), false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "lib") {
		t.Errorf("data = %q", data)
	}
	if got := userAgent.Load(); got != buildinfo.UserAgent() {
		t.Errorf("User-Agent = %v, want %q", got, buildinfo.UserAgent())
	}

	_, err = repo.FetchPOM(ctx, dag.NewRef("org.example", "missing", "1.0"), false)
	if !errors.Is(err, errors.ErrCodeArtifactNotFound) {
		t.Errorf("missing pom error = %v", err)
	}
}

func TestRemoteRepositoryRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		wantErr   bool
		wantCalls int32
	}{
		{"recovers after 5xx", 2, http.StatusServiceUnavailable, false, 3},
		{"gives up after 3 attempts", 5, http.StatusBadGateway, true, 3},
		{"rate limited", 1, http.StatusTooManyRequests, false, 2},
		{"client error not retried", 5, http.StatusForbidden, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failures {
					w.Header().Set("Retry-After", "1")
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte("<project><artifactId>lib</artifactId></project>"))
			}))
			defer server.Close()

			repo, _ := NewRemoteRepository("test", server.URL, WithRetry(fastRetry))
			_, err := repo.FetchPOM(context.Background(), dag.NewRef("g", "lib", "1"), false)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeNetwork) {
				t.Errorf("error code = %q, want NETWORK_ERROR", errors.GetCode(err))
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("server calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRemoteRepositoryCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<project><artifactId>lib</artifactId></project>"))
	}))
	defer server.Close()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo, _ := NewRemoteRepository("test", server.URL,
		WithCache(c, cache.NewDefaultKeyer(), time.Hour), WithRetry(fastRetry))
	ctx := context.Background()
	ref := dag.NewRef("g", "lib", "1")

	for range 3 {
		if _, err := repo.FetchPOM(ctx, ref, false); err != nil {
			t.Fatal(err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (cached)", got)
	}

	if _, err := repo.FetchPOM(ctx, ref, true); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls after refresh = %d, want 2", got)
	}
}

func TestRemoteRepositoryCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo, _ := NewRemoteRepository("test", server.URL, WithRetry(fastRetry))
	if _, err := repo.FetchPOM(ctx, dag.NewRef("g", "lib", "1"), false); err == nil {
		t.Error("expected error from cancelled context")
	}
}

type mapRepository struct {
	name string
	poms map[dag.ArtifactRef]string
	err  error
}

func (m *mapRepository) Name() string { return m.name }

func (m *mapRepository) FetchPOM(_ context.Context, ref dag.ArtifactRef, _ bool) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.poms[ref]
	if !ok {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "%s not found", ref)
	}
	return []byte(body), nil
}

func TestChainRepository(t *testing.T) {
	ref := dag.NewRef("g", "lib", "1")
	first := &mapRepository{name: "first", poms: map[dag.ArtifactRef]string{}}
	second := &mapRepository{name: "second", poms: map[dag.ArtifactRef]string{ref: "second"}}
	chain := ChainRepository{first, second}

	data, err := chain.FetchPOM(context.Background(), ref, false)
	if err != nil || string(data) != "second" {
		t.Errorf("FetchPOM = %q, %v", data, err)
	}
	if chain.Name() != "chain(first,second)" {
		t.Errorf("Name = %q", chain.Name())
	}

	_, err = chain.FetchPOM(context.Background(), ref.WithVersion("2"), false)
	if !errors.Is(err, errors.ErrCodeArtifactNotFound) {
		t.Errorf("missing error = %v", err)
	}

	first.err = errors.New(errors.ErrCodeNetwork, "down")
	if _, err := chain.FetchPOM(context.Background(), ref, false); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("network error did not stop the chain: %v", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":                              0,
		"3":                             3 * time.Second,
		" 10 ":                          10 * time.Second,
		"-1":                            0,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	}
	for in, want := range tests {
		if got := retryAfter(in); got != want {
			t.Errorf("retryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
