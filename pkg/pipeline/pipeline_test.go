package pipeline

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stackresolve/pkg/cache"
	"github.com/matzehuels/stackresolve/pkg/dag"
	"github.com/matzehuels/stackresolve/pkg/dag/transform"
	"github.com/matzehuels/stackresolve/pkg/deps"
	"github.com/matzehuels/stackresolve/pkg/errors"
	"github.com/matzehuels/stackresolve/pkg/observability"
)

func ref(a, v string) dag.ArtifactRef { return dag.NewRef("g", a, v) }

func desc(a, v string, mgmt []dag.ManagementEntry, children ...dag.ArtifactRef) *deps.Descriptor {
	d := &deps.Descriptor{Artifact: ref(a, v), Management: mgmt}
	for _, r := range children {
		d.Dependencies = append(d.Dependencies, dag.Dependency{Artifact: r, Scope: dag.ScopeCompile})
	}
	return d
}

// diamond is R→X→Z:1.0 and R→Y→Z:2.0. If managed, R manages Z to 2.0.
func diamond(managed bool) *deps.MemoryFetcher {
	var mgmt []dag.ManagementEntry
	if managed {
		mgmt = []dag.ManagementEntry{{Target: dag.NewKey("g", "z"), Version: "2.0"}}
	}
	return deps.NewMemoryFetcher(
		desc("r", "1.0", mgmt, ref("x", "1.0"), ref("y", "1.0")),
		desc("x", "1.0", nil, ref("z", "1.0")),
		desc("y", "1.0", nil, ref("z", "2.0")),
		desc("z", "1.0", nil),
		desc("z", "2.0", nil),
	)
}

type countingFetcher struct {
	deps.Fetcher
	calls atomic.Int32
}

func (c *countingFetcher) Fetch(ctx context.Context, r dag.ArtifactRef, refresh bool) (*deps.Descriptor, error) {
	c.calls.Add(1)
	return c.Fetcher.Fetch(ctx, r, refresh)
}

func versions(g *dag.Graph, artifact string) []string {
	var out []string
	for _, n := range g.Nodes() {
		if n.Artifact.ArtifactID == artifact {
			out = append(out, n.Artifact.Version)
		}
	}
	slices.Sort(out)
	return out
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{Root: "g:r:1.0"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.MaxNodes != DefaultMaxNodes || opts.Workers != DefaultWorkers || opts.MaxIterations != DefaultMaxIterations {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if opts.RootRef() != ref("r", "1.0") {
		t.Errorf("RootRef = %v", opts.RootRef())
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestOptionsValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"missing root", Options{}, errors.ErrCodeInvalidInput},
		{"bad root", Options{Root: "just-a-name"}, errors.ErrCodeInvalidCoordinate},
		{"placeholder version", Options{Root: "g:r:${v}"}, errors.ErrCodeInvalidCoordinate},
		{"negative nodes", Options{Root: "g:r:1", MaxNodes: -1}, errors.ErrCodeInvalidInput},
		{"negative iterations", Options{Root: "g:r:1", MaxIterations: -2}, errors.ErrCodeInvalidInput},
		{"unknown task", Options{Root: "g:r:1", Skip: []string{"normalize"}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateTask(t *testing.T) {
	for _, id := range Tasks {
		if err := ValidateTask(id); err != nil {
			t.Errorf("ValidateTask(%q) = %v", id, err)
		}
	}
	if err := ValidateTask(transform.TaskApplyManagement); err == nil {
		t.Error("apply-management runs inside populate-graph and is not skippable on its own")
	}
}

func TestExecuteManagedDiamond(t *testing.T) {
	r := NewRunner(diamond(true), nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Root: "g:r:1.0"})
	if err != nil {
		t.Fatal(err)
	}

	if got := versions(res.Graph, "z"); !slices.Equal(got, []string{"2.0"}) {
		t.Errorf("z versions = %v, want [2.0]", got)
	}
	if res.Stats.RawNodeCount != 5 || res.Stats.Conflicts != 1 {
		t.Errorf("raw stats = %+v", res.Stats)
	}
	if res.Stats.NodeCount != 4 || res.Stats.EdgeCount != 4 {
		t.Errorf("refined stats = %+v", res.Stats)
	}
	if len(res.Reports) != len(Tasks) {
		t.Errorf("got %d reports, want %d", len(res.Reports), len(Tasks))
	}
	if res.RunID == "" || res.CacheInfo.BuildHit {
		t.Errorf("RunID = %q, BuildHit = %v", res.RunID, res.CacheInfo.BuildHit)
	}
	if err := res.Graph.ValidateRefined(); err != nil {
		t.Error(err)
	}
}

func TestExecuteSkip(t *testing.T) {
	r := NewRunner(diamond(false), nil, nil, nil)

	res, err := r.Execute(context.Background(), Options{Root: "g:r:1.0"})
	if err != nil {
		t.Fatal(err)
	}
	// Both at depth 2; the newer one wins.
	if got := versions(res.Graph, "z"); !slices.Equal(got, []string{"2.0"}) {
		t.Errorf("z versions = %v", got)
	}

	res, err = r.Execute(context.Background(), Options{
		Root: "g:r:1.0",
		Skip: []string{transform.TaskResolveConflicts},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := versions(res.Graph, "z"); !slices.Equal(got, []string{"1.0", "2.0"}) {
		t.Errorf("z versions with conflicts skipped = %v", got)
	}
	for _, rep := range res.Reports {
		if rep.Task == transform.TaskResolveConflicts {
			t.Error("skipped task reported")
		}
	}
}

func TestExecuteCachesRawGraph(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &countingFetcher{Fetcher: diamond(true)}
	r := NewRunner(f, c, nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Execute(ctx, Options{Root: "g:r:1.0"})
	if err != nil {
		t.Fatal(err)
	}
	fetched := f.calls.Load()

	second, err := r.Execute(ctx, Options{Root: "g:r:1.0"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.BuildHit {
		t.Error("second run missed the cache")
	}
	if got := f.calls.Load(); got != fetched {
		t.Errorf("cached run fetched %d descriptors", got-fetched)
	}
	if first.Stats.NodeCount != second.Stats.NodeCount || first.Stats.Conflicts != second.Stats.Conflicts {
		t.Errorf("stats differ: %+v vs %+v", first.Stats, second.Stats)
	}
	if first.RunID == second.RunID {
		t.Error("RunID reused")
	}

	refreshed, err := r.Execute(ctx, Options{Root: "g:r:1.0", Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.BuildHit {
		t.Error("refresh hit the cache")
	}

	other, err := r.Execute(ctx, Options{Root: "g:r:1.0", MaxNodes: 3})
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheInfo.BuildHit {
		t.Error("different resolver options shared a cache entry")
	}
}

func TestExecuteResolveError(t *testing.T) {
	f := deps.NewMemoryFetcher(desc("r", "1.0", nil, ref("missing", "1")))
	_, err := NewRunner(f, nil, nil, nil).Execute(context.Background(), Options{Root: "g:r:1.0"})

	var re *deps.ResolveError
	if !stderrors.As(err, &re) || re.Artifact != ref("missing", "1") {
		t.Fatalf("error = %v, want ResolveError for g:missing:1", err)
	}
	if !errors.Has(err, errors.ErrCodeArtifactNotFound) {
		t.Error("not-found code lost")
	}
}

func TestExecuteWithoutFetcher(t *testing.T) {
	_, err := NewRunner(nil, nil, nil, nil).Execute(context.Background(), Options{Root: "g:r:1"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v", err)
	}
}

func TestRefineWithoutRoot(t *testing.T) {
	f := diamond(true)
	g, err := deps.NewResolver(f, deps.Options{}).Build(context.Background(), ref("r", "1.0"))
	if err != nil {
		t.Fatal(err)
	}

	reports, err := NewRunner(f, nil, nil, nil).Refine(context.Background(), g, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != len(Tasks) {
		t.Errorf("got %d reports", len(reports))
	}
	if got := versions(g, "z"); !slices.Equal(got, []string{"2.0"}) {
		t.Errorf("z versions = %v", got)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnBuildStart(_ context.Context, root string) { h.record("build-start " + root) }

func (h *recordingHooks) OnBuildComplete(_ context.Context, root string, _ int, _ time.Duration, err error) {
	h.record("build-complete " + root)
}

func (h *recordingHooks) OnTaskStart(_ context.Context, task string, _ int) { h.record("start " + task) }

func (h *recordingHooks) OnTaskComplete(_ context.Context, task string, _ int, _ time.Duration, _ error) {
	h.record("complete " + task)
}

func TestExecuteFiresHooks(t *testing.T) {
	rec := &recordingHooks{}
	observability.SetPipelineHooks(rec)
	t.Cleanup(observability.Reset)

	_, err := NewRunner(diamond(true), nil, nil, nil).Execute(context.Background(), Options{
		Root: "g:r:1.0",
		Skip: []string{transform.TaskTransitiveReduction, transform.TaskPropagateScopes},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"build-start g:r:1.0",
		"build-complete g:r:1.0",
		"start populate-graph",
		"complete populate-graph",
		"start resolve-conflicts",
		"complete resolve-conflicts",
	}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %q\nwant %q", rec.events, want)
	}
}
