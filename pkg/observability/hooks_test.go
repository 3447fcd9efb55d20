package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnBuildStart(ctx, "org.example:app:1.0")
	p.OnBuildComplete(ctx, "org.example:app:1.0", 100, time.Second, nil)
	p.OnTaskStart(ctx, "resolve-conflicts", 100)
	p.OnTaskComplete(ctx, "resolve-conflicts", 90, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "graph")
	c.OnCacheMiss(ctx, "pom")
	c.OnCacheSet(ctx, "pom", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "repo1.maven.org", "/maven2/junit/junit/4.13/junit-4.13.pom")
	h.OnResponse(ctx, "GET", "repo1.maven.org", "/maven2/junit/junit/4.13/junit-4.13.pom", 200, time.Second)
	h.OnError(ctx, "GET", "repo1.maven.org", "/maven2/junit/junit/4.13/junit-4.13.pom", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))
	ctx := context.Background()

	h.OnTaskComplete(ctx, "propagate-scopes", 12, time.Millisecond, nil)
	h.OnBuildComplete(ctx, "g:a:1", 0, time.Millisecond, errors.New("artifact missing"))
	h.OnCacheHit(ctx, "graph")

	out := buf.String()
	for _, want := range []string{"task complete", "propagate-scopes", "build failed", "artifact missing", "cache hit"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMultiHooks(t *testing.T) {
	t.Cleanup(Reset)

	var buf bytes.Buffer
	logHooks := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))
	metrics := newTestMetrics(t)
	SetHooks(MultiHooks{logHooks, metrics})

	ctx := context.Background()
	Cache().OnCacheHit(ctx, "graph")
	Pipeline().OnBuildComplete(ctx, "g:a:1", 7, time.Millisecond, nil)

	if !strings.Contains(buf.String(), "cache hit") {
		t.Errorf("log hooks not called: %q", buf.String())
	}
	if got := testutil.ToFloat64(metrics.CacheEventsTotal.WithLabelValues("graph", "hit")); got != 1 {
		t.Errorf("metrics hooks saw %v hits, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.GraphNodes); got != 7 {
		t.Errorf("graph_nodes = %v, want 7", got)
	}
}
