package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports every event to a logger at debug level; failures are
// logged as warnings.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks { return &LogHooks{Logger: logger} }

func (h *LogHooks) OnBuildStart(_ context.Context, root string) {
	h.Logger.Debug("build started", "root", root)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, root string, nodeCount int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("build failed", "root", root, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("build complete", "root", root, "nodes", nodeCount, "duration", d)
}

func (h *LogHooks) OnTaskStart(_ context.Context, task string, nodeCount int) {
	h.Logger.Debug("task started", "task", task, "nodes", nodeCount)
}

func (h *LogHooks) OnTaskComplete(_ context.Context, task string, nodeCount int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("task failed", "task", task, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("task complete", "task", task, "nodes", nodeCount, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.Logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.Logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.Logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
