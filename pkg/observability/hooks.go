// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline stages, individual bakes, and the run
// history ledger.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the bake core
// free of any particular metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetBakeHooks(&myBakeHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, "bake", scope)
//	// ... run the stage ...
//	observability.Pipeline().OnStageComplete(ctx, "bake", scope, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives stage events from the bake pipeline. scope is the
// object name in separate mode and empty in combined mode.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage, scope string)
	OnStageComplete(ctx context.Context, stage, scope string, duration time.Duration, err error)
}

// =============================================================================
// Bake Hooks
// =============================================================================

// BakeHooks receives events for individual bake, persist, and pack operations.
type BakeHooks interface {
	// OnBake records one host bake call for a map over a set of objects.
	OnBake(ctx context.Context, mapType, scope string, objects []string, duration time.Duration, err error)

	// OnPersist records an image written to disk.
	OnPersist(ctx context.Context, mapType, scope, path string)

	// OnPack records a metallic-roughness packing pass.
	OnPack(ctx context.Context, scope, path string, duration time.Duration, err error)
}

// =============================================================================
// History Hooks
// =============================================================================

// HistoryHooks receives events from the run history ledger.
type HistoryHooks interface {
	// OnRecord records a run being written to the ledger.
	OnRecord(ctx context.Context, runID, status string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string, string)                            {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {}

// NoopBakeHooks is a no-op implementation of BakeHooks.
type NoopBakeHooks struct{}

func (NoopBakeHooks) OnBake(context.Context, string, string, []string, time.Duration, error) {}
func (NoopBakeHooks) OnPersist(context.Context, string, string, string)                     {}
func (NoopBakeHooks) OnPack(context.Context, string, string, time.Duration, error)          {}

// NoopHistoryHooks is a no-op implementation of HistoryHooks.
type NoopHistoryHooks struct{}

func (NoopHistoryHooks) OnRecord(context.Context, string, string, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	bakeHooks     BakeHooks     = NoopBakeHooks{}
	historyHooks  HistoryHooks  = NoopHistoryHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetBakeHooks registers custom bake hooks.
func SetBakeHooks(h BakeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		bakeHooks = h
	}
}

// SetHistoryHooks registers custom history hooks.
func SetHistoryHooks(h HistoryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		historyHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Bake returns the registered bake hooks.
func Bake() BakeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return bakeHooks
}

// History returns the registered history hooks.
func History() HistoryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return historyHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	bakeHooks = NoopBakeHooks{}
	historyHooks = NoopHistoryHooks{}
}
