package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningImportsGuard

// ─────────────────────────────────────────────────────────────
// runningImportsGuard — serializes imports per target
// ─────────────────────────────────────────────────────────────

// runningImportsGuard ensures only one import runs at a time for a
// given key (user + source reference, or a job ID). A second caller
// for the same key is turned away rather than queued.
type runningImportsGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark key as running. Returns false if an import
// for that key is already in flight.
func (g *runningImportsGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases the key. Must be called after TryLock returns true.
func (g *runningImportsGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// WaitAll blocks until all in-flight imports complete or ctx is cancelled.
func (g *runningImportsGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
