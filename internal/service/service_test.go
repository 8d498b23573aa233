package service_test

import (
	"context"
	"testing"
	"time"

	"chartly/internal/service"
)

// ─────────────────────────────────────────────────────────────
// runningImportsGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("u1/upload:a") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("u1/upload:a") {
		t.Fatal("expected second TryLock for same key to fail")
	}
	if !g.TryLock("u2/upload:a") {
		t.Fatal("expected TryLock for different key to succeed")
	}
	g.Unlock("u1/upload:a")
	g.Unlock("u2/upload:a")

	if !g.TryLock("u1/upload:a") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("u1/upload:a")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("key-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("key-a")
	}()

	select {
	case <-done:
		// success
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}
