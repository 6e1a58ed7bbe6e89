package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter must be a no-op, got %v", err)
	}
}

func TestLimiter_ZeroRPSNeverBlocks(t *testing.T) {
	l := NewLimiter(0, 0.5)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled limiter blocked for %v", elapsed)
	}
}

func TestLimiter_PacesRequests(t *testing.T) {
	l := NewLimiter(20, 0) // 50ms spacing
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// First token is free; three more need roughly 150ms.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("limiter too permissive: 4 requests in %v", elapsed)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewLimiter(0.1, 0) // 10s spacing forces a wait on the second token
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first token should be immediate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context error while waiting for a token")
	}
}
