package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_WaitPacesTokens(t *testing.T) {
	// 100 tokens per second, burst of 1: the second token needs a refill.
	l := NewLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait for burst token failed: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait for refilled token failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned before the bucket refilled")
	}
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	// 1 token per second: the second token takes far longer than the deadline.
	l := NewLimiter(1, 1)

	if err := l.Wait(context.Background(), 1); err != nil {
		t.Fatalf("Wait for burst token failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 1); err == nil {
		t.Error("expected Wait to fail once the context deadline passes")
	}
}

func TestLimiter_NilNeverThrottles(t *testing.T) {
	l := NewLimiter(0, 1)
	if l != nil {
		t.Fatal("expected nil limiter when rate is zero")
	}
	if err := l.Wait(context.Background(), 100); err != nil {
		t.Errorf("nil limiter Wait failed: %v", err)
	}
}
