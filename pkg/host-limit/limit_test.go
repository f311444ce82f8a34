package hostlimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitAllowsWithinBurst(t *testing.T) {
	l := NewLimiter(1, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if err := l.Wait(ctx, "https://example.com/b"); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// burst consumed, the next wait cannot clear before the deadline
	if err := l.Wait(ctx, "https://example.com"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if err := l.Wait(ctx, "https://example.com"); err == nil {
		t.Fatal("expected context error on exhausted limiter")
	}
}

func TestHostsAreLimitedIndependently(t *testing.T) {
	l := NewLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "https://one.example.com"); err != nil {
		t.Fatalf("first host wait failed: %v", err)
	}
	if err := l.Wait(ctx, "https://two.example.com"); err != nil {
		t.Fatalf("second host wait failed: %v", err)
	}
}
