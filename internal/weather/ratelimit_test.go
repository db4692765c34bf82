package weather

import (
	"context"
	"testing"
)

func TestRateLimitedAdapterDelegates(t *testing.T) {
	inner := &fakeAdapter{name: "wrapped", needsKey: true}
	limited := NewRateLimitedAdapter(inner, 100, 1)

	if limited.Name() != "wrapped" {
		t.Errorf("Name() = %q", limited.Name())
	}
	if !limited.RequiresCredential() {
		t.Errorf("RequiresCredential() lost on wrapping")
	}

	result, err := limited.Fetch(context.Background(), Coordinate{Lat: 1, Lon: 2}, "key", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || inner.calls != 1 {
		t.Errorf("delegate not invoked exactly once: %d calls", inner.calls)
	}
}

func TestRateLimitedAdapterAbortsOnCancelledContext(t *testing.T) {
	inner := &fakeAdapter{name: "wrapped"}
	// Burst already spent; the next fetch has to wait for a token.
	limited := NewRateLimitedAdapter(inner, 0.001, 1)
	if _, err := limited.Fetch(context.Background(), Coordinate{}, "", 0); err != nil {
		t.Fatalf("first fetch should pass the burst: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limited.Fetch(ctx, Coordinate{}, "", 0)
	if !IsKind(err, FailTimeout) {
		t.Fatalf("err = %v, want FailTimeout", err)
	}
	if inner.calls != 1 {
		t.Errorf("delegate called %d times, want 1", inner.calls)
	}
}
