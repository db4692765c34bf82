package weather

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedAdapter wraps an Adapter with a client-side rate limiter so
// rapid repeated clicks cannot flood a paid upstream.
type RateLimitedAdapter struct {
	inner   Adapter
	limiter *rate.Limiter
}

// NewRateLimitedAdapter allows rps requests per second with the given burst.
func NewRateLimitedAdapter(inner Adapter, rps float64, burst int) *RateLimitedAdapter {
	return &RateLimitedAdapter{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (a *RateLimitedAdapter) Name() string { return a.inner.Name() }

func (a *RateLimitedAdapter) RequiresCredential() bool { return a.inner.RequiresCredential() }

// Fetch waits for limiter clearance, honoring ctx, then delegates.
func (a *RateLimitedAdapter) Fetch(ctx context.Context, coord Coordinate, credential string, horizonHours int) (ForecastResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Provider: a.inner.Name(),
			Kind:     FailTimeout,
			Message:  "rate limit wait aborted",
			Err:      err,
		}
	}
	return a.inner.Fetch(ctx, coord, credential, horizonHours)
}
