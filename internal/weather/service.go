package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCoordinate rejects out-of-range latitude or longitude before any
// network call.
func ValidateCoordinate(c Coordinate) error {
	return validate.Struct(c)
}

// ValidateRequest checks coordinate ranges and horizon bounds.
func ValidateRequest(req ForecastRequest) error {
	return validate.Struct(req)
}

// defaultFetchBudget bounds one logical fetch including retries and, for the
// two-step provider, both calls.
const defaultFetchBudget = 75 * time.Second

// Service resolves the adapter for a request and runs the fetch under a
// bounded context. It holds no mutable configuration; the credential travels
// inside the request.
type Service struct {
	registry *Registry
	budget   time.Duration
}

// NewService creates a Service over the registry. A non-positive budget
// falls back to the default.
func NewService(registry *Registry, budget time.Duration) *Service {
	if budget <= 0 {
		budget = defaultFetchBudget
	}
	return &Service{registry: registry, budget: budget}
}

// GetWeather validates the request, fails fast on a missing credential, and
// dispatches to the provider adapter. The outcome is either a fully populated
// ForecastResult or a single error, never a partial result.
func (s *Service) GetWeather(ctx context.Context, req ForecastRequest) (ForecastResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid forecast request: %w", err)
	}

	adapter, err := s.registry.Lookup(req.Provider)
	if err != nil {
		return nil, err
	}

	// A known-unusable configuration never reaches the network.
	if adapter.RequiresCredential() && req.Credential == "" {
		return nil, &ProviderError{
			Provider: req.Provider,
			Kind:     FailMissingCredential,
			Message:  "api key is not configured",
		}
	}

	log.Printf("DEBUG: fetching %s at (%.4f, %.4f) horizon=%dh",
		req.Provider, req.Coordinate.Lat, req.Coordinate.Lon, req.HorizonHours)

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	result, err := adapter.Fetch(ctx, req.Coordinate, req.Credential, req.HorizonHours)
	if err != nil {
		log.Printf("provider %s fetch failed: %v", req.Provider, err)
		return nil, err
	}
	if len(result) == 0 {
		return nil, &ProviderError{
			Provider: req.Provider,
			Kind:     FailMalformed,
			Message:  "provider returned no samples",
		}
	}
	return result, nil
}
