package weather

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Adapter translates one upstream provider's API shape into the unified
// record schema.
type Adapter interface {
	// Name returns the provider id this adapter serves.
	Name() string

	// RequiresCredential reports whether Fetch needs a non-empty credential.
	RequiresCredential() bool

	// Fetch retrieves current conditions (horizonHours zero) or the next
	// horizonHours hourly samples for the coordinate. Failures are reported
	// as *ProviderError.
	Fetch(ctx context.Context, coord Coordinate, credential string, horizonHours int) (ForecastResult, error)
}

// ErrUnknownProvider is returned by Registry.Lookup for unregistered ids.
var ErrUnknownProvider = errors.New("unknown weather provider")

// Registry dispatches provider ids to adapters. Adding a provider is a
// registration, not a service change.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces the adapter under its own name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Lookup resolves a provider id to its adapter.
func (r *Registry) Lookup(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// Names lists registered provider ids in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
