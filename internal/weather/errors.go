package weather

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider fetch failed.
type FailureKind string

const (
	// FailMissingCredential: the provider needs an API key and none is
	// configured. User-fixable, raised before any network call.
	FailMissingCredential FailureKind = "missing_credential"
	// FailTimeout: the call exceeded its time budget.
	FailTimeout FailureKind = "timeout"
	// FailConnection: the upstream could not be reached.
	FailConnection FailureKind = "connection_failed"
	// FailHTTP: the upstream answered with a non-2xx status. Status carries
	// the code; 4xx are terminal, 5xx arrive here only after retries.
	FailHTTP FailureKind = "http_error"
	// FailMalformed: the response body could not be decoded.
	FailMalformed FailureKind = "malformed_response"
	// FailLocationNotFound: the geocode step resolved no usable location key.
	FailLocationNotFound FailureKind = "location_not_found"
)

// ProviderError is the typed outcome of a failed provider fetch.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Status   int // set for FailHTTP only
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Kind == FailHTTP && e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsKind reports whether err carries a ProviderError of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}
