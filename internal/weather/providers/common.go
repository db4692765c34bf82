package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fabiangomez1963/climaclick/internal/units"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// defaultHTTPConfig is the resilience profile shared by all adapters: three
// attempts total with a 300ms backoff base.
func defaultHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 300 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// retriableStatusError marks a 5xx response worth another attempt.
type retriableStatusError struct {
	status int
}

func (e *retriableStatusError) Error() string {
	return fmt.Sprintf("upstream server error: status %d", e.status)
}

// doRequestWithResilience executes the HTTP request with retries, exponential
// backoff, and a circuit breaker. 4xx statuses are terminal and propagate
// immediately as a typed provider error; 5xx statuses and transport failures
// are retried until the attempt budget runs out. A returned response always
// has a 2xx status.
func doRequestWithResilience(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, classifyTransport(provider, ctx.Err())
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, &retriableStatusError{status: resp.StatusCode}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				// Client errors are terminal; keep the vendor's own message
				// when the body carries one.
				msg := upstreamMessage(resp.Body)
				resp.Body.Close()
				return nil, terminalStatusError(provider, resp.StatusCode, msg)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// Terminal outcomes propagate immediately, no retry.
		var provErr *weather.ProviderError
		if errors.As(err, &provErr) {
			return nil, provErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.ProviderError{
				Provider: provider,
				Kind:     weather.FailConnection,
				Message:  "circuit breaker open",
				Err:      err,
			}
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, classifyRetryExhausted(provider, lastErr)
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, classifyTransport(provider, ctx.Err())
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// terminalStatusError builds the typed error for a non-retriable status.
func terminalStatusError(provider string, status int, upstreamMsg string) *weather.ProviderError {
	msg := upstreamMsg
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &weather.ProviderError{
		Provider: provider,
		Kind:     weather.FailHTTP,
		Status:   status,
		Message:  msg,
	}
}

// classifyRetryExhausted maps the last retriable failure to its terminal kind.
func classifyRetryExhausted(provider string, err error) *weather.ProviderError {
	var statusErr *retriableStatusError
	if errors.As(err, &statusErr) {
		return &weather.ProviderError{
			Provider: provider,
			Kind:     weather.FailHTTP,
			Status:   statusErr.status,
			Message:  "server error persisted across retries",
			Err:      err,
		}
	}
	return classifyTransport(provider, err)
}

// classifyTransport distinguishes timeouts from other connection failures.
func classifyTransport(provider string, err error) *weather.ProviderError {
	kind := weather.FailConnection
	if errors.Is(err, context.DeadlineExceeded) {
		kind = weather.FailTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = weather.FailTimeout
	}
	return &weather.ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  err.Error(),
		Err:      err,
	}
}

// upstreamMessage pulls a human-readable error out of the common vendor
// error-body shapes. Best effort; returns "" when nothing recognizable is
// found.
func upstreamMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 8<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if len(envelope.Error) == 0 {
		return ""
	}

	var text string
	if json.Unmarshal(envelope.Error, &text) == nil {
		return text
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &nested) == nil {
		return nested.Message
	}
	return ""
}

// missingCredential is the fail-fast error for credential-requiring adapters.
func missingCredential(provider string) *weather.ProviderError {
	return &weather.ProviderError{
		Provider: provider,
		Kind:     weather.FailMissingCredential,
		Message:  "api key is not configured",
	}
}

// malformed wraps a decode failure, logging the raw status for diagnosis.
func malformed(provider string, status int, err error) *weather.ProviderError {
	log.Printf("%s: undecodable response body (status %d): %v", provider, status, err)
	return &weather.ProviderError{
		Provider: provider,
		Kind:     weather.FailMalformed,
		Message:  "failed to decode provider response",
		Err:      err,
	}
}

// windFromMS derives both display speeds from one canonical reading in
// metres per second. Deriving both from the same source avoids the rounding
// drift of chaining km/h into knots.
func windFromMS(ms float64) (kmh, knots float64) {
	return units.Round1(units.ToKmh(ms)), units.Round1(units.ToKnots(ms))
}

// roundPtr rounds an optional reading in place, preserving absence.
func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := units.Round1(*v)
	return &r
}
