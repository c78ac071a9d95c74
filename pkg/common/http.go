package common

import (
	"context"
	_ "embed"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

//go:embed VERSION
var version string

// Version returns the current build version.
func Version() string {
	return strings.TrimSpace(version)
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
	limiter   *rate.Limiter
}

// RoundTrip sets the user-agent and, when a limiter is configured, waits for
// permission before sending the request.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set.
func HTTPClient(timeout time.Duration) *http.Client {
	return newClient(timeout, nil)
}

// RateLimitedHTTPClient returns an http client that additionally throttles
// outgoing requests. Several independent pollers share one client against the
// vendor API, so the limit applies across all of them.
func RateLimitedHTTPClient(timeout time.Duration, perSecond float64, burst int) *http.Client {
	return newClient(timeout, rate.NewLimiter(rate.Limit(perSecond), burst))
}

func newClient(timeout time.Duration, limiter *rate.Limiter) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "SolarEco/" + Version(),
			limiter:   limiter,
		},
		Timeout: timeout,
	}
}

// Sleep blocks for d or until the context is cancelled, in which case it
// returns the context's error.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
