// Package geo resolves travel routes and weather for facility coordinates.
// Both resolvers call external HTTP providers and never return an error to their callers.
package geo

import (
	"context"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Cache stores provider responses between calls
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// NewHTTPClient returns a client bounded by timeout. Requests whose context carries a
// New Relic transaction are recorded as external segments.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newrelic.NewRoundTripper(http.DefaultTransport),
	}
}
