package core

import (
	"context"
	"fmt"
	"sync"
)

// Source is the interface implemented by all ecosystem metadata clients.
// One FetchMetadata call issues exactly one outbound request; retry of
// transient failures happens inside the HTTP client, below this boundary.
type Source interface {
	// Ecosystem returns the PURL type for this source (e.g. "npm", "pypi").
	Ecosystem() string

	// FetchMetadata retrieves the published-version document for a package.
	// Failures are reported as typed errors (client.NotFoundError,
	// client.HTTPError, ParseError); Classify maps them to outcome kinds.
	FetchMetadata(ctx context.Context, name string) (*PackageMetadata, error)
}

// Factory creates a source instance for a given base URL.
type Factory func(baseURL string, client *Client) Source

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a source factory to the global registry.
// ecosystem is the PURL type (e.g. "npm", "pypi").
// defaultURL is the default registry URL for the ecosystem.
func Register(ecosystem string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[ecosystem] = factory
	defaults[ecosystem] = defaultURL
}

// New creates a new metadata source for the given ecosystem.
// If baseURL is empty, the default registry URL is used.
func New(ecosystem string, baseURL string, client *Client) (Source, error) {
	mu.RLock()
	factory, ok := factories[ecosystem]
	defaultURL := defaults[ecosystem]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem: %s", ecosystem)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedEcosystems returns all registered ecosystem types.
func SupportedEcosystems() []string {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]string, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[ecosystem]
}
