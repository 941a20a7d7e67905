package client

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrRegistryUnavailable is returned when a registry host's circuit is
// open and requests to it are being shed.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// hostBreakers tracks one circuit breaker per registry host. A host that
// keeps failing stops receiving requests until its breaker resets, so one
// dead registry cannot stall every lookup run against it.
type hostBreakers struct {
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

func newHostBreakers() *hostBreakers {
	return &hostBreakers{
		breakers: make(map[string]*circuit.Breaker),
	}
}

// get returns or creates a circuit breaker for the given host.
func (hb *hostBreakers) get(host string) *circuit.Breaker {
	hb.mu.RLock()
	breaker, exists := hb.breakers[host]
	hb.mu.RUnlock()

	if exists {
		return breaker
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := hb.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failed requests (a fully retried request
	// counts once), resets on an exponential schedule.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	hb.breakers[host] = breaker
	return breaker
}

// states reports each host's breaker as "open" or "closed".
func (hb *hostBreakers) states() map[string]string {
	hb.mu.RLock()
	defer hb.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range hb.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// WithCircuitBreaker enables per-registry-host circuit breakers around
// the client's requests.
func WithCircuitBreaker() Option {
	return func(c *Client) {
		c.breakers = newHostBreakers()
	}
}

// BreakerStates returns the state of each host's circuit breaker, keyed
// by host (for health checks). Nil if circuit breaking is disabled.
func (c *Client) BreakerStates() map[string]string {
	if c.breakers == nil {
		return nil
	}
	return c.breakers.states()
}

// extractHost extracts the host from a URL for circuit breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		// Fallback to simple truncation
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
