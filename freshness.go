// Package freshness reports how far a project's allowed dependency
// versions lag behind the latest published releases, measured in elapsed
// time.
//
// Given a manifest's (package, version-range) pairs, the pipeline fetches
// each package's published-version metadata concurrently, resolves the
// highest version satisfying the declared range and the package's latest
// version, and computes the age of both against their publish timestamps.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/freshness"
//		_ "github.com/git-pkgs/freshness/all"
//	)
//
//	src, err := freshness.New("npm", "", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rows, err := freshness.Check(context.Background(), src, []freshness.Dependency{
//		{Name: "react", RequestedRange: "^18.0.0"},
//		{Name: "typescript", RequestedRange: "~5.3.0", Dev: true},
//	})
//
// Hosts that re-run the pipeline as inputs change (editors, dashboards)
// should drive a lookup.Coordinator directly, optionally behind a
// lookup.Debouncer, and observe partial progress via Subscribe.
package freshness

import (
	"context"
	"time"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/freshness/client"
	"github.com/git-pkgs/freshness/internal/core"
	"github.com/git-pkgs/freshness/lookup"
	"github.com/git-pkgs/freshness/stats"
)

// Re-export types from internal/core
type (
	// Source is the interface implemented by all ecosystem metadata clients.
	Source = core.Source

	// Dependency is one manifest entry: name, allowed range, dev flag.
	Dependency = core.Dependency

	// PublishedVersion is a version string with its publish timestamp.
	PublishedVersion = core.PublishedVersion

	// PackageMetadata is the per-package published-version document.
	PackageMetadata = core.PackageMetadata

	// Outcome is the terminal result of one package's metadata fetch.
	Outcome = core.Outcome

	// OutcomeKind tags an Outcome.
	OutcomeKind = core.OutcomeKind

	// Progress is a lookup run's {total, fulfilled} pair.
	Progress = core.Progress

	// VersionStatus represents the status of a published version.
	VersionStatus = core.VersionStatus
)

// StatRow is the per-dependency result of a freshness pass.
type StatRow = stats.Row

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter
)

// Re-export constants
const (
	OutcomeSuccess        = core.OutcomeSuccess
	OutcomeNotFound       = core.OutcomeNotFound
	OutcomeTransportError = core.OutcomeTransportError
	OutcomeParseError     = core.OutcomeParseError

	StatusNone   = core.StatusNone
	StatusYanked = core.StatusYanked
)

// Re-export errors
var (
	ErrNotFound            = client.ErrNotFound
	ErrRegistryUnavailable = client.ErrRegistryUnavailable
)

// Error types
type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
	ParseError     = core.ParseError
)

// New creates a metadata source for the given ecosystem.
// If baseURL is empty, the default registry URL is used.
// If c is nil, DefaultClient() is used.
//
// Supported ecosystems: "npm", "pypi"
func New(ecosystem string, baseURL string, c *Client) (Source, error) {
	return core.New(ecosystem, baseURL, c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
// - Per-registry-host circuit breakers
func DefaultClient() *Client {
	return client.NewClient(client.WithCircuitBreaker())
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// SupportedEcosystems returns all registered ecosystem types.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []string {
	return core.SupportedEcosystems()
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	return core.DefaultURL(ecosystem)
}

// Classify converts a source's (metadata, error) return into an Outcome.
func Classify(meta *PackageMetadata, err error) Outcome {
	return core.Classify(meta, err)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:npm/react) and version PURLs
// (pkg:npm/react@18.3.1).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// NewFromPURL creates a metadata source from a PURL and returns the full
// package name alongside it. A repository_url qualifier selects a
// private registry.
func NewFromPURL(p string, c *Client) (Source, string, error) {
	return core.NewFromPURL(p, c)
}

// FetchMetadataFromPURL fetches a package's published-version document
// using a PURL.
func FetchMetadataFromPURL(ctx context.Context, p string, c *Client) (*PackageMetadata, error) {
	return core.FetchMetadataFromPURL(ctx, p, c)
}

const defaultConcurrency = 15

// Check runs the whole pipeline once: concurrent lookups over the
// dependency list, then a stats pass against a single now instant.
// Rows come back in input order; dependencies that failed to fetch or
// whose range no published version satisfies are absent.
func Check(ctx context.Context, src Source, deps []Dependency) ([]StatRow, error) {
	return CheckWithConcurrency(ctx, src, deps, defaultConcurrency)
}

// CheckWithConcurrency runs the pipeline with a custom bound on
// in-flight fetches.
func CheckWithConcurrency(ctx context.Context, src Source, deps []Dependency, concurrency int) ([]StatRow, error) {
	coord := lookup.New(src, lookup.WithConcurrency(concurrency))
	coord.Lookup(deps)
	if err := coord.Wait(ctx); err != nil {
		coord.Lookup(nil) // cancel the in-flight run
		return nil, err
	}

	snap := coord.Snapshot()
	return stats.Compute(deps, snap.Outcomes, time.Now(), stats.Options{}), nil
}
