// Package stats joins manifest dependencies with their lookup outcomes
// and computes how far each allowed version lags behind the latest
// release, measured in elapsed seconds.
package stats

import (
	"time"

	"github.com/git-pkgs/freshness/internal/core"
	"github.com/git-pkgs/freshness/resolve"
)

// Row is the per-dependency result of a freshness pass.
type Row struct {
	Package        string
	Dev            bool
	RequestedRange string

	// The highest published version the manifest's range allows.
	MaxSatisfiedVersion     string
	MaxSatisfiedPublishedAt time.Time
	MaxSatisfiedAge         int64 // seconds

	// The package's latest published version.
	LatestVersion     string
	LatestPublishedAt time.Time
	LatestAge         int64 // seconds
}

// AgeSeconds returns now minus publishedAt in whole seconds, clamped at
// zero. Publish timestamps are in the past by construction; a negative
// difference is clock skew, not a distinct error.
func AgeSeconds(publishedAt, now time.Time) int64 {
	age := int64(now.Sub(publishedAt) / time.Second)
	if age < 0 {
		return 0
	}
	return age
}

// Options configures a stats pass.
type Options struct {
	// LatestPolicy selects how the latest reference version is resolved.
	// Empty means resolve.DistTagThenMax.
	LatestPolicy resolve.LatestPolicy
}

// Compute produces one Row per resolvable dependency, in input order.
// All ages in one pass are computed against the same now instant.
//
// A dependency whose outcome is not a success, or whose range no
// published version satisfies, is dropped from the output: the row count
// falling short of the dependency count is the caller's signal of
// partial failure.
func Compute(deps []core.Dependency, outcomes map[string]core.Outcome, now time.Time, opts Options) []Row {
	rows := make([]Row, 0, len(deps))
	for _, dep := range deps {
		outcome, ok := outcomes[dep.Name]
		if !ok || !outcome.OK() {
			continue
		}

		satisfied, ok := resolve.MaxSatisfying(outcome.Metadata.Versions, dep.RequestedRange)
		if !ok {
			continue
		}
		latest, ok := resolve.Latest(outcome.Metadata, opts.LatestPolicy)
		if !ok {
			continue
		}

		rows = append(rows, Row{
			Package:                 dep.Name,
			Dev:                     dep.Dev,
			RequestedRange:          dep.RequestedRange,
			MaxSatisfiedVersion:     satisfied.Version,
			MaxSatisfiedPublishedAt: satisfied.PublishedAt,
			MaxSatisfiedAge:         AgeSeconds(satisfied.PublishedAt, now),
			LatestVersion:           latest.Version,
			LatestPublishedAt:       latest.PublishedAt,
			LatestAge:               AgeSeconds(latest.PublishedAt, now),
		})
	}
	return rows
}
