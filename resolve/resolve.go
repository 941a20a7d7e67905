// Package resolve selects reference versions from a package's published
// version set: the highest version satisfying a requested range, and the
// package's latest version under a configurable policy.
//
// Everything here is a pure computation over already-fetched metadata;
// there is no I/O.
package resolve

import (
	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/freshness/internal/core"
)

// LatestPolicy selects how the "latest" reference version is chosen when
// a registry does or does not publish a latest tag.
type LatestPolicy string

const (
	// DistTagThenMax uses the registry's latest tag, falling back to the
	// maximum semantic version present. The default.
	DistTagThenMax LatestPolicy = "dist-tag-then-max"
	// DistTagOnly trusts only the registry's latest tag; packages
	// without one resolve to nothing.
	DistTagOnly LatestPolicy = "dist-tag-only"
	// MaxVersion ignores dist-tags and always picks the maximum
	// semantic version present.
	MaxVersion LatestPolicy = "max-version"
)

// MaxSatisfying returns the highest published version whose semantic
// version satisfies the requested range (comparators, hyphen ranges,
// ^/~ prefixes, wildcards). Yanked versions, version strings that are
// not valid semver, and versions the registry reported no publish
// timestamp for are ignored: a version without a timestamp has no
// computable age.
//
// The second return is false when no version satisfies the range or the
// range itself is unparseable: a resolution miss, never an error.
// The result does not depend on the order of the input set.
func MaxSatisfying(versions []core.PublishedVersion, rangeStr string) (core.PublishedVersion, bool) {
	constraint, err := semver.NewConstraint(rangeStr)
	if err != nil {
		return core.PublishedVersion{}, false
	}

	var (
		best       core.PublishedVersion
		bestParsed *semver.Version
	)
	for _, pv := range versions {
		if pv.Status != core.StatusNone || pv.PublishedAt.IsZero() {
			continue
		}
		v, err := semver.NewVersion(pv.Version)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if bestParsed == nil || v.GreaterThan(bestParsed) {
			best = pv
			bestParsed = v
		}
	}

	if bestParsed == nil {
		return core.PublishedVersion{}, false
	}
	return best, true
}

// Latest returns the package's latest published version under the given
// policy. An empty policy means DistTagThenMax.
func Latest(meta *core.PackageMetadata, policy LatestPolicy) (core.PublishedVersion, bool) {
	if meta == nil {
		return core.PublishedVersion{}, false
	}
	if policy == "" {
		policy = DistTagThenMax
	}

	if policy != MaxVersion && meta.Latest != "" {
		if pv := meta.Version(meta.Latest); pv != nil && pv.Status == core.StatusNone && !pv.PublishedAt.IsZero() {
			return *pv, true
		}
	}
	if policy == DistTagOnly {
		return core.PublishedVersion{}, false
	}

	return maxVersion(meta.Versions)
}

// maxVersion picks the maximum semantic version in the set, preferring
// stable releases: pre-releases are considered only when the set has no
// stable version at all (pre-release-only packages).
func maxVersion(versions []core.PublishedVersion) (core.PublishedVersion, bool) {
	var (
		bestStable, bestAny             core.PublishedVersion
		bestStableParsed, bestAnyParsed *semver.Version
	)
	for _, pv := range versions {
		if pv.Status != core.StatusNone || pv.PublishedAt.IsZero() {
			continue
		}
		v, err := semver.NewVersion(pv.Version)
		if err != nil {
			continue
		}
		if bestAnyParsed == nil || v.GreaterThan(bestAnyParsed) {
			bestAny = pv
			bestAnyParsed = v
		}
		if v.Prerelease() == "" && (bestStableParsed == nil || v.GreaterThan(bestStableParsed)) {
			bestStable = pv
			bestStableParsed = v
		}
	}

	if bestStableParsed != nil {
		return bestStable, true
	}
	if bestAnyParsed != nil {
		return bestAny, true
	}
	return core.PublishedVersion{}, false
}
