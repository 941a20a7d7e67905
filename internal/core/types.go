// Package core provides shared types and the metadata source system.
package core

import "time"

// Dependency is one entry from a project manifest: a package name, the
// version range the manifest allows, and whether it is a dev dependency.
type Dependency struct {
	Name           string
	RequestedRange string
	Dev            bool
}

// PublishedVersion is a single version string reported by a registry
// together with its publish timestamp. A zero PublishedAt means the
// registry did not report a timestamp for that version.
type PublishedVersion struct {
	Version     string
	PublishedAt time.Time
	Status      VersionStatus
}

// VersionStatus represents the status of a published version.
type VersionStatus string

const (
	StatusNone   VersionStatus = ""
	StatusYanked VersionStatus = "yanked"
)

// PackageMetadata is the per-package document produced by a metadata
// source: every published version plus the registry's dist-tags.
type PackageMetadata struct {
	Name     string
	Versions []PublishedVersion
	DistTags map[string]string
	// Latest is the registry's own "latest" tag, empty if the registry
	// does not publish one. Fallback selection is a resolve policy.
	Latest string
}

// Version returns the published version with the given version string,
// or nil if the package has no such version.
func (m *PackageMetadata) Version(v string) *PublishedVersion {
	for i := range m.Versions {
		if m.Versions[i].Version == v {
			return &m.Versions[i]
		}
	}
	return nil
}

// Progress tracks a lookup run: how many distinct packages it covers and
// how many have a recorded outcome. Fulfilled counts failures too, so a
// settled run always reaches Fulfilled == Total.
type Progress struct {
	Total     int
	Fulfilled int
}

// Settled reports whether every package in the run has an outcome.
func (p Progress) Settled() bool {
	return p.Fulfilled == p.Total
}
