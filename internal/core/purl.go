package core

import (
	"context"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with registry-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the format expected by the registry.
// For npm: "@babel/core"; PyPI packages have no namespace.
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	// packageurl-go keeps @ in the npm namespace, so
	// "@babel" + "/" + "core" = "@babel/core".
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:npm/react) and version PURLs
// (pkg:npm/react@18.3.1); the version, if present, is ignored by
// metadata fetching.
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// NewFromPURL creates a metadata source from a PURL and returns the full
// package name alongside it. If the PURL has a repository_url qualifier,
// it's used as the base URL for private registries.
func NewFromPURL(purl string, client *Client) (Source, string, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, "", err
	}

	baseURL := p.Qualifiers.Map()["repository_url"]

	src, err := New(p.Type, baseURL, client)
	if err != nil {
		return nil, "", err
	}

	return src, p.FullName(), nil
}

// FetchMetadataFromPURL fetches a package's published-version document
// using a PURL to select the ecosystem and package name.
func FetchMetadataFromPURL(ctx context.Context, purl string, client *Client) (*PackageMetadata, error) {
	src, name, err := NewFromPURL(purl, client)
	if err != nil {
		return nil, err
	}
	return src.FetchMetadata(ctx, name)
}
