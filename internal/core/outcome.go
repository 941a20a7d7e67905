package core

import (
	"errors"

	"github.com/git-pkgs/freshness/client"
)

// OutcomeKind tags the result of a single metadata fetch.
type OutcomeKind string

const (
	// OutcomeSuccess means the registry returned a usable document.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeNotFound means the registry does not know the package.
	OutcomeNotFound OutcomeKind = "not_found"
	// OutcomeTransportError covers network failures, timeouts, and
	// non-2xx responses other than 404.
	OutcomeTransportError OutcomeKind = "transport_error"
	// OutcomeParseError means the response did not match the registry's
	// documented schema.
	OutcomeParseError OutcomeKind = "parse_error"
)

// Outcome is the terminal result of fetching one package's metadata
// within a single lookup run. Metadata is non-nil iff Kind is
// OutcomeSuccess; Err is nil iff Kind is OutcomeSuccess.
type Outcome struct {
	Kind     OutcomeKind
	Metadata *PackageMetadata
	Err      error
}

// OK reports whether the outcome carries metadata.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Classify converts a source's (metadata, error) return into a tagged
// Outcome. A fetch never aborts a run; every failure mode maps to one of
// the three failure kinds.
func Classify(meta *PackageMetadata, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Metadata: meta}
	}
	if errors.Is(err, client.ErrNotFound) {
		return Outcome{Kind: OutcomeNotFound, Err: err}
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return Outcome{Kind: OutcomeParseError, Err: err}
	}
	return Outcome{Kind: OutcomeTransportError, Err: err}
}
