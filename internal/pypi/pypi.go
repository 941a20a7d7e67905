// Package pypi provides a metadata source for pypi.org.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/freshness/internal/core"
)

const (
	DefaultURL = "https://pypi.org"
	ecosystem  = "pypi"
)

func init() {
	core.Register(ecosystem, DefaultURL, func(baseURL string, client *core.Client) core.Source {
		return New(baseURL, client)
	})
}

type Source struct {
	baseURL string
	client  *core.Client
}

func New(baseURL string, client *core.Client) *Source {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Source{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (s *Source) Ecosystem() string {
	return ecosystem
}

type packageResponse struct {
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type releaseFile struct {
	UploadTime string `json:"upload_time_iso_8601"`
	Yanked     bool   `json:"yanked"`
}

// FetchMetadata retrieves the published-version document for a package.
// PyPI has no dist-tags; info.version plays the role of the latest tag.
func (s *Source) FetchMetadata(ctx context.Context, name string) (*core.PackageMetadata, error) {
	reqURL := fmt.Sprintf("%s/pypi/%s/json", s.baseURL, normalizeName(name))

	var resp packageResponse
	if err := s.client.GetJSON(ctx, reqURL, &resp); err != nil {
		if httpErr, ok := err.(*core.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		var decodeErr *core.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, &core.ParseError{Ecosystem: ecosystem, Name: name, Detail: decodeErr.Err.Error()}
		}
		return nil, err
	}

	if len(resp.Releases) == 0 {
		return nil, &core.ParseError{Ecosystem: ecosystem, Name: name, Detail: "document has no releases"}
	}

	versions := make([]core.PublishedVersion, 0, len(resp.Releases))
	for num, files := range resp.Releases {
		// A release with no files was registered but never uploaded.
		if len(files) == 0 {
			continue
		}

		// The release's publish time is the earliest file upload; a
		// release is yanked only if every file is.
		var publishedAt time.Time
		yanked := true
		for _, f := range files {
			if !f.Yanked {
				yanked = false
			}
			if t, err := time.Parse(time.RFC3339, f.UploadTime); err == nil {
				if publishedAt.IsZero() || t.Before(publishedAt) {
					publishedAt = t
				}
			}
		}

		status := core.StatusNone
		if yanked {
			status = core.StatusYanked
		}

		versions = append(versions, core.PublishedVersion{
			Version:     num,
			PublishedAt: publishedAt,
			Status:      status,
		})
	}

	if len(versions) == 0 {
		return nil, &core.ParseError{Ecosystem: ecosystem, Name: name, Detail: "document has no uploaded releases"}
	}

	distTags := map[string]string{}
	if resp.Info.Version != "" {
		distTags["latest"] = resp.Info.Version
	}

	return &core.PackageMetadata{
		Name:     strings.ToLower(coalesceString(resp.Info.Name, name)),
		Versions: versions,
		DistTags: distTags,
		Latest:   resp.Info.Version,
	}, nil
}

// normalizeName applies PEP 503 normalization: lowercase, with runs of
// ".", "-", "_" collapsed to a single "-".
func normalizeName(name string) string {
	var b strings.Builder
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '.' || r == '-' || r == '_' {
			if !prevSep {
				b.WriteByte('-')
			}
			prevSep = true
			continue
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
