// Package npm provides a metadata source for npmjs.com.
package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/git-pkgs/freshness/internal/core"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	ecosystem  = "npm"
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

// packageResponse is the npm per-package metadata document. Only the
// fields the freshness pipeline reads are declared; the full document
// carries much more.
type packageResponse struct {
	ID       string                 `json:"_id"`
	Name     string                 `json:"name"`
	Versions map[string]versionInfo `json:"versions"`
	Time     map[string]string      `json:"time"`
	DistTags map[string]string      `json:"dist-tags"`
}

type versionInfo struct {
	Version    string `json:"version"`
	Deprecated string `json:"deprecated"`
}

// FetchMetadata retrieves the published-version document for a package.
func (s *Source) FetchMetadata(ctx context.Context, name string) (*core.PackageMetadata, error) {
	escapedName := url.PathEscape(name)
	reqURL := fmt.Sprintf("%s/%s", s.baseURL, escapedName)

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

	versions := make([]core.PublishedVersion, 0, len(resp.Versions))
	for num := range resp.Versions {
		var publishedAt time.Time
		if timeStr, ok := resp.Time[num]; ok {
			publishedAt, _ = time.Parse(time.RFC3339, timeStr)
		}
		versions = append(versions, core.PublishedVersion{
			Version:     num,
			PublishedAt: publishedAt,
		})
	}

	// Abbreviated documents omit the versions object but keep the time
	// map; "created" and "modified" are document-level entries, not
	// versions.
	if len(versions) == 0 {
		for num, timeStr := range resp.Time {
			if num == "created" || num == "modified" {
				continue
			}
			publishedAt, _ := time.Parse(time.RFC3339, timeStr)
			versions = append(versions, core.PublishedVersion{
				Version:     num,
				PublishedAt: publishedAt,
			})
		}
	}

	if len(versions) == 0 {
		return nil, &core.ParseError{Ecosystem: ecosystem, Name: name, Detail: "document has no versions"}
	}

	return &core.PackageMetadata{
		Name:     coalesceString(resp.ID, resp.Name, name),
		Versions: versions,
		DistTags: resp.DistTags,
		Latest:   resp.DistTags["latest"],
	}, nil
}

func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
