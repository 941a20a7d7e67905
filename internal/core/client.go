package core

import (
	"github.com/git-pkgs/freshness/client"
)

// Type aliases for ecosystem implementations.
type (
	RateLimiter   = client.RateLimiter
	Client        = client.Client
	Option        = client.Option
	HTTPError     = client.HTTPError
	NotFoundError = client.NotFoundError
	DecodeError   = client.DecodeError
)

// Function aliases for ecosystem implementations.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
)
