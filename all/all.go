// Package all imports all supported metadata source implementations.
//
// Import this package for its side effects to register all ecosystems:
//
//	import (
//		"github.com/git-pkgs/freshness"
//		_ "github.com/git-pkgs/freshness/all"
//	)
//
//	// Now all ecosystems are available
//	ecosystems := freshness.SupportedEcosystems()
//	// ["npm", "pypi"]
package all

import (
	_ "github.com/git-pkgs/freshness/internal/npm"
	_ "github.com/git-pkgs/freshness/internal/pypi"
)
