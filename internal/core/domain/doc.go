// Package domain defines the core business entities for github-backup.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entity: a repository or gist that is mirrored with git
//   - Layout: the deterministic mapping from entities to local directories
//   - BackupOptions: the run configuration, resolved once and read-only after
//   - AuthContext: the authorization state of a run
//   - Document: a raw JSON object returned by the hosting API
//   - RateLimits: per-category quota state
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
