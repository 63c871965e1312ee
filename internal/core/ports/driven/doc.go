// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - GitRunner: runs the git executable
//   - HostingAPI: reads repositories, gists and raw JSON from GitHub
//   - HostingFactory: builds a HostingAPI for a set of credentials
//   - BackupFS: writes documents and downloads under the backup root
//   - MirrorStore: remembers which entity owns which local directory
//
// # Optional Interfaces
//
//   - ConfigStore: defaults for CLI flags
//   - CredentialSource: the password/token file consulted by -p without a value
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
