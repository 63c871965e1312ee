// Package sqlite provides the SQLite-backed mirror ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. The ledger records every local mirror
// directory with the entity and clone URL it was written for, and a report for
// every run.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// The database lives inside the backup root at .github-backup/state.db, so a
// backup directory carries its own history.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
