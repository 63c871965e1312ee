package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/github-backup/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// FileName is the database file name inside the state directory.
const FileName = "state.db"

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is the SQLite mirror ledger.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.MirrorStore = (*Store)(nil)

// NewStore opens or creates the ledger in stateDir.
func NewStore(stateDir string) (*Store, error) {
	if stateDir == "" {
		return nil, fmt.Errorf("%w: empty state directory", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, FileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Mirrors ====================

// GetMirror returns the record for a clone directory.
func (s *Store) GetMirror(ctx context.Context, path string) (*domain.MirrorRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, entity_id, entity_kind, name, clone_url, last_action, last_run_id, updated_at
		FROM mirrors WHERE path = ?
	`, path)

	rec, err := scanMirror(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying mirror: %w", err)
	}
	return rec, nil
}

// SaveMirror stores or replaces the record for rec.Path.
func (s *Store) SaveMirror(ctx context.Context, rec domain.MirrorRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mirrors (path, entity_id, entity_kind, name, clone_url, last_action, last_run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			entity_id = excluded.entity_id,
			entity_kind = excluded.entity_kind,
			name = excluded.name,
			clone_url = excluded.clone_url,
			last_action = excluded.last_action,
			last_run_id = excluded.last_run_id,
			updated_at = excluded.updated_at
	`,
		rec.Path,
		rec.EntityID,
		string(rec.EntityKind),
		rec.Name,
		rec.CloneURL,
		string(rec.LastAction),
		rec.LastRunID,
		rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving mirror: %w", err)
	}
	return nil
}

// ListMirrors returns all records ordered by path.
func (s *Store) ListMirrors(ctx context.Context) ([]domain.MirrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, entity_id, entity_kind, name, clone_url, last_action, last_run_id, updated_at
		FROM mirrors ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying mirrors: %w", err)
	}
	defer rows.Close()

	var records []domain.MirrorRecord
	for rows.Next() {
		rec, err := scanMirror(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mirror: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMirror(row scanner) (*domain.MirrorRecord, error) {
	var (
		rec            domain.MirrorRecord
		kind, action   string
		updatedAtMilli int64
	)
	err := row.Scan(&rec.Path, &rec.EntityID, &kind, &rec.Name, &rec.CloneURL, &action, &rec.LastRunID, &updatedAtMilli)
	if err != nil {
		return nil, err
	}
	rec.EntityKind = domain.EntityKind(kind)
	rec.LastAction = domain.MirrorAction(action)
	rec.UpdatedAt = time.UnixMilli(updatedAtMilli)
	return &rec, nil
}

// ==================== Runs ====================

// SaveRun stores or replaces a run report. Failures are kept as messages.
func (s *Store) SaveRun(ctx context.Context, report domain.RunReport) error {
	failures := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, f.Error())
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	var finishedAt sql.NullInt64
	if !report.FinishedAt.IsZero() {
		finishedAt = sql.NullInt64{Int64: report.FinishedAt.UnixMilli(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, account, status, started_at, finished_at, cloned, updated, failed, skipped, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			account = excluded.account,
			status = excluded.status,
			finished_at = excluded.finished_at,
			cloned = excluded.cloned,
			updated = excluded.updated,
			failed = excluded.failed,
			skipped = excluded.skipped,
			failures = excluded.failures
	`,
		report.RunID,
		report.Account,
		string(report.Status),
		report.StartedAt.UnixMilli(),
		finishedAt,
		report.Cloned,
		report.Updated,
		report.Failed,
		report.Skipped,
		string(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *Store) LastRun(ctx context.Context) (*domain.RunReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, account, status, started_at, finished_at, cloned, updated, failed, skipped, failures
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`)

	var (
		report         domain.RunReport
		status         string
		startedAtMilli int64
		finishedAt     sql.NullInt64
		failuresJSON   sql.NullString
	)
	err := row.Scan(&report.RunID, &report.Account, &status, &startedAtMilli, &finishedAt,
		&report.Cloned, &report.Updated, &report.Failed, &report.Skipped, &failuresJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	report.Status = domain.RunStatus(status)
	report.StartedAt = time.UnixMilli(startedAtMilli)
	if finishedAt.Valid {
		report.FinishedAt = time.UnixMilli(finishedAt.Int64)
	}

	if failuresJSON.Valid && failuresJSON.String != jsonNull {
		var failures []string
		if err := json.Unmarshal([]byte(failuresJSON.String), &failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
		for _, f := range failures {
			report.Failures = append(report.Failures, errors.New(f))
		}
	}
	return &report, nil
}
