package driven

import (
	"context"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

// MirrorStore is the ledger of local mirrors and runs.
type MirrorStore interface {
	// GetMirror returns the record for a clone directory.
	// Returns domain.ErrNotFound if the directory was never recorded.
	GetMirror(ctx context.Context, path string) (*domain.MirrorRecord, error)

	// SaveMirror stores or replaces the record for rec.Path.
	SaveMirror(ctx context.Context, rec domain.MirrorRecord) error

	// ListMirrors returns all records ordered by path.
	ListMirrors(ctx context.Context) ([]domain.MirrorRecord, error)

	// SaveRun stores or replaces a run report.
	SaveRun(ctx context.Context, report domain.RunReport) error

	// LastRun returns the most recently started run.
	// Returns domain.ErrNotFound if there is none.
	LastRun(ctx context.Context) (*domain.RunReport, error)

	// Close releases the store.
	Close() error
}
