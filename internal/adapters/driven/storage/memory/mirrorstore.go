package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// Ensure MirrorStore implements the interface.
var _ driven.MirrorStore = (*MirrorStore)(nil)

// MirrorStore is an in-memory implementation of driven.MirrorStore.
// It is used with --no-state and in tests.
type MirrorStore struct {
	mu      sync.RWMutex
	mirrors map[string]domain.MirrorRecord
	runs    map[string]domain.RunReport
}

// NewMirrorStore creates a new in-memory mirror store.
func NewMirrorStore() *MirrorStore {
	return &MirrorStore{
		mirrors: make(map[string]domain.MirrorRecord),
		runs:    make(map[string]domain.RunReport),
	}
}

// GetMirror retrieves the record of a clone directory.
func (s *MirrorStore) GetMirror(_ context.Context, path string) (*domain.MirrorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.mirrors[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// SaveMirror stores or replaces a record.
func (s *MirrorStore) SaveMirror(_ context.Context, rec domain.MirrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirrors[rec.Path] = rec
	return nil
}

// ListMirrors returns all records ordered by path.
func (s *MirrorStore) ListMirrors(_ context.Context) ([]domain.MirrorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MirrorRecord, 0, len(s.mirrors))
	for _, rec := range s.mirrors {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SaveRun stores or replaces a run report.
func (s *MirrorStore) SaveRun(_ context.Context, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.Failures = append([]error(nil), report.Failures...)
	s.runs[report.RunID] = report
	return nil
}

// LastRun returns the most recently started run.
func (s *MirrorStore) LastRun(_ context.Context) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.RunReport
	for _, r := range s.runs {
		if last == nil || r.StartedAt.After(last.StartedAt) {
			last = &r
		}
	}
	if last == nil {
		return nil, domain.ErrNotFound
	}
	return last, nil
}

// Close is a no-op.
func (s *MirrorStore) Close() error {
	return nil
}
