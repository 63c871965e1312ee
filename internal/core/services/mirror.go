package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// MirrorEngine clones absent mirrors and updates present ones.
// It never deletes a directory or rewrites history.
type MirrorEngine struct {
	git    driven.GitRunner
	fs     driven.BackupFS
	ledger driven.MirrorStore
	opts   *domain.BackupOptions
	auth   domain.AuthContext
	layout domain.Layout
	runID  string
	now    func() time.Time

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	claims map[string]string
}

// NewMirrorEngine creates an engine. ledger may be nil.
func NewMirrorEngine(
	git driven.GitRunner,
	fs driven.BackupFS,
	ledger driven.MirrorStore,
	opts *domain.BackupOptions,
	auth domain.AuthContext,
	runID string,
) *MirrorEngine {
	return &MirrorEngine{
		git:    git,
		fs:     fs,
		ledger: ledger,
		opts:   opts,
		auth:   auth,
		layout: opts.Layout(),
		runID:  runID,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
		claims: make(map[string]string),
	}
}

// mirrorTarget is one directory to clone into or update.
type mirrorTarget struct {
	kind      domain.EntityKind
	id        string
	label     string
	dir       string
	url       string
	publicURL string
	meta      domain.GitMetadata
}

func (t mirrorTarget) claimKey() string {
	return string(t.kind) + ":" + t.id
}

// Mirror clones or updates the clone of entity.
func (e *MirrorEngine) Mirror(ctx context.Context, entity domain.Entity) (domain.MirrorAction, error) {
	return e.run(ctx, mirrorTarget{
		kind:      entity.Kind(),
		id:        entity.ID(),
		label:     string(entity.Kind()) + " " + entity.Name(),
		dir:       entity.LocalPath(e.layout),
		url:       entity.CloneURL(e.opts.Protocol, e.auth),
		publicURL: entity.PublicCloneURL(),
		meta:      entity.GitMetadata(),
	})
}

// MirrorWiki clones or updates the wiki of repo in the sibling wiki directory.
// The wiki carries the repository's metadata, cgit.clone-url included.
func (e *MirrorEngine) MirrorWiki(ctx context.Context, repo *domain.Repository) (domain.MirrorAction, error) {
	return e.run(ctx, mirrorTarget{
		kind:      domain.KindRepository,
		id:        repo.ID() + "/wiki",
		label:     "wiki " + repo.Name(),
		dir:       e.layout.WikiDir(repo.RepoName),
		url:       domain.WikiURL(repo.CloneURL(e.opts.Protocol, e.auth)),
		publicURL: domain.WikiURL(repo.PublicCloneURL()),
		meta:      repo.GitMetadata(),
	})
}

// State reports whether a clone exists in dir for the configured mode.
func (e *MirrorEngine) State(dir string) (domain.MirrorState, error) {
	ok, err := e.fs.Exists(domain.MarkerFile(dir, e.opts.Mirror))
	if err != nil {
		return domain.MirrorAbsent, err
	}
	if ok {
		return domain.MirrorPresent, nil
	}

	other, err := e.fs.Exists(domain.MarkerFile(dir, !e.opts.Mirror))
	if err == nil && other {
		logger.Warn("%s holds a clone of the other mode (mirror=%t); treating it as absent", dir, !e.opts.Mirror)
	}
	return domain.MirrorAbsent, nil
}

func (e *MirrorEngine) run(ctx context.Context, t mirrorTarget) (domain.MirrorAction, error) {
	if err := e.claim(t); err != nil {
		return domain.ActionFailed, err
	}

	unlock := e.lock(t.dir)
	defer unlock()

	logger.Info("Processing %s", t.label)
	e.checkLedger(ctx, t)

	action, err := e.cloneOrUpdate(ctx, t)
	if err == nil {
		e.applyMetadata(ctx, t)
	}
	e.record(ctx, t, action)
	return action, err
}

func (e *MirrorEngine) cloneOrUpdate(ctx context.Context, t mirrorTarget) (domain.MirrorAction, error) {
	state, err := e.State(t.dir)
	if err != nil {
		return domain.ActionFailed, fmt.Errorf("check %s: %w", t.dir, err)
	}

	if state == domain.MirrorAbsent {
		logger.Debug("%s does not exist, cloning", t.dir)
		if err := e.clone(ctx, t); err != nil {
			return domain.ActionFailed, fmt.Errorf("clone %s: %w", t.label, err)
		}
		return domain.ActionCloned, nil
	}

	logger.Debug("%s already exists, updating", t.dir)
	if err := e.update(ctx, t.dir); err != nil {
		return domain.ActionFailed, fmt.Errorf("update %s: %w", t.label, err)
	}
	return domain.ActionUpdated, nil
}

// clone runs in the parent directory with the base name as target.
func (e *MirrorEngine) clone(ctx context.Context, t mirrorTarget) error {
	parent := filepath.Dir(t.dir)
	if err := e.fs.EnsureDir(parent); err != nil {
		return err
	}

	args := []string{t.url, filepath.Base(t.dir)}
	if e.opts.Mirror {
		args = append([]string{"--mirror"}, args...)
	}
	return e.git.Run(ctx, "clone", args, e.opts.GitArgs, parent)
}

func (e *MirrorEngine) update(ctx context.Context, dir string) error {
	if e.opts.Mirror {
		return e.git.Run(ctx, "fetch", []string{"--prune"}, e.opts.GitArgs, dir)
	}
	return e.git.Run(ctx, "pull", nil, e.opts.GitArgs, dir)
}

// applyMetadata writes the gitweb and cgit keys. A failed write is logged
// and does not fail the mirror.
func (e *MirrorEngine) applyMetadata(ctx context.Context, t mirrorTarget) {
	var kv [][2]string
	if t.meta.Description != "" {
		kv = append(kv, [2]string{"gitweb.description", t.meta.Description})
	}
	if owner := t.meta.GitwebOwner(); owner != "" {
		kv = append(kv, [2]string{"gitweb.owner", owner})
	}
	kv = append(kv, [2]string{"cgit.name", t.meta.Name})
	if t.meta.DefaultBranch != "" {
		kv = append(kv, [2]string{"cgit.defbranch", t.meta.DefaultBranch})
	}
	if t.meta.CloneURL != "" {
		kv = append(kv, [2]string{"cgit.clone-url", t.meta.CloneURL})
	}

	for _, pair := range kv {
		if err := e.git.Run(ctx, "config", []string{"--local", pair[0], pair[1]}, nil, t.dir); err != nil {
			logger.Warn("Failed to set %s in %s: %v", pair[0], t.dir, err)
		}
	}
}

// claim registers t.dir for t's entity. A directory belongs to one entity per run.
func (e *MirrorEngine) claim(t mirrorTarget) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := t.claimKey()
	if owner, ok := e.claims[t.dir]; ok && owner != key {
		return fmt.Errorf("%w: %s is used by %s, skipping %s", domain.ErrPathClaimed, t.dir, owner, key)
	}
	e.claims[t.dir] = key
	return nil
}

func (e *MirrorEngine) lock(dir string) func() {
	e.mu.Lock()
	l, ok := e.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		e.locks[dir] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// checkLedger warns when the directory was last written for another entity
// or from another URL. Nothing is changed on disk.
func (e *MirrorEngine) checkLedger(ctx context.Context, t mirrorTarget) {
	if e.ledger == nil {
		return
	}
	rec, err := e.ledger.GetMirror(ctx, t.dir)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("Failed to read mirror record for %s: %v", t.dir, err)
		return
	}
	if rec.EntityID != t.id || rec.EntityKind != t.kind {
		logger.Warn("%s was last written for %s %s, now used for %s %s",
			t.dir, rec.EntityKind, rec.EntityID, t.kind, t.id)
	} else if rec.CloneURL != t.publicURL {
		logger.Warn("%s was cloned from %s, the remote now reports %s; the local remote is left unchanged",
			t.dir, rec.CloneURL, t.publicURL)
	}
}

func (e *MirrorEngine) record(ctx context.Context, t mirrorTarget, action domain.MirrorAction) {
	if e.ledger == nil {
		return
	}
	rec := domain.MirrorRecord{
		Path:       t.dir,
		EntityID:   t.id,
		EntityKind: t.kind,
		Name:       t.label,
		CloneURL:   t.publicURL,
		LastAction: action,
		LastRunID:  e.runID,
		UpdatedAt:  e.now().UTC(),
	}
	if err := e.ledger.SaveMirror(ctx, rec); err != nil {
		logger.Warn("Failed to record mirror %s: %v", t.dir, err)
	}
}
