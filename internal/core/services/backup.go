package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/core/ports/driving"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// Ensure BackupService implements the interface.
var _ driving.BackupService = (*BackupService)(nil)

// BackupService runs a complete backup of one account.
type BackupService struct {
	opts    domain.BackupOptions
	creds   domain.Credentials
	factory driven.HostingFactory
	git     driven.GitRunner
	fs      driven.BackupFS
	ledger  driven.MirrorStore
	policy  RetryPolicy

	now   func() time.Time
	newID func() string
}

// NewBackupService creates a backup service. ledger may be nil, in which
// case no state is recorded.
func NewBackupService(
	opts domain.BackupOptions,
	creds domain.Credentials,
	factory driven.HostingFactory,
	git driven.GitRunner,
	fs driven.BackupFS,
	ledger driven.MirrorStore,
) *BackupService {
	return &BackupService{
		opts:    opts,
		creds:   creds,
		factory: factory,
		git:     git,
		fs:      fs,
		ledger:  ledger,
		policy:  DefaultRetryPolicy(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run performs the backup. Failed mirrors are counted in the report and do
// not fail the run; API, filesystem and integrity errors do.
func (s *BackupService) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     s.newID(),
		Status:    domain.RunRunning,
		StartedAt: s.now().UTC(),
	}

	err := s.run(ctx, report)

	report.FinishedAt = s.now().UTC()
	report.Status = domain.RunSucceeded
	if err != nil {
		report.Status = domain.RunFailed
	}
	s.saveRun(report)
	return report, err
}

func (s *BackupService) run(ctx context.Context, report *domain.RunReport) error {
	opts := s.opts
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return err
	}

	if err := s.fs.EnsureDir(opts.BackupDir); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	sess, err := NewAuthenticator(s.factory, s.policy).Connect(ctx, s.creds, &opts)
	if err != nil {
		return err
	}
	report.Account = sess.Account.Login
	s.saveRun(report)

	if opts.Include.Keys && !sess.Auth.Authorized {
		logger.Info("Cannot back up keys without an authorized account, ignoring...")
		opts.Include.Keys = false
	}

	w := &backupWorker{
		opts:     &opts,
		report:   report,
		engine:   NewMirrorEngine(s.git, s.fs, s.ledger, &opts, sess.Auth, report.RunID),
		archiver: NewArchiver(sess.API, sess.Gate, s.fs, &opts, sess.Auth),
	}
	enum := NewEnumerator(sess.API, sess.Gate)

	if opts.Include.Account {
		if err := w.archiver.ArchiveAccount(ctx, sess.Account); err != nil {
			return fmt.Errorf("back up account %s: %w", sess.Account.Login, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	if opts.Include.Gists {
		logger.Section("Gists")
		if err := dispatch(gctx, g, enum.Gists(gctx, sess.Account), w.gist); err != nil {
			return errors.Join(err, g.Wait())
		}
	}

	if opts.Include.StarredGists {
		if sess.Account.Kind == domain.AccountAuthenticatedUser {
			logger.Section("Starred gists")
			if err := dispatch(gctx, g, enum.StarredGists(gctx), w.gist); err != nil {
				return errors.Join(err, g.Wait())
			}
		} else {
			logger.Info("Starred gists are only available for the authenticated user, ignoring...")
		}
	}

	if !opts.SkipRepos {
		logger.Section("Repositories")
		filter := driven.RepoFilter{Visibility: opts.Visibility, Affiliation: opts.Affiliation}
		repos := enum.Repositories(gctx, sess.Auth, sess.Account, filter)
		if err := dispatch(gctx, g, repos, w.repository); err != nil {
			return errors.Join(err, g.Wait())
		}
	}

	return g.Wait()
}

// dispatch hands every entity of seq to fn on the worker group. It stops
// early when the group context is cancelled by a fatal error.
func dispatch[T any](ctx context.Context, g *errgroup.Group, seq iter.Seq2[T, error], fn func(context.Context, T) error) error {
	for entity, err := range seq {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		g.Go(func() error { return fn(ctx, entity) })
	}
	return nil
}

func (s *BackupService) saveRun(report *domain.RunReport) {
	if s.ledger == nil {
		return
	}
	// The run may have been cancelled; the record is still written.
	if err := s.ledger.SaveRun(context.Background(), *report); err != nil {
		logger.Warn("Failed to record run %s: %v", report.RunID, err)
	}
}

// backupWorker processes single entities. It is shared by all workers.
type backupWorker struct {
	opts     *domain.BackupOptions
	engine   *MirrorEngine
	archiver *Archiver

	mu     sync.Mutex
	report *domain.RunReport
}

func (w *backupWorker) repository(ctx context.Context, repo *domain.Repository) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ok, reason := Select(repo, w.opts); !ok {
		logger.Debug("Skipping %s (%s)", repo.FullName, reason)
		w.record(domain.ActionSkipped, nil)
		return nil
	}

	owned, err := w.mirror(ctx, w.engine.Mirror, repo)
	if err != nil || !owned {
		return err
	}
	if w.opts.Include.Wiki && repo.HasWiki() {
		if _, err := w.mirror(ctx, w.wiki, repo); err != nil {
			return err
		}
	}

	if err := w.archiver.ArchiveRepository(ctx, repo); err != nil {
		return fmt.Errorf("back up %s: %w", repo.FullName, err)
	}
	return nil
}

func (w *backupWorker) wiki(ctx context.Context, e domain.Entity) (domain.MirrorAction, error) {
	return w.engine.MirrorWiki(ctx, e.(*domain.Repository))
}

func (w *backupWorker) gist(ctx context.Context, gist *domain.Gist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	owned, err := w.mirror(ctx, w.engine.Mirror, gist)
	if err != nil || !owned {
		return err
	}
	if err := skipMissing(w.archiver.ArchiveGist(ctx, gist), "gist "+gist.GistID); err != nil {
		return fmt.Errorf("back up gist %s: %w", gist.GistID, err)
	}
	return nil
}

// mirror runs one engine step. Mirror failures are logged and counted; only
// cancellation is returned. owned is false when the directory belongs to
// another entity in this run, in which case nothing else may be written
// for entity.
func (w *backupWorker) mirror(
	ctx context.Context,
	step func(context.Context, domain.Entity) (domain.MirrorAction, error),
	entity domain.Entity,
) (owned bool, err error) {
	action, err := step(ctx, entity)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		logger.Error("%v", err)
	}
	w.record(action, err)
	return !errors.Is(err, domain.ErrPathClaimed), nil
}

func (w *backupWorker) record(action domain.MirrorAction, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.report.Record(action, err)
}

// RateLimitReporter reports the quota of a client built from creds.
type RateLimitReporter struct {
	factory driven.HostingFactory
	creds   domain.Credentials
}

var _ driving.RateLimitService = (*RateLimitReporter)(nil)

// NewRateLimitReporter creates a reporter.
func NewRateLimitReporter(factory driven.HostingFactory, creds domain.Credentials) *RateLimitReporter {
	return &RateLimitReporter{factory: factory, creds: creds}
}

// RateLimits returns the current quota.
func (r *RateLimitReporter) RateLimits(ctx context.Context) (*domain.RateLimits, error) {
	api, err := r.factory.New(ctx, r.creds)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return api.RateLimits(ctx)
}
