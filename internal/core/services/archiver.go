package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// Archiver writes issues, pull requests, releases, gists and account data
// as JSON documents next to the mirrors.
type Archiver struct {
	api    driven.HostingAPI
	gate   *RateLimitGate
	fs     driven.BackupFS
	opts   *domain.BackupOptions
	auth   domain.AuthContext
	layout domain.Layout
}

// NewArchiver creates an archiver.
func NewArchiver(
	api driven.HostingAPI,
	gate *RateLimitGate,
	fs driven.BackupFS,
	opts *domain.BackupOptions,
	auth domain.AuthContext,
) *Archiver {
	return &Archiver{api: api, gate: gate, fs: fs, opts: opts, auth: auth, layout: opts.Layout()}
}

// ArchiveRepository writes the releases, issues and pull requests of repo,
// as selected by the options.
func (a *Archiver) ArchiveRepository(ctx context.Context, repo *domain.Repository) error {
	dir := a.layout.ProjectDir(repo.RepoName)
	owner, name := repo.OwnerLogin(), repo.RepoName

	if a.opts.Include.Releases {
		if err := skipMissing(a.archiveReleases(ctx, repo, dir), "releases of "+repo.FullName); err != nil {
			return err
		}
	}

	if a.opts.Include.Issues {
		logger.Info("    Getting issues for repo %s", name)
		issues, err := a.list(ctx, "list issues", fmt.Sprintf("repos/%s/%s/issues?state=all", owner, name))
		if err == nil {
			err = a.archiveIssues(ctx, issues, dir, name)
		}
		if err := skipMissing(err, "issues of "+repo.FullName); err != nil {
			return err
		}
	}

	if a.opts.Include.Pulls {
		logger.Info("    Getting pull requests for repo %s", name)
		pulls, err := a.list(ctx, "list pull requests", fmt.Sprintf("repos/%s/%s/pulls?state=all", owner, name))
		if err == nil {
			err = a.archivePulls(ctx, pulls, dir, name)
		}
		if err := skipMissing(err, "pull requests of "+repo.FullName); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveGist writes the full gist document to gists/<id>.json.
func (a *Archiver) ArchiveGist(ctx context.Context, gist *domain.Gist) error {
	doc, err := a.fetch(ctx, "get gist", "gists/"+url.PathEscape(gist.GistID))
	if err != nil {
		return fmt.Errorf("get gist %s: %w", gist.GistID, err)
	}
	return a.write(filepath.Join(a.layout.GistsDir(), gist.GistID+".json"), doc)
}

// ArchiveAccount writes the account document and the selected account collections.
func (a *Archiver) ArchiveAccount(ctx context.Context, account *domain.Account) error {
	logger.Info("Processing account: %s", account.Login)
	dir := a.layout.AccountDir()

	if err := a.write(filepath.Join(dir, "account.json"), account.Raw); err != nil {
		return err
	}

	self := account.Kind == domain.AccountAuthenticatedUser
	if a.auth.Authorized && self {
		emails, err := a.list(ctx, "list emails", "user/emails")
		if err != nil {
			return fmt.Errorf("list emails: %w", err)
		}
		if err := a.write(filepath.Join(dir, "emails.json"), emails); err != nil {
			return err
		}
	}

	collections := []struct {
		enabled bool
		label   string
		key     string
		file    string
	}{
		{a.opts.Include.Starred, "starred repository list", "starred_url", "starred.json"},
		{a.opts.Include.Watched, "watched repository list", "subscriptions_url", "watched.json"},
		{a.opts.Include.Followers, "followers list", "followers_url", "followers.json"},
		{a.opts.Include.Following, "following list", "following_url", "following.json"},
	}
	for _, c := range collections {
		if !c.enabled {
			continue
		}
		u := account.URL(c.key)
		if u == "" {
			logger.Warn("Account %s has no %s, skipping %s", account.Login, c.key, c.label)
			continue
		}
		logger.Info("    Getting %s", c.label)
		docs, err := a.list(ctx, "list "+c.label, u)
		if err != nil {
			return fmt.Errorf("list %s: %w", c.label, err)
		}
		if err := a.write(filepath.Join(dir, c.file), docs); err != nil {
			return err
		}
	}

	if a.opts.Include.Keys && a.auth.Authorized && self {
		logger.Info("    Getting keys")
		if err := a.archiveKeys(ctx, dir); err != nil {
			return err
		}
	}

	if a.opts.Include.Issues {
		logger.Info("    Getting issues for user %s", account.Login)
		issues, err := a.search(ctx, fmt.Sprintf("author:%s type:issue", account.Login))
		if err != nil {
			return err
		}
		if err := a.archiveIssues(ctx, issues, dir, ""); err != nil {
			return err
		}
	}

	if a.opts.Include.Pulls {
		logger.Info("    Getting pull requests for user %s", account.Login)
		pulls, err := a.search(ctx, fmt.Sprintf("author:%s type:pr", account.Login))
		if err != nil {
			return err
		}
		if err := a.archivePulls(ctx, pulls, dir, ""); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archiver) archiveKeys(ctx context.Context, dir string) error {
	keys, err := a.list(ctx, "list keys", "user/keys")
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		title := key.String("title")
		if title == "" {
			title = key.ID()
		}
		if err := a.write(filepath.Join(dir, "keys", safeName(title)+".json"), key); err != nil {
			return err
		}
	}
	return nil
}

// archiveIssues writes issues/<project>:<number>.json under dir. Pull
// requests listed among issues are skipped.
func (a *Archiver) archiveIssues(ctx context.Context, issues []domain.Document, dir, project string) error {
	for _, issue := range issues {
		if _, isPull := issue["pull_request"]; isPull {
			continue
		}
		name := projectOf(issue, project)
		number := issue.Int64("number")
		logger.Info("     * %s[%d]: %s", name, number, issue.String("title"))

		data := issue.Clone()
		if a.opts.Include.IssueComments && issue.Int("comments") > 0 {
			if err := a.attach(ctx, data, "comment_data", "list issue comments", issue.String("comments_url")); err != nil {
				return err
			}
		}
		if a.opts.Include.IssueEvents {
			if err := a.attach(ctx, data, "event_data", "list issue events", issue.String("events_url")); err != nil {
				return err
			}
		}

		file := filepath.Join(dir, "issues", fmt.Sprintf("%s:%d.json", name, number))
		if err := a.write(file, data); err != nil {
			return err
		}
	}
	return nil
}

// archivePulls writes pull-requests/<project>:<number>.json under dir.
// Listings and search results are replaced by the full pull request.
func (a *Archiver) archivePulls(ctx context.Context, pulls []domain.Document, dir, project string) error {
	for _, item := range pulls {
		u := item.String("url")
		if ref := item.Object("pull_request"); ref != nil {
			u = ref.String("url")
		}
		pull, err := a.fetch(ctx, "get pull request", u)
		if err != nil {
			return fmt.Errorf("get pull request %s: %w", u, err)
		}

		name := projectOf(pull, project)
		number := pull.Int64("number")
		logger.Info("     * %s[%d]: %s", name, number, pull.String("title"))

		data := pull.Clone()
		if a.opts.Include.PullComments && pull.Int("review_comments") > 0 {
			if err := a.attach(ctx, data, "comment_data", "list review comments", pull.String("review_comments_url")); err != nil {
				return err
			}
		}
		if a.opts.Include.PullCommits && pull.Int("commits") > 0 {
			if err := a.attach(ctx, data, "commit_data", "list pull request commits", pull.String("commits_url")); err != nil {
				return err
			}
		}

		file := filepath.Join(dir, "pull-requests", fmt.Sprintf("%s:%d.json", name, number))
		if err := a.write(file, data); err != nil {
			return err
		}
	}
	return nil
}

// archiveReleases writes releases/<tag>.json and, with assets enabled,
// releases/<tag>/<asset name> for every asset.
func (a *Archiver) archiveReleases(ctx context.Context, repo *domain.Repository, dir string) error {
	owner, name := repo.OwnerLogin(), repo.RepoName
	releases, err := a.list(ctx, "list releases", fmt.Sprintf("repos/%s/%s/releases", owner, name))
	if err != nil {
		return err
	}

	relDir := filepath.Join(dir, "releases")
	for _, release := range releases {
		tag := release.String("tag_name")
		if err := a.write(filepath.Join(relDir, tag+".json"), release); err != nil {
			return err
		}
		if !a.opts.Include.Assets {
			continue
		}

		assets, _ := release["assets"].([]any)
		for _, raw := range assets {
			asset := toDocument(raw)
			if asset == nil {
				continue
			}
			file := filepath.Join(relDir, tag, safeName(asset.String("name")))
			if err := a.download(ctx, owner, name, asset, file); err != nil {
				return err
			}
		}
	}
	return nil
}

// download fetches an asset and verifies its size. A size mismatch is an
// IntegrityError.
func (a *Archiver) download(ctx context.Context, owner, repo string, asset domain.Document, file string) error {
	if err := a.fs.EnsureDir(filepath.Dir(file)); err != nil {
		return err
	}
	logger.Debug("Downloading asset %s", file)

	err := a.gate.Do(ctx, "download asset", func(ctx context.Context) error {
		w, err := a.fs.Create(file)
		if err != nil {
			return err
		}
		_, derr := a.api.DownloadAsset(ctx, owner, repo, asset.Int64("id"), w)
		return errors.Join(derr, w.Close())
	})
	if err != nil {
		return fmt.Errorf("download asset %s: %w", file, err)
	}

	size, err := a.fs.Size(file)
	if err != nil {
		return err
	}
	if expected := asset.Int64("size"); size != expected {
		return &domain.IntegrityError{Path: file, Expected: expected, Actual: size}
	}
	return nil
}

// attach lists every page of u and appends the items to data[key].
func (a *Archiver) attach(ctx context.Context, data domain.Document, key, op, u string) error {
	if u == "" {
		return nil
	}
	docs, err := a.list(ctx, op, u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, d := range docs {
		data.Append(key, d)
	}
	return nil
}

func (a *Archiver) list(ctx context.Context, op, u string) ([]domain.Document, error) {
	docs, err := collect(ctx, a.gate, op, func(ctx context.Context, page int) ([]domain.Document, int, error) {
		return a.api.ListJSON(ctx, u, page)
	})
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, err
}

func (a *Archiver) search(ctx context.Context, query string) ([]domain.Document, error) {
	docs, err := collect(ctx, a.gate, "search issues", func(ctx context.Context, page int) ([]domain.Document, int, error) {
		return a.api.SearchIssues(ctx, query, page)
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return docs, nil
}

func (a *Archiver) fetch(ctx context.Context, op, u string) (domain.Document, error) {
	return Call(ctx, a.gate, op, func(ctx context.Context) (domain.Document, error) {
		return a.api.FetchJSON(ctx, u)
	})
}

func (a *Archiver) write(file string, v any) error {
	if err := a.fs.EnsureDir(filepath.Dir(file)); err != nil {
		return err
	}
	if err := a.fs.WriteJSON(file, v); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

// skipMissing logs and drops not-found errors.
func skipMissing(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("No %s available: %v", what, err)
		return nil
	}
	return err
}

// projectOf returns the repository name from an API URL such as
// https://api.github.com/repos/<owner>/<name>/issues/<number>.
func projectOf(doc domain.Document, fallback string) string {
	if u, err := url.Parse(doc.String("url")); err == nil && strings.Contains(u.Path, "/repos/") {
		return path.Base(path.Dir(path.Dir(u.Path)))
	}
	if fallback != "" {
		return fallback
	}
	return "unknown"
}

// safeName keeps a file name inside its directory.
func safeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_" + name
	}
	return name
}

func toDocument(v any) domain.Document {
	switch d := v.(type) {
	case map[string]any:
		return domain.Document(d)
	case domain.Document:
		return d
	default:
		return nil
	}
}
