package services

import (
	"context"
	"iter"
	"strings"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// Enumerator lists the entities of an account lazily, one page at a time.
// Each iteration starts over from the first page.
type Enumerator struct {
	api  driven.HostingAPI
	gate *RateLimitGate
}

// NewEnumerator creates an enumerator.
func NewEnumerator(api driven.HostingAPI, gate *RateLimitGate) *Enumerator {
	return &Enumerator{api: api, gate: gate}
}

// EffectiveFilter returns filter if it may be applied to account, otherwise
// an empty filter. Visibility and affiliation only exist for the
// authenticated user's own listing.
func EffectiveFilter(auth domain.AuthContext, account *domain.Account, filter driven.RepoFilter) driven.RepoFilter {
	if !auth.Authenticated || account.Kind != domain.AccountAuthenticatedUser {
		return driven.RepoFilter{}
	}
	return filter
}

// Repositories yields the account's repositories.
func (e *Enumerator) Repositories(
	ctx context.Context, auth domain.AuthContext, account *domain.Account, filter driven.RepoFilter,
) iter.Seq2[*domain.Repository, error] {
	filter = EffectiveFilter(auth, account, filter)
	return paged(ctx, e.gate, "list repositories",
		func(ctx context.Context, page int) ([]*domain.Repository, int, error) {
			return e.api.ListRepositories(ctx, account, filter, page)
		})
}

// Gists yields the account's gists.
func (e *Enumerator) Gists(ctx context.Context, account *domain.Account) iter.Seq2[*domain.Gist, error] {
	return paged(ctx, e.gate, "list gists",
		func(ctx context.Context, page int) ([]*domain.Gist, int, error) {
			return e.api.ListGists(ctx, account, page)
		})
}

// StarredGists yields the gists starred by the authenticated user.
func (e *Enumerator) StarredGists(ctx context.Context) iter.Seq2[*domain.Gist, error] {
	return paged(ctx, e.gate, "list starred gists", e.api.ListStarredGists)
}

// Select reports whether repo is mirrored under opts, and if not, why.
func Select(repo *domain.Repository, opts *domain.BackupOptions) (bool, string) {
	if opts.SkipForks && repo.Fork {
		return false, "fork"
	}
	for _, s := range opts.Skip {
		if strings.EqualFold(s, repo.RepoName) || strings.EqualFold(s, repo.FullName) {
			return false, "skip list"
		}
	}
	return true, ""
}
