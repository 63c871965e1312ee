package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

// HostingAPI is the narrow view of the hosting service used by the core.
//
// Paged methods take a 1-based page number and return the next page number,
// or 0 when there are no more pages. Rate limiting is reported as an error
// wrapping domain.ErrRateLimited, rejected credentials as
// domain.ErrBadCredentials.
type HostingAPI interface {
	// Authenticated reports whether the client carries credentials.
	Authenticated() bool

	// ResolveAccount looks up the account a run backs up.
	ResolveAccount(ctx context.Context, ref domain.AccountRef) (*domain.Account, error)

	// ListRepositories returns one page of the account's repositories.
	ListRepositories(
		ctx context.Context, account *domain.Account, filter RepoFilter, page int,
	) ([]*domain.Repository, int, error)

	// ListGists returns one page of the account's gists.
	ListGists(ctx context.Context, account *domain.Account, page int) ([]*domain.Gist, int, error)

	// ListStarredGists returns one page of the authenticated user's starred gists.
	ListStarredGists(ctx context.Context, page int) ([]*domain.Gist, int, error)

	// FetchJSON returns a single raw object. url may be absolute or relative
	// to the API base URL.
	FetchJSON(ctx context.Context, url string) (domain.Document, error)

	// ListJSON returns one page of a raw list endpoint.
	ListJSON(ctx context.Context, url string, page int) ([]domain.Document, int, error)

	// SearchIssues returns one page of issue search results.
	SearchIssues(ctx context.Context, query string, page int) ([]domain.Document, int, error)

	// DownloadAsset streams a release asset to w and returns the byte count.
	DownloadAsset(ctx context.Context, owner, repo string, assetID int64, w io.Writer) (int64, error)

	// RateLimits returns the current quota state.
	RateLimits(ctx context.Context) (*domain.RateLimits, error)
}

// RepoFilter narrows the authenticated user's repository listing.
// An empty filter lists everything the API returns by default.
type RepoFilter struct {
	Visibility  string
	Affiliation []string
}

// Empty reports whether no filter is set.
func (f RepoFilter) Empty() bool {
	return f.Visibility == "" && len(f.Affiliation) == 0
}

// HostingFactory creates HostingAPI clients.
type HostingFactory interface {
	// New returns a client for creds. Anonymous credentials give an
	// unauthenticated client.
	New(ctx context.Context, creds domain.Credentials) (HostingAPI, error)
}
