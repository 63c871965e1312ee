package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// PerPage is the page size requested from list endpoints.
const PerPage = 100

// Ensure Client implements the interface.
var _ driven.HostingAPI = (*Client)(nil)

// Client wraps the go-github client.
type Client struct {
	gh            *gh.Client
	download      *http.Client
	authenticated bool
	rateLimiter   *RateLimiter

	mu        sync.Mutex
	owners    map[string]domain.Owner
	principal string
}

// NewClient wraps an existing go-github client.
func NewClient(client *gh.Client, authenticated bool, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(ProactiveRate)
	}
	return &Client{
		gh:            client,
		download:      http.DefaultClient,
		authenticated: authenticated,
		rateLimiter:   limiter,
		owners:        make(map[string]domain.Owner),
	}
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Authenticated reports whether the client carries credentials.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// ResolveAccount looks up the organization, the named user or the
// authenticated user.
func (c *Client) ResolveAccount(ctx context.Context, ref domain.AccountRef) (*domain.Account, error) {
	var (
		path string
		kind domain.AccountKind
	)
	switch {
	case ref.Organization != "":
		path, kind = "orgs/"+url.PathEscape(ref.Organization), domain.AccountOrganization
	case ref.Self:
		path, kind = "user", domain.AccountAuthenticatedUser
	case ref.Username != "":
		path, kind = "users/"+url.PathEscape(ref.Username), domain.AccountUser
	default:
		return nil, fmt.Errorf("%w: no account to resolve", domain.ErrInvalidInput)
	}

	doc, err := c.FetchJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{Login: doc.String("login"), Kind: kind, Raw: doc}

	// Naming yourself is the same as backing up the authenticated user.
	if kind == domain.AccountUser && c.authenticated {
		principal, err := c.principalLogin(ctx)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(principal, account.Login) {
			account.Kind = domain.AccountAuthenticatedUser
		}
	}
	return account, nil
}

func (c *Client) principalLogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	principal := c.principal
	c.mu.Unlock()
	if principal != "" {
		return principal, nil
	}

	var user *gh.User
	err := c.call(ctx, "get authenticated user", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		user, resp, err = c.gh.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.principal = user.GetLogin()
	c.mu.Unlock()
	return user.GetLogin(), nil
}

// ListRepositories returns one page of the account's repositories.
func (c *Client) ListRepositories(
	ctx context.Context, account *domain.Account, filter driven.RepoFilter, page int,
) ([]*domain.Repository, int, error) {
	lo := gh.ListOptions{Page: page, PerPage: PerPage}

	var repos []*gh.Repository
	next, err := c.pagedCall(ctx, "list repos", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		switch account.Kind {
		case domain.AccountAuthenticatedUser:
			opts := &gh.RepositoryListByAuthenticatedUserOptions{
				Visibility:  filter.Visibility,
				Affiliation: strings.Join(filter.Affiliation, ","),
				ListOptions: lo,
			}
			repos, resp, err = c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		case domain.AccountOrganization:
			opts := &gh.RepositoryListByOrgOptions{Type: "all", ListOptions: lo}
			repos, resp, err = c.gh.Repositories.ListByOrg(ctx, account.Login, opts)
		default:
			opts := &gh.RepositoryListByUserOptions{Type: "owner", ListOptions: lo}
			repos, resp, err = c.gh.Repositories.ListByUser(ctx, account.Login, opts)
		}
		return resp, err
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Repository, 0, len(repos))
	for _, r := range repos {
		owner, err := c.owner(ctx, r.GetOwner().GetLogin())
		if err != nil {
			return nil, 0, err
		}
		out = append(out, toRepository(r, owner))
	}
	return out, next, nil
}

// ListGists returns one page of the account's gists.
func (c *Client) ListGists(ctx context.Context, account *domain.Account, page int) ([]*domain.Gist, int, error) {
	user := account.Login
	if account.Kind == domain.AccountAuthenticatedUser {
		// An empty user lists the authenticated user's gists, secret ones included.
		user = ""
	}
	opts := &gh.GistListOptions{ListOptions: gh.ListOptions{Page: page, PerPage: PerPage}}

	var gists []*gh.Gist
	next, err := c.pagedCall(ctx, "list gists", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		gists, resp, err = c.gh.Gists.List(ctx, user, opts)
		return resp, err
	})
	if err != nil {
		return nil, 0, err
	}
	return c.toGists(ctx, gists, next)
}

// ListStarredGists returns one page of the authenticated user's starred gists.
func (c *Client) ListStarredGists(ctx context.Context, page int) ([]*domain.Gist, int, error) {
	opts := &gh.GistListOptions{ListOptions: gh.ListOptions{Page: page, PerPage: PerPage}}

	var gists []*gh.Gist
	next, err := c.pagedCall(ctx, "list starred gists", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		gists, resp, err = c.gh.Gists.ListStarred(ctx, opts)
		return resp, err
	})
	if err != nil {
		return nil, 0, err
	}
	return c.toGists(ctx, gists, next)
}

func (c *Client) toGists(ctx context.Context, gists []*gh.Gist, next int) ([]*domain.Gist, int, error) {
	out := make([]*domain.Gist, 0, len(gists))
	for _, g := range gists {
		owner, err := c.owner(ctx, g.GetOwner().GetLogin())
		if err != nil {
			return nil, 0, err
		}
		out = append(out, toGist(g, owner))
	}
	return out, next, nil
}

// FetchJSON returns a single raw object.
func (c *Client) FetchJSON(ctx context.Context, u string) (domain.Document, error) {
	var doc domain.Document
	if _, err := c.raw(ctx, u, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListJSON returns one page of a raw list endpoint.
func (c *Client) ListJSON(ctx context.Context, u string, page int) ([]domain.Document, int, error) {
	paged, err := withPage(u, page)
	if err != nil {
		return nil, 0, err
	}
	var docs []domain.Document
	next, err := c.raw(ctx, paged, &docs)
	if err != nil {
		return nil, 0, err
	}
	return docs, next, nil
}

// SearchIssues returns one page of issue search results.
func (c *Client) SearchIssues(ctx context.Context, query string, page int) ([]domain.Document, int, error) {
	u, err := withPage("search/issues?q="+url.QueryEscape(query), page)
	if err != nil {
		return nil, 0, err
	}
	var result struct {
		Items []domain.Document `json:"items"`
	}
	next, err := c.raw(ctx, u, &result)
	if err != nil {
		return nil, 0, err
	}
	return result.Items, next, nil
}

// DownloadAsset streams a release asset to w.
func (c *Client) DownloadAsset(ctx context.Context, owner, repo string, assetID int64, w io.Writer) (int64, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	rc, _, err := c.gh.Repositories.DownloadReleaseAsset(ctx, owner, repo, assetID, c.download)
	if err != nil {
		return 0, wrapError(err, "download asset")
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("download asset %d: %w", assetID, err)
	}
	return n, nil
}

// RateLimits returns the current quota state.
func (c *Client) RateLimits(ctx context.Context) (*domain.RateLimits, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, wrapError(err, "get rate limit")
	}
	return &domain.RateLimits{
		Core:    toRate(limits.GetCore()),
		Search:  toRate(limits.GetSearch()),
		GraphQL: toRate(limits.GetGraphQL()),
	}, nil
}

// owner returns the owner details used for gitweb, looked up once per login.
// Throttling and cancellation are returned so the caller's page is retried.
// Any other failure leaves only the login and is tried again next time,
// except for a missing user, which is remembered.
func (c *Client) owner(ctx context.Context, login string) (domain.Owner, error) {
	c.mu.Lock()
	o, ok := c.owners[login]
	c.mu.Unlock()
	if ok || login == "" {
		return o, nil
	}

	o = domain.Owner{Login: login}
	var user *gh.User
	err := c.call(ctx, "get owner", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		user, resp, err = c.gh.Users.Get(ctx, login)
		return resp, err
	})
	switch {
	case err == nil:
		o.Name, o.Email = user.GetName(), user.GetEmail()
	case errors.Is(err, domain.ErrRateLimited), ctx.Err() != nil:
		return domain.Owner{}, err
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("Owner %s not found", login)
	default:
		logger.Debug("Owner lookup for %s failed: %v", login, err)
		return o, nil
	}

	c.mu.Lock()
	c.owners[login] = o
	c.mu.Unlock()
	return o, nil
}

// raw performs a GET and decodes the body into v, keeping numbers verbatim.
// It returns the next page number.
func (c *Client) raw(ctx context.Context, u string, v any) (int, error) {
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request %s: %w", u, err)
	}

	var buf bytes.Buffer
	next, err := c.pagedCall(ctx, "GET "+u, func() (*gh.Response, error) {
		return c.gh.Do(ctx, req, &buf)
	})
	if err != nil {
		return 0, err
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return 0, fmt.Errorf("decode %s: %w", u, err)
	}
	return next, nil
}

// call waits for the token bucket, runs fn and records the quota headers.
func (c *Client) call(ctx context.Context, operation string, fn func() (*gh.Response, error)) error {
	_, err := c.pagedCall(ctx, operation, fn)
	return err
}

func (c *Client) pagedCall(ctx context.Context, operation string, fn func() (*gh.Response, error)) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := fn()
	c.updateRateLimitFromResponse(resp)
	if q, low := c.rateLimiter.LowQuota(); low {
		logger.Warn("API quota low: %d of %d requests left until %s",
			q.Remaining, q.Limit, q.Reset.Local().Format(time.TimeOnly))
	}
	if err != nil {
		return 0, wrapError(err, operation)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.NextPage, nil
}

// updateRateLimitFromResponse updates the rate limiter from GitHub response headers.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}

// withPage adds page and per_page parameters to u.
func withPage(u string, page int) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("%w: url %q", domain.ErrInvalidInput, u)
	}
	q := parsed.Query()
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	q.Set("per_page", strconv.Itoa(PerPage))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
