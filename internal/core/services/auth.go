package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// Session is a connected API client together with the account it resolved.
type Session struct {
	API     driven.HostingAPI
	Gate    *RateLimitGate
	Auth    domain.AuthContext
	Account *domain.Account
}

// Authenticator connects to the hosting API and resolves the account of a run.
type Authenticator struct {
	factory driven.HostingFactory
	policy  RetryPolicy
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(factory driven.HostingFactory, policy RetryPolicy) *Authenticator {
	return &Authenticator{factory: factory, policy: policy}
}

// AccountRefFor picks the account to back up: the organization, the named
// user, the authenticated user, or the login itself.
func AccountRefFor(opts *domain.BackupOptions, creds domain.Credentials) domain.AccountRef {
	switch {
	case opts.Organization != "":
		return domain.AccountRef{Organization: opts.Organization}
	case opts.Username != "":
		return domain.AccountRef{Username: opts.Username}
	case !creds.Anonymous():
		return domain.AccountRef{Self: true}
	default:
		return domain.AccountRef{Username: creds.Login}
	}
}

// Connect builds a client for creds and resolves the account. When the API
// rejects the credentials, it continues with an anonymous client.
//
// A token given as the login, with no password, must authorize the account:
// otherwise Connect fails with domain.ErrImplicitTokenUnauthorized instead of
// continuing with fewer permissions than the user asked for.
func (a *Authenticator) Connect(
	ctx context.Context, creds domain.Credentials, opts *domain.BackupOptions,
) (*Session, error) {
	sess, err := a.connect(ctx, creds, creds, AccountRefFor(opts, creds))
	if errors.Is(err, domain.ErrBadCredentials) {
		if creds.Password == "" && creds.ImplicitToken() {
			return nil, fmt.Errorf("%w: %w", domain.ErrImplicitTokenUnauthorized, err)
		}
		logger.Warn("Credentials for %s were rejected, continuing without authentication", creds.BasicUser())
		remaining := domain.Credentials{Login: creds.Login, Username: creds.Username}
		ref := AccountRefFor(opts, domain.Credentials{})
		if ref == (domain.AccountRef{}) {
			ref.Username = creds.Login
		}
		sess, err = a.connect(ctx, domain.Credentials{}, remaining, ref)
	}
	if err != nil {
		return nil, err
	}

	auth := sess.Auth
	if auth.Credentials.Password == "" && domain.LooksLikeToken(creds.Login) && !auth.Authorized {
		return nil, fmt.Errorf("%w: %s", domain.ErrImplicitTokenUnauthorized, sess.Account.Login)
	}

	logger.Debug("Resolved %s %s (authenticated=%t, authorized=%t)",
		sess.Account.Kind, sess.Account.Login, auth.Authenticated, auth.Authorized)
	return sess, nil
}

// connect creates a client from clientCreds. authCreds are the credentials
// the rest of the run sees, e.g. for clone URLs.
func (a *Authenticator) connect(
	ctx context.Context, clientCreds, authCreds domain.Credentials, ref domain.AccountRef,
) (*Session, error) {
	api, err := a.factory.New(ctx, clientCreds)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	gate := NewRateLimitGate(api, a.policy)

	account, err := Call(ctx, gate, "resolve account", func(ctx context.Context) (*domain.Account, error) {
		return api.ResolveAccount(ctx, ref)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	auth := domain.AuthContext{
		Credentials:   authCreds,
		Authenticated: api.Authenticated(),
	}
	auth.Authorized = auth.Authenticated &&
		(account.Kind == domain.AccountAuthenticatedUser || account.Kind == domain.AccountOrganization)
	if account.Kind == domain.AccountAuthenticatedUser {
		auth.Principal = account.Login
	}

	return &Session{API: api, Gate: gate, Auth: auth, Account: account}, nil
}
