package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

func TestAccountRefFor(t *testing.T) {
	tests := []struct {
		name  string
		opts  domain.BackupOptions
		creds domain.Credentials
		want  domain.AccountRef
	}{
		{"organization wins", domain.BackupOptions{Organization: "acme", Username: "u"},
			domain.Credentials{Login: "octo", Password: "pw"}, domain.AccountRef{Organization: "acme"}},
		{"username", domain.BackupOptions{Username: "u"},
			domain.Credentials{Login: "octo", Password: "pw"}, domain.AccountRef{Username: "u"}},
		{"authenticated self", domain.BackupOptions{},
			domain.Credentials{Login: "octo", Password: "pw"}, domain.AccountRef{Self: true}},
		{"implicit token self", domain.BackupOptions{},
			domain.Credentials{Login: "ghp_abc"}, domain.AccountRef{Self: true}},
		{"anonymous login", domain.BackupOptions{},
			domain.Credentials{Login: "octo"}, domain.AccountRef{Username: "octo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccountRefFor(&tt.opts, tt.creds))
		})
	}
}

func TestAuthenticator_AuthenticatedUser(t *testing.T) {
	captureLog(t)
	api := newFakeHosting()
	api.authenticated = true
	api.account = &domain.Account{Login: "octo", Kind: domain.AccountAuthenticatedUser}
	auth := NewAuthenticator(&fakeFactory{withCreds: api}, DefaultRetryPolicy())

	sess, err := auth.Connect(context.Background(), domain.Credentials{Login: "ghp_abc"}, &domain.BackupOptions{})

	require.NoError(t, err)
	assert.True(t, sess.Auth.Authenticated)
	assert.True(t, sess.Auth.Authorized)
	assert.Equal(t, "octo", sess.Auth.Principal)
	assert.Equal(t, []domain.AccountRef{{Self: true}}, api.refs)
	assert.NotNil(t, sess.Gate)
}

func TestAuthenticator_BadCredentialsFallsBackToAnonymous(t *testing.T) {
	captureLog(t)
	rejected := newFakeHosting()
	rejected.authenticated = true
	rejected.resolveErr = domain.ErrBadCredentials

	anon := newFakeHosting()
	anon.account = &domain.Account{Login: "octo", Kind: domain.AccountUser}

	factory := &fakeFactory{withCreds: rejected, anonymous: anon}
	auth := NewAuthenticator(factory, DefaultRetryPolicy())

	sess, err := auth.Connect(context.Background(),
		domain.Credentials{Login: "octo", Password: "wrong"}, &domain.BackupOptions{})

	require.NoError(t, err)
	assert.False(t, sess.Auth.Authenticated)
	assert.False(t, sess.Auth.Authorized)
	assert.Empty(t, sess.Auth.Credentials.Password, "rejected password is not used for cloning")
	assert.Equal(t, "octo", sess.Auth.Credentials.Login)
	assert.Equal(t, []domain.AccountRef{{Username: "octo"}}, anon.refs)
	require.Len(t, factory.created, 2)
	assert.True(t, factory.created[1].Anonymous())
}

func TestAuthenticator_ImplicitTokenMustAuthorize(t *testing.T) {
	captureLog(t)

	t.Run("other user", func(t *testing.T) {
		api := newFakeHosting()
		api.authenticated = true
		api.account = &domain.Account{Login: "someone", Kind: domain.AccountUser}
		auth := NewAuthenticator(&fakeFactory{withCreds: api}, DefaultRetryPolicy())

		_, err := auth.Connect(context.Background(),
			domain.Credentials{Login: "ghp_abc"}, &domain.BackupOptions{Username: "someone"})

		assert.ErrorIs(t, err, domain.ErrImplicitTokenUnauthorized)
	})

	t.Run("rejected token", func(t *testing.T) {
		api := newFakeHosting()
		api.authenticated = true
		api.resolveErr = domain.ErrBadCredentials
		auth := NewAuthenticator(&fakeFactory{withCreds: api, anonymous: newFakeHosting()}, DefaultRetryPolicy())

		_, err := auth.Connect(context.Background(), domain.Credentials{Login: "ghp_abc"}, &domain.BackupOptions{})

		assert.ErrorIs(t, err, domain.ErrImplicitTokenUnauthorized)
		assert.ErrorIs(t, err, domain.ErrBadCredentials)
	})

	t.Run("password runs may read other users", func(t *testing.T) {
		api := newFakeHosting()
		api.authenticated = true
		api.account = &domain.Account{Login: "someone", Kind: domain.AccountUser}
		auth := NewAuthenticator(&fakeFactory{withCreds: api}, DefaultRetryPolicy())

		sess, err := auth.Connect(context.Background(),
			domain.Credentials{Login: "octo", Password: "pw"}, &domain.BackupOptions{Username: "someone"})

		require.NoError(t, err)
		assert.False(t, sess.Auth.Authorized)
	})
}

func TestAuthenticator_OrganizationIsAuthorized(t *testing.T) {
	captureLog(t)
	api := newFakeHosting()
	api.authenticated = true
	api.account = &domain.Account{Login: "acme", Kind: domain.AccountOrganization}
	auth := NewAuthenticator(&fakeFactory{withCreds: api}, DefaultRetryPolicy())

	sess, err := auth.Connect(context.Background(),
		domain.Credentials{Login: "ghp_abc"}, &domain.BackupOptions{Organization: "acme"})

	require.NoError(t, err)
	assert.True(t, sess.Auth.Authorized)
	assert.Empty(t, sess.Auth.Principal)
}
