package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeToken(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ghp_abc", true},
		{"github_pat_11AAA", true},
		{"gho_x", true},
		{"ghp_", false},
		{"octocat", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeToken(tt.in))
		})
	}
}

func TestCredentials(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		c := Credentials{Login: "octocat"}

		assert.True(t, c.Anonymous())
		assert.False(t, c.ImplicitToken())
		assert.Empty(t, c.Token())
	})

	t.Run("implicit token", func(t *testing.T) {
		c := Credentials{Login: "ghp_secret"}

		assert.False(t, c.Anonymous())
		assert.True(t, c.ImplicitToken())
		assert.Equal(t, "ghp_secret", c.Token())
	})

	t.Run("password that is a token", func(t *testing.T) {
		c := Credentials{Login: "octocat", Password: "github_pat_xyz"}

		assert.Equal(t, "github_pat_xyz", c.Token())
		assert.Equal(t, "octocat", c.BasicUser())
	})

	t.Run("plain password", func(t *testing.T) {
		c := Credentials{Login: "octocat", Username: "bot", Password: "hunter2"}

		assert.Empty(t, c.Token())
		assert.Equal(t, "bot", c.BasicUser())
		assert.False(t, c.Anonymous())
	})
}

func TestAuthContext_EffectiveProtocol(t *testing.T) {
	withPassword := AuthContext{Authenticated: true, Credentials: Credentials{Password: "pw"}}

	assert.Equal(t, ProtocolSSH, withPassword.EffectiveProtocol(ProtocolSSH))
	assert.Equal(t, ProtocolGit, withPassword.EffectiveProtocol(ProtocolGit))
	assert.Equal(t, ProtocolHTTP, AuthContext{}.EffectiveProtocol(ProtocolSSH))
	assert.Equal(t, ProtocolHTTP,
		AuthContext{Authenticated: true, Credentials: Credentials{Login: "ghp_x"}}.EffectiveProtocol(ProtocolGit))
}
