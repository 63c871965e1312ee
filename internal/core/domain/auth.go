package domain

import "strings"

// tokenPrefixes are the prefixes GitHub uses for its token formats.
var tokenPrefixes = []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_"}

// LooksLikeToken reports whether s has the shape of a GitHub token.
func LooksLikeToken(s string) bool {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// Credentials are what the user supplied to authenticate.
type Credentials struct {
	// Login is the LOGIN_OR_TOKEN argument.
	Login string

	// Username overrides Login as the basic-auth user name.
	Username string

	// Password is a password or API token. Empty means none was given.
	Password string
}

// ImplicitToken reports whether Login itself is a token.
func (c Credentials) ImplicitToken() bool {
	return LooksLikeToken(c.Login)
}

// Token returns the bearer token to authenticate with, if any.
// A password that looks like a token is used as one; so is an implicit token
// when no password was given.
func (c Credentials) Token() string {
	if LooksLikeToken(c.Password) {
		return c.Password
	}
	if c.Password == "" && c.ImplicitToken() {
		return c.Login
	}
	return ""
}

// BasicUser returns the basic-auth user name.
func (c Credentials) BasicUser() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Login
}

// Anonymous reports whether no credentials are present.
func (c Credentials) Anonymous() bool {
	return c.Password == "" && !c.ImplicitToken()
}

// AuthContext is the authorization state of a run. It is derived once after
// the account is resolved and passed to every component that branches on it.
type AuthContext struct {
	Credentials Credentials

	// Authenticated is true when the API client carries credentials the API accepted.
	Authenticated bool

	// Authorized is true when the resolved account may be read with the
	// client's permissions: the authenticated user itself or an organization.
	Authorized bool

	// Principal is the login of the authenticated user, if any.
	Principal string
}

// EffectiveProtocol returns p, or HTTP when the run has no password to clone
// with. Anonymous runs and implicit-token runs can only clone over HTTP.
func (a AuthContext) EffectiveProtocol(p Protocol) Protocol {
	if !a.Authenticated || a.Credentials.Password == "" {
		return ProtocolHTTP
	}
	return p
}
