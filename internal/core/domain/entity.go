package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// EntityKind tags the Entity variant.
type EntityKind string

const (
	KindRepository EntityKind = "repository"
	KindGist       EntityKind = "gist"
)

// Owner is the owner of an entity as far as gitweb is concerned.
type Owner struct {
	Login string
	Name  string
	Email string
}

// GitMetadata is the descriptive metadata written into a mirror's git config.
type GitMetadata struct {
	Description   string
	Owner         Owner
	Name          string
	DefaultBranch string
	CloneURL      string
}

// GitwebOwner formats the owner as "Name <email>". It is empty unless both
// parts are known.
func (m GitMetadata) GitwebOwner() string {
	if m.Owner.Name == "" || m.Owner.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", m.Owner.Name, m.Owner.Email)
}

// Entity is anything that is mirrored with git: a repository or a gist.
type Entity interface {
	// ID is unique per kind.
	ID() string
	Kind() EntityKind

	// Name is the human-readable name used in logs.
	Name() string

	// CloneURL returns the URL git should clone from.
	CloneURL(p Protocol, auth AuthContext) string

	// PublicCloneURL is the credential-free HTTPS URL.
	PublicCloneURL() string

	// LocalPath is the clone directory.
	LocalPath(l Layout) string

	HasWiki() bool
	GitMetadata() GitMetadata
}

// Repository is a repository snapshot taken during enumeration.
type Repository struct {
	RepoID        int64
	RepoName      string
	FullName      string
	Description   string
	Owner         Owner
	DefaultBranch string
	SSHURL        string
	HTTPURL       string
	GitURL        string
	Wiki          bool
	Fork          bool
	Private       bool
}

var _ Entity = (*Repository)(nil)

func (r *Repository) ID() string       { return fmt.Sprintf("%d", r.RepoID) }
func (r *Repository) Kind() EntityKind { return KindRepository }
func (r *Repository) Name() string     { return r.RepoName }
func (r *Repository) HasWiki() bool    { return r.Wiki }

// PublicCloneURL returns the HTTPS clone URL.
func (r *Repository) PublicCloneURL() string { return r.HTTPURL }

// LocalPath returns the repository clone directory.
func (r *Repository) LocalPath(l Layout) string { return l.RepositoryDir(r.RepoName) }

// OwnerLogin returns the owner's login, falling back to the full name.
func (r *Repository) OwnerLogin() string {
	if r.Owner.Login != "" {
		return r.Owner.Login
	}
	owner, _, _ := strings.Cut(r.FullName, "/")
	return owner
}

// CloneURL picks the URL for the protocol in effect for auth. HTTP URLs carry
// the credentials when there are any.
func (r *Repository) CloneURL(p Protocol, auth AuthContext) string {
	switch auth.EffectiveProtocol(p) {
	case ProtocolSSH:
		return r.SSHURL
	case ProtocolGit:
		return r.GitURL
	default:
		return EmbedCredentials(r.HTTPURL, auth.Credentials)
	}
}

// GitMetadata returns the gitweb and cgit metadata.
func (r *Repository) GitMetadata() GitMetadata {
	return GitMetadata{
		Description:   r.Description,
		Owner:         r.Owner,
		Name:          r.RepoName,
		DefaultBranch: r.DefaultBranch,
		CloneURL:      r.HTTPURL,
	}
}

// Gist is a gist snapshot taken during enumeration.
type Gist struct {
	GistID      string
	Description string
	Owner       Owner
	PullURL     string
}

var _ Entity = (*Gist)(nil)

func (g *Gist) ID() string             { return g.GistID }
func (g *Gist) Kind() EntityKind       { return KindGist }
func (g *Gist) Name() string           { return g.GistID }
func (g *Gist) HasWiki() bool          { return false }
func (g *Gist) PublicCloneURL() string { return g.PullURL }

// LocalPath returns the gist clone directory.
func (g *Gist) LocalPath(l Layout) string { return l.GistDir(g.GistID) }

// CloneURL always returns the gist pull URL.
func (g *Gist) CloneURL(Protocol, AuthContext) string { return g.PullURL }

// GitMetadata returns the gitweb and cgit metadata. Gists have no default branch.
func (g *Gist) GitMetadata() GitMetadata {
	return GitMetadata{
		Description: g.Description,
		Owner:       g.Owner,
		Name:        g.GistID,
		CloneURL:    g.PullURL,
	}
}

// EmbedCredentials puts credentials into the user-info part of an HTTPS URL.
// An implicit token becomes "<token>:x-auth-basic"; a password becomes
// "<user>:<password>". Without credentials the URL is returned unchanged.
func EmbedCredentials(rawURL string, c Credentials) string {
	if !strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	switch {
	case c.ImplicitToken():
		u.User = url.UserPassword(c.Login, "x-auth-basic")
	case c.Password != "":
		u.User = url.UserPassword(c.BasicUser(), c.Password)
	default:
		return rawURL
	}
	return u.String()
}

// WikiURL derives a wiki clone URL from a repository clone URL.
func WikiURL(cloneURL string) string {
	if base, ok := strings.CutSuffix(cloneURL, ".git"); ok {
		return base + ".wiki.git"
	}
	return cloneURL + ".wiki.git"
}
