package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Protocol selects which clone URL of an entity is used.
type Protocol string

const (
	ProtocolSSH  Protocol = "ssh"
	ProtocolHTTP Protocol = "http"
	ProtocolGit  Protocol = "git"
)

// ParseProtocol validates a protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolSSH, ProtocolHTTP, ProtocolGit:
		return p, nil
	default:
		return "", fmt.Errorf("%w: protocol %q (want git, http or ssh)", ErrInvalidInput, s)
	}
}

// Visibility values accepted by the repository listing of the authenticated user.
const (
	VisibilityAll     = "all"
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Affiliation values accepted by the repository listing of the authenticated user.
const (
	AffiliationOwner              = "owner"
	AffiliationCollaborator       = "collaborator"
	AffiliationOrganizationMember = "organization_member"
)

// Include toggles the optional parts of a backup.
type Include struct {
	Account       bool
	Starred       bool
	Watched       bool
	Followers     bool
	Following     bool
	Issues        bool
	IssueComments bool
	IssueEvents   bool
	Pulls         bool
	PullComments  bool
	PullCommits   bool
	Keys          bool
	Wiki          bool
	Gists         bool
	StarredGists  bool
	Releases      bool
	Assets        bool
}

// Everything switches on every toggle except gists and starred gists,
// which stay opt-in.
func (i *Include) Everything() {
	gists, starredGists := i.Gists, i.StarredGists
	*i = Include{
		Account:       true,
		Starred:       true,
		Watched:       true,
		Followers:     true,
		Following:     true,
		Issues:        true,
		IssueComments: true,
		IssueEvents:   true,
		Pulls:         true,
		PullComments:  true,
		PullCommits:   true,
		Keys:          true,
		Wiki:          true,
		Releases:      true,
		Assets:        true,
		Gists:         gists,
		StarredGists:  starredGists,
	}
}

// NeedsAccount reports whether any account-level collection was requested.
func (i Include) NeedsAccount() bool {
	return i.Account || i.Starred || i.Watched || i.Followers || i.Following || i.Keys
}

// BackupOptions is the configuration of one run. It is resolved once by the
// CLI and must not be modified after Normalize.
type BackupOptions struct {
	// BackupDir is the root directory of the backup.
	BackupDir string

	// Organization selects an organization account instead of a user.
	Organization string

	// Username selects the user account to back up.
	Username string

	// Visibility and Affiliation filter the authenticated user's repositories.
	Visibility  string
	Affiliation []string

	// Mirror stores bare --mirror clones instead of working copies.
	Mirror bool

	// Protocol selects the clone URL.
	Protocol Protocol

	// Prefix and Suffix decorate repository directory names.
	Prefix string
	Suffix string

	// SkipForks drops forked repositories after enumeration.
	SkipForks bool

	// SkipRepos disables repository mirroring entirely.
	SkipRepos bool

	// Skip lists repository names (or owner/name) that are never mirrored.
	Skip []string

	// GitArgs are extra arguments passed to clone, fetch and pull.
	GitArgs []string

	// Quiet suppresses git progress output.
	Quiet bool

	// Workers is the number of entities processed concurrently.
	Workers int

	Include Include
}

// Normalize applies the implied settings and defaults. It is idempotent.
func (o *BackupOptions) Normalize() {
	o.BackupDir = strings.TrimRight(o.BackupDir, "/")
	if o.BackupDir == "" {
		o.BackupDir = "/"
	}
	if o.Visibility == "" {
		o.Visibility = VisibilityAll
	}
	if len(o.Affiliation) == 0 {
		o.Affiliation = []string{AffiliationOwner}
	}
	o.Affiliation = dedupe(o.Affiliation)
	if o.Protocol == "" {
		o.Protocol = ProtocolSSH
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Quiet && !slices.Contains(o.GitArgs, "--quiet") {
		o.GitArgs = append(o.GitArgs, "--quiet")
	}
	if o.Include.NeedsAccount() {
		o.Include.Account = true
	}
}

// Validate checks enumerated values.
func (o *BackupOptions) Validate() error {
	if o.BackupDir == "" {
		return fmt.Errorf("%w: backup directory is required", ErrInvalidInput)
	}
	switch o.Visibility {
	case VisibilityAll, VisibilityPublic, VisibilityPrivate:
	default:
		return fmt.Errorf("%w: visibility %q", ErrInvalidInput, o.Visibility)
	}
	for _, a := range o.Affiliation {
		switch a {
		case AffiliationOwner, AffiliationCollaborator, AffiliationOrganizationMember:
		default:
			return fmt.Errorf("%w: affiliation %q", ErrInvalidInput, a)
		}
	}
	if _, err := ParseProtocol(string(o.Protocol)); err != nil {
		return err
	}
	return nil
}

// Layout returns the directory layout for these options.
func (o *BackupOptions) Layout() Layout {
	return Layout{Root: o.BackupDir, Prefix: o.Prefix, Suffix: o.Suffix}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
