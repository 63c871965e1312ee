package github

import (
	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

func toRepository(r *gh.Repository, owner domain.Owner) *domain.Repository {
	return &domain.Repository{
		RepoID:        r.GetID(),
		RepoName:      r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Owner:         owner,
		DefaultBranch: r.GetDefaultBranch(),
		SSHURL:        r.GetSSHURL(),
		HTTPURL:       r.GetCloneURL(),
		GitURL:        r.GetGitURL(),
		Wiki:          r.GetHasWiki(),
		Fork:          r.GetFork(),
		Private:       r.GetPrivate(),
	}
}

func toGist(g *gh.Gist, owner domain.Owner) *domain.Gist {
	return &domain.Gist{
		GistID:      g.GetID(),
		Description: g.GetDescription(),
		Owner:       owner,
		PullURL:     g.GetGitPullURL(),
	}
}

func toRate(r *gh.Rate) domain.Rate {
	if r == nil {
		return domain.Rate{}
	}
	return domain.Rate{Limit: r.Limit, Remaining: r.Remaining, Reset: r.Reset.Time}
}
