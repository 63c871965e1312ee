package domain

import "path/filepath"

// Layout maps entities to directories under the backup root.
//
//	<root>/repositories/<prefix><name><suffix>/repository
//	<root>/repositories/<prefix><name><suffix>/wiki
//	<root>/repositories/<prefix><name><suffix>/{releases,issues,pull-requests}
//	<root>/gists/<id>
//	<root>/account
type Layout struct {
	Root   string
	Prefix string
	Suffix string
}

// ProjectDir is the per-repository directory holding the clone and its metadata.
func (l Layout) ProjectDir(name string) string {
	return filepath.Join(l.Root, "repositories", l.Prefix+name+l.Suffix)
}

// RepositoryDir is the clone of a repository.
func (l Layout) RepositoryDir(name string) string {
	return filepath.Join(l.ProjectDir(name), "repository")
}

// WikiDir is the clone of a repository's wiki.
func (l Layout) WikiDir(name string) string {
	return filepath.Join(l.ProjectDir(name), "wiki")
}

// GistsDir holds gist clones and gist documents.
func (l Layout) GistsDir() string {
	return filepath.Join(l.Root, "gists")
}

// GistDir is the clone of a gist.
func (l Layout) GistDir(id string) string {
	return filepath.Join(l.GistsDir(), id)
}

// AccountDir holds account-level documents.
func (l Layout) AccountDir() string {
	return filepath.Join(l.Root, "account")
}

// StateDir holds the mirror ledger.
func (l Layout) StateDir() string {
	return filepath.Join(l.Root, ".github-backup")
}

// MarkerFile is the file whose presence means a clone exists in dir.
func MarkerFile(dir string, mirror bool) string {
	if mirror {
		return filepath.Join(dir, "config")
	}
	return filepath.Join(dir, ".git", "config")
}
