// Package ini reads the stored password or API token from the credential
// file, an INI file with a [github-backup] section:
//
//	[github-backup]
//	APITOKEN = ghp_...
//	PASSWORD = ...
//
// APITOKEN wins when both are present. Key names are case-insensitive.
package ini

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goini "gopkg.in/ini.v1"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

// SectionName is the section holding the credentials.
const SectionName = "github-backup"

// Ensure Source implements the interface.
var _ driven.CredentialSource = (*Source)(nil)

type section struct {
	APIToken string `ini:"apitoken"`
	Password string `ini:"password"`
}

// Source is a credential file.
type Source struct {
	path string
}

// DefaultPath returns ~/.github-backup.conf.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".github-backup.conf"), nil
}

// NewSource returns a source reading path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the credential file path.
func (s *Source) Path() string {
	return s.path
}

// Secret returns the API token, or the password when there is no token.
// ok is false when the file does not exist.
func (s *Source) Secret() (string, bool, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	cfg, err := goini.LoadSources(goini.LoadOptions{InsensitiveKeys: true}, s.path)
	if err != nil {
		return "", true, fmt.Errorf("read credential file %s: %w", s.path, err)
	}

	sec, err := cfg.GetSection(SectionName)
	if err != nil {
		return "", true, fmt.Errorf("%w: %s has no [%s] section", domain.ErrInvalidInput, s.path, SectionName)
	}

	var creds section
	if err := sec.MapTo(&creds); err != nil {
		return "", true, fmt.Errorf("read credential file %s: %w", s.path, err)
	}

	switch {
	case creds.APIToken != "":
		return creds.APIToken, true, nil
	case creds.Password != "":
		return creds.Password, true, nil
	default:
		return "", true, fmt.Errorf("%w: %s sets neither APITOKEN nor PASSWORD", domain.ErrInvalidInput, s.path)
	}
}
