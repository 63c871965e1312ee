// Package cli provides the github-backup command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Backend opens the adapters behind the commands.
type Backend interface {
	// Config loads the configuration file. An empty path selects the default file.
	Config(path string) (driven.ConfigStore, error)

	// Credentials returns the credential file.
	Credentials() (driven.CredentialSource, error)

	// Hosting returns a client factory for the API at apiURL; empty means github.com.
	Hosting(apiURL string) driven.HostingFactory

	Git() driven.GitRunner
	FS() driven.BackupFS

	// Ledger opens the mirror ledger in stateDir.
	Ledger(stateDir string) (driven.MirrorStore, error)
}

var backend Backend

// SetBackend sets the adapters used by the commands.
func SetBackend(b Backend) {
	backend = b
}

var rootCmd = &cobra.Command{
	Use:   "github-backup [flags] LOGIN_OR_TOKEN BACKUPDIR",
	Short: "Back up a GitHub account",
	Long: `Mirrors the repositories, wikis and gists of a GitHub user or organization
with git, and archives issues, pull requests, releases and account data as JSON.

LOGIN_OR_TOKEN is a user name, or an API token to authenticate with. Running the
same command again updates the existing backup in place.`,
	Args:              cobra.ExactArgs(2),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	RunE:              runBackup,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	switch {
	case debug:
		logger.SetLevel(logger.LevelDebug)
	case quiet:
		logger.SetLevel(logger.LevelWarn)
	default:
		logger.SetLevel(logger.LevelInfo)
	}
	return nil
}

func requireBackend() error {
	if backend == nil {
		return errors.New("backend not configured")
	}
	return nil
}
