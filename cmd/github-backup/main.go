// Command github-backup backs up a GitHub account.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/github-backup/internal/adapters/driven/config/file"
	"github.com/custodia-labs/github-backup/internal/adapters/driven/credentials/ini"
	"github.com/custodia-labs/github-backup/internal/adapters/driven/git"
	"github.com/custodia-labs/github-backup/internal/adapters/driven/github"
	"github.com/custodia-labs/github-backup/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/github-backup/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/github-backup/internal/adapters/driving/cli"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// adapters wires the production implementations of the ports.
type adapters struct{}

func (adapters) Config(path string) (driven.ConfigStore, error) {
	return file.NewConfigStore(path)
}

func (adapters) Credentials() (driven.CredentialSource, error) {
	path, err := ini.DefaultPath()
	if err != nil {
		return nil, err
	}
	return ini.NewSource(path), nil
}

func (adapters) Hosting(apiURL string) driven.HostingFactory {
	return github.NewFactory(apiURL)
}

func (adapters) Git() driven.GitRunner {
	return git.NewRunner()
}

func (adapters) FS() driven.BackupFS {
	return jsonfile.New()
}

func (adapters) Ledger(stateDir string) (driven.MirrorStore, error) {
	return sqlite.NewStore(stateDir)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBackend(adapters{})

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
