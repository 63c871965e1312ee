package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/core/ports/driving"
	"github.com/custodia-labs/github-backup/internal/core/services"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// newBackupService builds the service for one run.
var newBackupService = func(
	opts domain.BackupOptions, creds domain.Credentials, ledger driven.MirrorStore,
) driving.BackupService {
	return services.NewBackupService(opts, creds, backend.Hosting(apiURL), backend.Git(), backend.FS(), ledger)
}

func runBackup(cmd *cobra.Command, args []string) error {
	if err := requireBackend(); err != nil {
		return err
	}
	if err := loadConfig(cmd); err != nil {
		return err
	}

	opts, err := buildOptions(args[1])
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(args[0])
	if err != nil {
		return err
	}

	var ledger driven.MirrorStore
	if stateEnabled() {
		if ledger, err = backend.Ledger(opts.Layout().StateDir()); err != nil {
			return fmt.Errorf("open state: %w", err)
		}
		defer ledger.Close()
	}

	logger.Section("Backup")
	report, runErr := newBackupService(opts, creds, ledger).Run(cmd.Context())
	if report != nil && !quiet {
		renderReport(cmd.OutOrStdout(), report)
	}
	if runErr != nil {
		if errors.Is(runErr, domain.ErrImplicitTokenUnauthorized) {
			return fmt.Errorf("%w; pass the token with -p and the user name as LOGIN_OR_TOKEN", runErr)
		}
		return fmt.Errorf("backup failed: %w", runErr)
	}
	return nil
}
