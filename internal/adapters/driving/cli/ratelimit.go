package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driving"
	"github.com/custodia-labs/github-backup/internal/core/services"
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit [LOGIN_OR_TOKEN]",
	Short: "Show the API rate limits",
	Long: `Shows the remaining API quota of each rate limit category. Without
LOGIN_OR_TOKEN the anonymous quota of this address is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRateLimit,
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
}

// newRateLimitService builds the quota reporter.
var newRateLimitService = func(creds domain.Credentials) driving.RateLimitService {
	return services.NewRateLimitReporter(backend.Hosting(apiURL), creds)
}

func runRateLimit(cmd *cobra.Command, args []string) error {
	if err := requireBackend(); err != nil {
		return err
	}
	if err := loadConfig(cmd); err != nil {
		return err
	}

	var creds domain.Credentials
	if len(args) == 1 {
		var err error
		if creds, err = resolveCredentials(args[0]); err != nil {
			return err
		}
	}

	limits, err := newRateLimitService(creds).RateLimits(cmd.Context())
	if err != nil {
		return fmt.Errorf("get rate limits: %w", err)
	}
	renderRateLimits(cmd.OutOrStdout(), limits, time.Now())
	return nil
}
