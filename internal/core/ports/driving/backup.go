package driving

import (
	"context"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

// BackupService runs a backup.
type BackupService interface {
	// Run performs one complete backup. The report is returned even when the
	// run fails, describing what was done before the failure.
	Run(ctx context.Context) (*domain.RunReport, error)
}

// RateLimitService reports the API quota.
type RateLimitService interface {
	RateLimits(ctx context.Context) (*domain.RateLimits, error)
}
