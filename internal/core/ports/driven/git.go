package driven

import "context"

// GitRunner runs the git executable.
type GitRunner interface {
	// Run executes `git [-C dir] subcommand extra... args...` and blocks until
	// it exits. A non-zero exit status is returned as an error.
	Run(ctx context.Context, subcommand string, args, extra []string, dir string) error
}
