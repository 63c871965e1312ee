// Package git runs the git executable for the mirror engine.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// Ensure Runner implements the interface.
var _ driven.GitRunner = (*Runner)(nil)

// Runner executes git commands, streaming their output.
type Runner struct {
	GitPath string
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewRunner creates a runner for the git found on PATH.
func NewRunner() *Runner {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		gitPath = "git"
	}
	return &Runner{
		GitPath: gitPath,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run executes `git [-C dir] subcommand extra... args...` and waits for it.
func (r *Runner) Run(ctx context.Context, subcommand string, args, extra []string, dir string) error {
	argv := Command(subcommand, args, extra, dir)
	logger.Debug("git %s", strings.Join(MaskCredentials(argv), " "))

	cmd := exec.CommandContext(ctx, r.GitPath, argv...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	// Never block on a credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		gerr := &Error{Args: MaskCredentials(argv), ExitCode: -1, err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			gerr.ExitCode = exitErr.ExitCode()
		}
		return gerr
	}
	return nil
}

// Command builds the git argument list.
func Command(subcommand string, args, extra []string, dir string) []string {
	argv := make([]string, 0, len(args)+len(extra)+3)
	if dir != "" {
		argv = append(argv, "-C", dir)
	}
	argv = append(argv, subcommand)
	argv = append(argv, extra...)
	return append(argv, args...)
}

// userInfo matches the credentials part of a URL.
var userInfo = regexp.MustCompile(`://[^/@\s]+@`)

// MaskCredentials replaces credentials embedded in URLs with asterisks.
func MaskCredentials(argv []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = userInfo.ReplaceAllString(a, "://****@")
	}
	return out
}

// Error is a failed git command.
type Error struct {
	// Args are the arguments with credentials masked.
	Args     []string
	ExitCode int
	err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("git %s failed (exit code %d): %v", strings.Join(e.Args, " "), e.ExitCode, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}
