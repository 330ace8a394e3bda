package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	perrors "github.com/pkg/errors"
)

// execRunner shells out to the host, streaming stdout/stderr straight
// through to the process's own. Grounded on
// malbeclabs-doublezero/e2e/internal/docker/run.go's exec.CommandContext
// wrapping; logs the assembled command before running it when verbose.
type execRunner struct {
	log     *slog.Logger
	verbose bool
}

// Run satisfies upgrade.Runner.
func (r execRunner) Run(ctx context.Context, command []string) error {
	if len(command) == 0 {
		return perrors.New("execRunner: empty command")
	}
	if r.verbose && r.log != nil {
		r.log.Debug("--> executing command", "cmd", command)
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return perrors.Wrapf(err, "running %v", command)
	}
	return nil
}

// RunTimeout backs serviceRunner's service.Runner implementation, used by
// the service subcommands to start/stop/health-check a supervised process
// with a bounded timeout.
func (r execRunner) RunTimeout(ctx context.Context, command []string, timeout time.Duration) (int, error) {
	if len(command) == 0 {
		return -1, perrors.New("execRunner: empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if r.verbose && r.log != nil {
		r.log.Debug("--> executing command", "cmd", command, "timeout", timeout)
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
		err = nil
	}
	if err != nil {
		return -1, perrors.Wrapf(err, "running %v", command)
	}
	return exitCode, nil
}

// serviceRunner adapts execRunner to service.Runner's signature, which
// differs from upgrade.Runner's (it also returns an exit code).
type serviceRunner struct{ execRunner }

func (r serviceRunner) Run(ctx context.Context, command []string, timeout time.Duration) (int, error) {
	return r.execRunner.RunTimeout(ctx, command, timeout)
}
