// Package installer runs the runtime's own install script for one version and
// relocates the payload it produces into the version directory.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/bvm/internal/registry"
)

// DefaultCommand is the install command template. {{version}} is replaced by
// the requested version identifier.
const DefaultCommand = "curl -fsSL https://bun.sh/install | bash -s bun-v{{version}}"

// ErrInstallFailed is matched by every error the install step returns for a
// non-zero exit.
var ErrInstallFailed = errors.New("install failed")

// InstallError carries the details of a failed install command.
type InstallError struct {
	Version  string
	ExitCode int
	Output   string
	Err      error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("install of %s failed (exit %d)", e.Version, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += fmt.Sprintf(" (output: %s)", out)
	}
	return msg
}

func (e *InstallError) Is(target error) bool { return target == ErrInstallFailed }

func (e *InstallError) Unwrap() error { return e.Err }

// Runner executes a command in a working directory.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// ExecRunner runs commands with os/exec. When Stdout/Stderr are nil the
// combined output is captured and attached to the returned error instead.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var captured bytes.Buffer
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	} else {
		cmd.Stdout = &captured
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	} else {
		cmd.Stderr = &captured
	}

	if err := cmd.Run(); err != nil {
		return &runError{err: err, output: captured.String()}
	}
	return nil
}

// runError keeps captured output next to the exec error.
type runError struct {
	err    error
	output string
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// Installer drives one install.
type Installer struct {
	runner     Runner
	command    string
	payloadDir string
	logger     *slog.Logger
}

// New returns an Installer. command is a shell command template (see
// DefaultCommand); payloadDir is where the install script leaves the runtime,
// for Bun $HOME/.bun.
func New(runner Runner, command, payloadDir string, logger *slog.Logger) *Installer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{
		runner:     runner,
		command:    command,
		payloadDir: payloadDir,
		logger:     logger,
	}
}

// Command renders the shell command for version.
func (i *Installer) Command(version string) string {
	return strings.ReplaceAll(i.command, "{{version}}", version)
}

// Install runs the install command for version with dir as the working
// directory. Any non-zero exit is reported as an *InstallError. The version
// must be a valid registry.Version; it is substituted into the script as is.
func (i *Installer) Install(ctx context.Context, version, dir string) error {
	if err := registry.Version(version).Validate(); err != nil {
		return fmt.Errorf("refusing to install: %w", err)
	}
	script := i.Command(version)
	i.logger.Debug("running installer", "version", version, "dir", dir, "command", script)

	err := i.runner.Run(ctx, dir, "bash", "-c", script)
	if err == nil {
		return nil
	}

	ie := &InstallError{Version: version, ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ie.ExitCode = exitErr.ExitCode()
	}
	var re *runError
	if errors.As(err, &re) {
		ie.Output = re.output
	}
	return ie
}

// PayloadTarget is where MovePayload places the runtime inside dir.
func (i *Installer) PayloadTarget(dir string) string {
	return filepath.Join(dir, filepath.Base(i.payloadDir))
}

// MovePayload moves the installed runtime from the payload directory into
// dir. The rename fails across filesystems; that error is returned as is.
func (i *Installer) MovePayload(dir string) (string, error) {
	if i.payloadDir == "" {
		return "", errors.New("payload directory is not configured")
	}
	if _, err := os.Stat(i.payloadDir); err != nil {
		return "", fmt.Errorf("installer produced no payload at %s: %w", i.payloadDir, err)
	}

	target := i.PayloadTarget(dir)
	if err := os.Rename(i.payloadDir, target); err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", i.payloadDir, target, err)
	}
	i.logger.Debug("moved payload", "from", i.payloadDir, "to", target)
	return target, nil
}
