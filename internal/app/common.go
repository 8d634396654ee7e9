package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/blackwell-systems/bvm/internal/installer"
	"github.com/blackwell-systems/bvm/internal/manager"
	"github.com/blackwell-systems/bvm/internal/registry"
	"github.com/blackwell-systems/bvm/internal/releases"
	"github.com/blackwell-systems/bvm/internal/shell"
	"github.com/blackwell-systems/bvm/internal/store"
)

// components is everything a command needs, built from cfg.
type components struct {
	home    string
	family  shell.Family
	store   *registry.Store
	pointer *registry.Pointer
	patcher *shell.Patcher
	history *store.Store // nil when the history database cannot be opened
	mgr     *manager.Manager
}

// newComponents wires the registry, shell patcher, installer and history
// from the resolved configuration. The caller must call close.
func newComponents(stdout io.Writer) (*components, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	c := &components{
		home:   home,
		family: shell.DetectFamily(os.Getenv("SHELL")),
		store:  registry.NewStore(cfg.Root),
	}
	c.pointer = registry.NewPointer(c.store)
	c.patcher = shell.NewPatcher(home, c.pointer.File(), cfg.BinSubpath)

	// The history is an audit trail; commands keep working without it.
	if hist, err := store.Open(cfg.HistoryDB); err != nil {
		logger.Warn("install history unavailable", "path", cfg.HistoryDB, "error", err)
	} else {
		c.history = hist
	}

	runner := installer.ExecRunner{}
	if verboseFlag {
		runner.Stdout = stdout
		runner.Stderr = os.Stderr
	}

	opts := manager.Options{
		Store:     c.store,
		Pointer:   c.pointer,
		Installer: installer.New(runner, cfg.InstallCommand, cfg.PayloadDir, logger),
		Patcher:   c.patcher,
		Family:    c.family,
		Logger:    logger,
	}
	if c.history != nil {
		opts.History = c.history
	}
	c.mgr = manager.New(opts)
	return c, nil
}

func (c *components) close() {
	if c.history != nil {
		c.history.Close()
	}
}

func newBrowser() *releases.Browser {
	return releases.NewBrowser(
		releases.WithFeedURL(cfg.FeedURL),
		releases.WithTimeout(cfg.HTTPTimeout),
	)
}

var tagPrefix = regexp.MustCompile(`^(bun-)?v(\d)`)

// parseVersion accepts "1.1.34" as well as the "v1.1.34" and "bun-v1.1.34"
// spellings used by release tags.
func parseVersion(arg string) (registry.Version, error) {
	v := registry.Version(tagPrefix.ReplaceAllString(arg, "$2"))
	if err := v.Validate(); err != nil {
		return "", err
	}
	return v, nil
}

// explain turns registry sentinels into messages that name the next step.
// The sentinel stays in the chain for errors.Is.
func explain(v registry.Version, err error) error {
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		return fmt.Errorf("%w: %s is already installed (run 'bvm switch %s' to activate it)", registry.ErrAlreadyExists, v, v)
	case errors.Is(err, registry.ErrNotFound):
		return fmt.Errorf("%w: %s is not installed (run 'bvm list' to see installed versions)", registry.ErrNotFound, v)
	default:
		return err
	}
}

func printShellHint(w io.Writer, res shellReport) {
	if res.skipped {
		fmt.Fprintf(w, "Shell startup file not updated (%s). Add this to your shell configuration:\n\n%s\n", res.reason, res.block)
	}
	fmt.Fprintln(w, "Open a new shell session to use it.")
}

// shellReport summarises a patch result for the user.
type shellReport struct {
	skipped bool
	reason  string
	block   string
}

func reportShell(c *components, r shell.Result) shellReport {
	if !r.Skipped {
		return shellReport{}
	}
	rep := shellReport{skipped: true, block: c.patcher.Block(shell.Bash)}
	if r.Family == shell.Unknown {
		rep.reason = "unrecognised shell " + os.Getenv("SHELL")
	} else {
		rep.reason = r.File + " does not exist"
		rep.block = c.patcher.Block(r.Family)
	}
	return rep
}
