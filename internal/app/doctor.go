package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/fsutil"
	"github.com/blackwell-systems/bvm/internal/output"
	"github.com/blackwell-systems/bvm/internal/shell"
	"github.com/blackwell-systems/bvm/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common setup problems",
	Long: `Runs diagnostic checks on your bvm setup.

Checks:
  • Version root exists and has installed versions
  • Active-version file points at an installed version
  • The active version contains a bun executable
  • Your shell startup file carries the bvm PATH block
  • The current PATH includes the active version
  • Install history is readable
  • No temporary files were left behind by an interrupted write

Warnings do not fail the command. Critical problems exit with status 1.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// errDiagnostics is returned when at least one critical check fails.
var errDiagnostics = errors.New("diagnostics failed")

func runDoctor(cmd *cobra.Command, args []string) error {
	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	checks := []output.Check{
		checkRoot(c),
		checkPointer(c),
		checkExecutable(c),
		checkShell(c),
		checkPath(c),
		checkHistory(c),
		checkLeftovers(c),
	}

	critical, warnings := 0, 0
	for _, ch := range checks {
		switch {
		case ch.OK:
		case ch.Warn:
			warnings++
		default:
			critical++
		}
	}

	if err := output.Print(checks, func() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Running bvm diagnostics...")
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderChecks(checks))
		fmt.Fprintln(out)
		switch {
		case critical > 0:
			fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", critical, warnings)
		case warnings > 0:
			fmt.Fprintf(out, "Found %d warning(s). bvm is usable but not fully set up.\n", warnings)
		default:
			fmt.Fprintln(out, "✓ All checks passed!")
		}
	}); err != nil {
		return err
	}

	if critical > 0 {
		return errDiagnostics
	}
	return nil
}

func checkRoot(c *components) output.Check {
	ch := output.Check{Name: "root"}
	info, err := os.Stat(c.store.Root())
	switch {
	case errors.Is(err, os.ErrNotExist):
		ch.Warn = true
		ch.Detail = c.store.Root() + " does not exist yet. Action: run 'bvm add <version>'"
		return ch
	case err != nil:
		ch.Detail = err.Error()
		return ch
	case !info.IsDir():
		ch.Detail = c.store.Root() + " is not a directory"
		return ch
	}

	versions, err := c.store.List()
	if err != nil {
		ch.Detail = err.Error()
		return ch
	}
	if len(versions) == 0 {
		ch.Warn = true
		ch.Detail = "no versions installed. Action: run 'bvm add <version>'"
		return ch
	}
	ch.OK = true
	ch.Detail = fmt.Sprintf("%s (%d version(s))", c.store.Root(), len(versions))
	return ch
}

func checkPointer(c *components) output.Check {
	ch := output.Check{Name: "active"}
	path, ok, err := c.pointer.Get()
	if err != nil {
		ch.Detail = err.Error()
		return ch
	}
	if !ok {
		ch.Warn = true
		ch.Detail = "no active version. Action: run 'bvm switch <version>'"
		return ch
	}
	if _, err := os.Stat(path); err != nil {
		ch.Detail = fmt.Sprintf("points at missing %s. Action: run 'bvm switch <version>'", path)
		return ch
	}
	v, managed, err := c.pointer.Version()
	if err != nil {
		ch.Detail = err.Error()
		return ch
	}
	if !managed {
		ch.Warn = true
		ch.Detail = fmt.Sprintf("%s is outside %s", path, c.store.Root())
		return ch
	}
	ch.OK = true
	ch.Detail = string(v)
	return ch
}

func checkExecutable(c *components) output.Check {
	ch := output.Check{Name: "executable"}
	path, ok, err := c.pointer.Get()
	if err != nil || !ok {
		ch.Warn = true
		ch.Detail = "skipped (no active version)"
		return ch
	}
	bin := filepath.Join(path, filepath.FromSlash(cfg.BinSubpath), "bun")
	info, err := os.Stat(bin)
	if err != nil {
		ch.Warn = true
		ch.Detail = bin + " not found (interrupted install?)"
		return ch
	}
	if info.Mode().Perm()&0111 == 0 {
		ch.Warn = true
		ch.Detail = bin + " is not executable"
		return ch
	}
	ch.OK = true
	ch.Detail = bin
	return ch
}

func checkShell(c *components) output.Check {
	ch := output.Check{Name: "shell"}
	if c.family == shell.Unknown {
		ch.Warn = true
		ch.Detail = fmt.Sprintf("unrecognised shell %q; add the PATH block by hand", os.Getenv("SHELL"))
		return ch
	}
	res, err := c.patcher.Inspect(c.family)
	if err != nil {
		ch.Detail = err.Error()
		return ch
	}
	switch {
	case res.Skipped:
		ch.Warn = true
		ch.Detail = res.File + " does not exist"
	case res.BlockAdded:
		ch.Warn = true
		ch.Detail = res.File + " has no bvm PATH block. Action: run 'bvm add' or add it by hand"
	case res.Removed > 0:
		ch.Warn = true
		ch.Detail = fmt.Sprintf("%s still has %d Bun installer line(s)", res.File, res.Removed)
	default:
		ch.OK = true
		ch.Detail = res.File
	}
	return ch
}

func checkPath(c *components) output.Check {
	ch := output.Check{Name: "PATH"}
	path, ok, err := c.pointer.Get()
	if err != nil || !ok {
		ch.Warn = true
		ch.Detail = "skipped (no active version)"
		return ch
	}
	want := filepath.Clean(filepath.Join(path, filepath.FromSlash(cfg.BinSubpath)))
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(dir) == want {
			ch.OK = true
			ch.Detail = want
			return ch
		}
	}
	ch.Warn = true
	ch.Detail = want + " is not on PATH. Action: open a new shell session"
	return ch
}

func checkHistory(c *components) output.Check {
	ch := output.Check{Name: "history"}
	if c.history == nil {
		ch.Warn = true
		ch.Detail = cfg.HistoryDB + " could not be opened"
		return ch
	}
	count, err := c.history.GetEventCount()
	if err != nil {
		ch.Warn = true
		if errors.Is(err, store.ErrNotInitialized) {
			ch.Detail = "history not initialized"
		} else {
			ch.Detail = err.Error()
		}
		return ch
	}
	ch.OK = true
	ch.Detail = fmt.Sprintf("%d event(s) in %s", count, cfg.HistoryDB)
	return ch
}

func checkLeftovers(c *components) output.Check {
	ch := output.Check{Name: "temp files"}
	entries, err := os.ReadDir(c.store.Root())
	if err != nil {
		ch.OK = true
		ch.Detail = "none"
		return ch
	}
	var found []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), fsutil.TempPrefix) {
			found = append(found, e.Name())
		}
	}
	if len(found) == 0 {
		ch.OK = true
		ch.Detail = "none"
		return ch
	}
	ch.Warn = true
	ch.Detail = fmt.Sprintf("%s in %s; safe to delete", strings.Join(found, ", "), c.store.Root())
	return ch
}
