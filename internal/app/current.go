package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
	"github.com/blackwell-systems/bvm/internal/store"
	"github.com/blackwell-systems/bvm/internal/watcher"
)

var currentWatch bool

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active version",
	Long: `Print the active Bun version. With --json the output also carries the
time of the last switch to it, when the install history has one.

With --watch, keep running and print the active version every time it
changes, for example from another terminal running 'bvm switch'. Stop with
Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runCurrent,
}

func init() {
	currentCmd.Flags().BoolVarP(&currentWatch, "watch", "w", false, "print the active version whenever it changes")
	RootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, args []string) error {
	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	w, err := watcher.New(c.pointer, logger)
	if err != nil {
		return err
	}
	now, err := w.Current()
	if err != nil {
		return err
	}
	if err := printChange(cmd, c, now); err != nil {
		return err
	}
	if !currentWatch {
		return nil
	}

	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx := cmd.Context()
	for {
		select {
		case ch, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if err := printChange(cmd, c, ch); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func printChange(cmd *cobra.Command, c *components, ch watcher.Change) error {
	data := map[string]any{"active": ch.Active, "version": ch.Version, "path": ch.Path}
	if at, ok := switchedAt(c, ch); ok {
		data["switched_at"] = at
	}
	return output.Print(data, func() {
		out := cmd.OutOrStdout()
		switch {
		case !ch.Active:
			fmt.Fprintln(out, "No active version.")
		case ch.Version == "":
			fmt.Fprintf(out, "%s (outside %s)\n", ch.Path, cfg.Root)
		default:
			fmt.Fprintln(out, ch.Version)
		}
	})
}

// switchedAt looks up when the active version was last switched to. It
// reports false when there is no history for it.
func switchedAt(c *components, ch watcher.Change) (time.Time, bool) {
	if c.history == nil || !ch.Active || ch.Version == "" {
		return time.Time{}, false
	}
	ev, err := c.history.LastEvent(string(ch.Version), store.ActionSwitch)
	if err != nil {
		logger.Debug("switch time unavailable", "version", ch.Version, "error", err)
		return time.Time{}, false
	}
	if ev == nil {
		return time.Time{}, false
	}
	return ev.Timestamp, true
}
