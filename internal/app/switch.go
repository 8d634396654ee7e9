package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
)

var switchCmd = &cobra.Command{
	Use:     "switch <version>",
	Aliases: []string{"use"},
	Short:   "Make an installed version active",
	Long: `Point the active-version file at an installed version.

The running shell is not changed; open a new shell session to pick up the
switch. Switching to a version that is not installed leaves the active
version as it was.

Examples:
  bvm switch 1.0.0
  bvm use 1.1.34`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func init() {
	RootCmd.AddCommand(switchCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	v, err := parseVersion(args[0])
	if err != nil {
		return err
	}

	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.mgr.Switch(v); err != nil {
		return explain(v, err)
	}

	// The pointer is useless without the PATH block, so report when the
	// startup file still needs one. Add is what writes it.
	sr, err := c.patcher.Inspect(c.family)
	if err != nil {
		logger.Warn("cannot inspect shell startup file", "error", err)
	}

	data := map[string]any{"version": v, "path": c.store.Path(v)}
	return output.Print(data, func() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Now using Bun %s\n", v)
		if err == nil && sr.BlockAdded && !sr.Skipped {
			fmt.Fprintf(out, "⚠ %s has no bvm PATH block; run 'bvm doctor' for details.\n", sr.File)
		}
		fmt.Fprintln(out, "Open a new shell session to use it.")
	})
}
