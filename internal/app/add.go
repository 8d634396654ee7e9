package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
)

var addCmd = &cobra.Command{
	Use:   "add <version>",
	Short: "Install a Bun version and make it active",
	Long: `Install a Bun version into its own directory under the root and make it
the active version.

The official install script is run for the requested version, the runtime
it produces is moved into the version directory, and the shell startup file
for your $SHELL (bash, zsh or fish) is updated to read the active version
from the pointer file.

If the install script fails, the empty version directory is left behind.
Remove it with 'bvm delete <version>' before retrying.

Examples:
  bvm add 1.1.34
  bvm add v1.0.0`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	RootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	v, err := parseVersion(args[0])
	if err != nil {
		return err
	}

	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	var spinner *output.Spinner
	if !output.JSONMode && !verboseFlag {
		spinner = output.NewSpinner(fmt.Sprintf("Installing Bun %s", v)).WithElapsed()
		spinner.Start()
	}

	res, err := c.mgr.Add(cmd.Context(), v)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return explain(v, err)
	}

	return output.Print(res, func() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Installed Bun %s in %s\n", res.Version, res.Dir)
		if res.Shell.Changed {
			fmt.Fprintf(out, "✓ Updated %s", res.Shell.File)
			if res.Shell.Removed > 0 {
				fmt.Fprintf(out, " (removed %d installer line(s))", res.Shell.Removed)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "✓ Now using Bun %s\n", res.Version)
		if res.ShellRefresh {
			printShellHint(out, reportShell(c, res.Shell))
		}
	})
}
