package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blackwell-systems/bvm/internal/manager"
	"github.com/blackwell-systems/bvm/internal/output"
	"github.com/blackwell-systems/bvm/internal/registry"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <version> [version...]",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove installed versions",
	Long: `Remove one or more installed versions and everything inside their
directories.

Deleting the active version clears the active-version file, so new shells
fall back to whatever else is on PATH until you run 'bvm switch'.

Examples:
  bvm delete 1.0.0
  bvm delete 1.0.0 1.0.1 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	RootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	versions := make([]registry.Version, 0, len(args))
	for _, a := range args {
		v, err := parseVersion(a)
		if err != nil {
			return err
		}
		versions = append(versions, v)
	}

	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	// Check everything up front so a typo does not leave a partial delete.
	for _, v := range versions {
		ok, err := c.store.Exists(v)
		if err != nil {
			return err
		}
		if !ok {
			return explain(v, registry.ErrNotFound)
		}
	}

	if !deleteYes {
		if output.JSONMode {
			return errors.New("refusing to prompt in JSON mode; pass --yes")
		}
		if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return errors.New("cannot ask for confirmation: stdin is not a terminal; pass --yes")
		}
		if !confirmDelete(cmd.InOrStdin(), cmd.OutOrStdout(), versions) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	var progress *output.ProgressBar
	if len(versions) > 1 && !output.JSONMode {
		progress = output.NewProgress(len(versions), "Deleting versions")
	}

	results := make([]*manager.DeleteResult, 0, len(versions))
	for _, v := range versions {
		res, err := c.mgr.Delete(v)
		if err != nil {
			if progress != nil {
				progress.Finish()
			}
			return explain(v, err)
		}
		results = append(results, res)
		if progress != nil {
			progress.Increment()
		}
	}
	if progress != nil {
		progress.Finish()
	}

	return output.Print(results, func() {
		out := cmd.OutOrStdout()
		for _, res := range results {
			fmt.Fprintf(out, "✓ Deleted Bun %s\n", res.Version)
			if res.WasActive {
				fmt.Fprintln(out, "  It was the active version; no version is active now.")
				fmt.Fprintln(out, "  Run 'bvm switch <version>' to activate another one.")
			}
		}
	})
}

func confirmDelete(in io.Reader, out io.Writer, versions []registry.Version) bool {
	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = string(v)
	}
	fmt.Fprintf(out, "Delete Bun %s? [y/N]: ", strings.Join(names, ", "))

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
