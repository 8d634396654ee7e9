package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
)

var listPlain bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed versions",
	Long: `List installed versions in version order. The active version is marked
with an asterisk.

A directory left behind by a failed install is listed like any other
version; delete it with 'bvm delete <version>'.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listPlain, "plain", false, "print version names only, one per line")
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newComponents(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.close()

	versions, err := c.mgr.List()
	if err != nil {
		return err
	}

	return output.Print(versions, func() {
		if listPlain {
			fmt.Fprint(cmd.OutOrStdout(), output.RenderVersionList(versions))
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), output.RenderVersionTable(versions))
	})
}
