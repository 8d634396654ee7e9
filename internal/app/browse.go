package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
	"github.com/blackwell-systems/bvm/internal/releases"
)

var browseCmd = &cobra.Command{
	Use:   "browse [page]",
	Short: "List published Bun releases",
	Long: `List published Bun releases, newest first, ten per page.

Page 1 is shown when no page is given. The footer names the next page to
request, or says that this was the last one.

Examples:
  bvm browse
  bvm browse 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	RootCmd.AddCommand(browseCmd)
}

// parsePage reads the optional page argument. Anything that is not a whole
// number of at least 1 is rejected with a message instead of a parse error.
func parsePage(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page %q: must be a positive number", args[0])
	}
	return n, nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	n, err := parsePage(args)
	if err != nil {
		return err
	}

	var spinner *output.Spinner
	if !output.JSONMode {
		spinner = output.NewSpinner(fmt.Sprintf("Fetching releases (page %d)", n))
		spinner.Start()
	}

	page, err := newBrowser().FetchPage(cmd.Context(), n)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	return output.Print(browseResult(page), func() {
		fmt.Fprint(cmd.OutOrStdout(), output.RenderReleasePage(page))
	})
}

type releaseJSON struct {
	Label   string `json:"label"`
	Version string `json:"version,omitempty"`
}

type pageJSON struct {
	Page     int           `json:"page"`
	Releases []releaseJSON `json:"releases"`
	HasMore  bool          `json:"has_more"`
	Next     int           `json:"next,omitempty"`
}

func browseResult(p *releases.Page) pageJSON {
	out := pageJSON{Page: p.Number, HasMore: p.HasMore, Next: p.Next, Releases: []releaseJSON{}}
	for _, label := range p.Releases {
		out.Releases = append(out.Releases, releaseJSON{Label: label, Version: releases.VersionFromLabel(label)})
	}
	return out
}
