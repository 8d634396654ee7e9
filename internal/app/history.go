package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/output"
	"github.com/blackwell-systems/bvm/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent installs, deletes and switches",
	Long: `Show the most recent changes bvm made, newest first.

The history is kept in a SQLite database outside the version root
(default ~/.local/state/bvm/history.db). It is informational only; deleting
it does not affect installed versions.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show (0 for all)")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", historyLimit)
	}

	events, err := loadHistory(cfg.HistoryDB, historyLimit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*store.Event{}
	}

	return output.Print(events, func() {
		fmt.Fprint(cmd.OutOrStdout(), output.RenderHistory(events))
	})
}

// loadHistory reads events without creating the database when it is absent.
func loadHistory(path string, limit int) ([]*store.Event, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return []*store.Event{}, nil
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer st.Close()

	events, err := st.ListEvents(limit)
	if errors.Is(err, store.ErrNotInitialized) {
		return []*store.Event{}, nil
	}
	return events, err
}
