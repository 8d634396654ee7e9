package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bvm/internal/config"
	"github.com/blackwell-systems/bvm/internal/output"
)

var (
	rootFlag    string
	configFlag  string
	verboseFlag bool
	jsonFlag    bool

	// cfg and logger are resolved once per invocation in setup.
	cfg    *config.Config
	logger *slog.Logger

	// RootCmd is the root command for bvm
	RootCmd = &cobra.Command{
		Use:   "bvm",
		Short: "Install and switch between Bun runtime versions",
		Long: `bvm keeps several Bun runtime versions side by side and switches the
active one for new shell sessions.

Each version lives in its own directory under the root (default ~/bvm).
The active version is recorded in ~/bvm/current_version, and a small block
in your shell startup file puts its bin directory on PATH.

Examples:
  # See what is available
  bvm browse

  # Install a version and make it active
  bvm add 1.1.34

  # Switch back to an installed version
  bvm switch 1.0.0

  # Show installed versions
  bvm list`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "bvm: Bun version manager")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'bvm browse' to see available releases.")
			fmt.Fprintln(out, "Run 'bvm --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "version root directory (default: ~/bvm, env BVM_ROOT)")
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: $XDG_CONFIG_HOME/bvm/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print machine-readable JSON")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command. Interrupts cancel the command context so an
// install in progress or a release fetch stops cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// setup resolves configuration and logging before any subcommand runs.
// Precedence for the root is flag, then BVM_ROOT, then the config file.
func setup(cmd *cobra.Command, args []string) error {
	output.JSONMode = jsonFlag
	logger = newLogger(verboseFlag)

	path := configFlag
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if rootFlag != "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		if c.Root, err = config.ResolvePath(rootFlag, home); err != nil {
			return err
		}
	}
	cfg = c

	logger.Debug("configuration loaded", "config", path, "root", cfg.Root, "history", cfg.HistoryDB)
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
