package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/me/schedkit/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagAPIKey    string
	flagDB        string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the API server from SCHEDKIT_SERVER. Empty means
// analyses run in-process.
func defaultServer() string {
	return os.Getenv("SCHEDKIT_SERVER")
}

// defaultDB returns the result cache path, checking SCHEDKIT_DB first.
func defaultDB() string {
	if s := os.Getenv("SCHEDKIT_DB"); s != "" {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".schedkit", "results.db")
}

// NewRootCmd creates the root cobra command for the schedkit CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedkit",
		Short: "schedkit: schedulability analysis for real-time task sets",
		Long: `schedkit decides whether a set of periodic or sporadic tasks meets its
deadlines on one or more processors, and designs periodic resource
interfaces for hierarchical scheduling.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			var err error
			logger, err = logging.New(logging.Options{Level: flagLogLevel, Format: flagLogFormat}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if flagServer != "" {
				client = NewClient(flagServer, flagAPIKey, logger)
			} else {
				client = nil
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Run analyses on a schedkit server (or SCHEDKIT_SERVER env)")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", os.Getenv("SCHEDKIT_API_KEY"), "API key sent to the server (or SCHEDKIT_API_KEY env)")
	root.PersistentFlags().StringVar(&flagDB, "db", os.Getenv("SCHEDKIT_DB"), "Result cache database; empty disables caching (history defaults to ~/.schedkit/results.db)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json, pretty)")

	root.AddCommand(
		newAnalyzeCmd(),
		newFamilyCmd(),
		newDesignCmd(),
		newAlgorithmsCmd(),
		newBatchCmd(),
		newGenCmd(),
		newHistoryCmd(),
	)

	return root
}
