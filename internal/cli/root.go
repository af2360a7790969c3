// Package cli defines the trackd command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/saildata/trackd/internal/config"
	"github.com/saildata/trackd/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trackd",
	Short: "Vessel telemetry edge agent",
	Long: "trackd samples vessel sensor streams adaptively, buffers records in a local\n" +
		"sqlite database, and delivers them to the server in acknowledged batches.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil || cmd == versionCmd {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}

		cfg = loaded
		logger = logging.NewLogger(cfg.Logging)
		return nil
	},
}

// ExecuteContext runs the root command under the given context.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
