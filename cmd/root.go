// =============================================================================
// Packing List Ingest - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (packlist)
//   ├── parseCmd   (packlist parse)
//   ├── processCmd (packlist process)
//   └── versionCmd (packlist version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the main configuration (--config)
//   2. Applies flag overrides (--log-level, --verbose)
//   3. Initializes the global logger
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/logger"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// logLevel overrides log_level from the configuration when set.
var logLevel string

// verbose is shorthand for --log-level debug.
var verbose bool

// mainConfig is loaded once by the root command's pre-run hook.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "packlist",
	Short: "Packing List Ingest - Normalize supplier packing lists to canonical JSON",
	Long: `Packing List Ingest converts supplier packing lists into a canonical
list of parcels, each with its parcel items.

Supported inputs:
  - Tabular workbooks (.xlsx) and CSV exports
  - ERP record XML (record/field trees)
  - Spreadsheet 2003 XML workbooks

Example Usage:
  packlist parse --file list.xlsx           # Print the payloads as JSON
  packlist process                          # Process every file in the input directory
  packlist process --config ./my.yaml -v    # Custom configuration, debug logging`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initConfig loads the configuration and sets up logging.
func initConfig() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	switch {
	case verbose:
		cfg.LogLevel = "debug"
	case logLevel != "":
		cfg.LogLevel = logLevel
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	mainConfig = cfg
	return nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (defaults apply when it is missing)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"",
		"Override the configured log level (debug, info, warn, error)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
