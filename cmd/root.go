// =============================================================================
// FeliCa Ledger - Root Command
// =============================================================================
//
// COBRA CLI STRUCTURE:
//   felica
//   ├── process    batch over the dump directory
//   ├── scan       one dump, ledger to stdout
//   ├── decode     one 16-byte block
//   ├── stations   station table lookups
//   ├── serve      HTTP API
//   └── version
//
// Configuration is resolved once before any subcommand runs: --config, then
// ./config.yaml, then $HOME/.felica/config.yaml, then built-in defaults.
// FELICA_* environment variables override file values.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/felica-ledger/internal/config"
	"github.com/ginjaninja78/felica-ledger/internal/logger"
	"github.com/ginjaninja78/felica-ledger/internal/scanner"
	"github.com/ginjaninja78/felica-ledger/internal/stations"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile is the --config flag. Empty means discover.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig and log are set by loadConfig before a subcommand runs.
var (
	appConfig *config.MainConfig
	log       = zerolog.Nop()
)

// skipConfig marks commands that run without configuration.
const skipConfig = "skip-config"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "felica",
	Short: "FeliCa Ledger - decode PASMO/Suica transaction history",
	Long: `FeliCa Ledger reads the balance and history blocks of a PASMO or Suica
card, decodes and classifies every record, reconstructs train trips and
resolves station names.

Card data comes from block dumps:

  # service block data
  008B 00 0000000000000000000000D804000000
  090F 00 1601002C210000000000D80400000000

Example Usage:
  felica scan card.dump                 # print the ledger
  felica scan card.dump --format csv    # ledger as CSV
  felica decode 1601002C210000000000D80400000000
  felica process                        # convert every dump in input_dir
  felica serve                          # HTTP API`,

	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default ./config.yaml or $HOME/.felica/config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, path, err := config.Resolve(cfgFile)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	appConfig = cfg
	log = logger.New(level)

	if path != "" {
		log.Debug().Str("config", path).Msg("using config file")
	} else {
		log.Debug().Msg("no config file found, using defaults")
	}
	return nil
}

// loadStations loads the configured station table. It returns nil when no
// stations file is configured; names then stay unresolved.
func loadStations(path string) (*stations.Table, error) {
	if path == "" {
		return nil, nil
	}

	table, stats, err := stations.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	log.Info().
		Str("file", path).
		Int("loaded", stats.Loaded).
		Int("skipped", stats.Skipped).
		Int("duplicates", stats.Duplicates).
		Msg("station table loaded")
	return table, nil
}

// newScanner builds a scanner from the loaded configuration.
func newScanner() (*scanner.Scanner, error) {
	table, err := loadStations(appConfig.StationsFile)
	if err != nil {
		return nil, err
	}

	opts := scanner.Options{
		HistoryCount: appConfig.HistoryCount,
		KeepUndated:  appConfig.KeepUndated,
	}
	if table == nil {
		return scanner.New(nil, opts, log), nil
	}
	return scanner.New(table, opts, log), nil
}
