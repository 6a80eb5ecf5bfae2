// shelftrack tracks which shelf location holds each scanned barcode
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/internal/logger"
)

var (
	// Global flags
	cfgFile    string
	remoteAddr string
	backend    string
	storePath  string
	logLevel   string
	debugMode  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shelftrack",
	Short: "Barcode-to-shelf inventory tracker",
	Long: `shelftrack records which location in a shelf hierarchy holds each barcode.

Locations are slash-separated paths such as Warehouse/ShelfB. A barcode lives
in exactly one location; scanning it somewhere else asks before moving it.

Commands run against the configured store directly, or against a running
"shelftrack serve" when --remote is given.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "shelftrack.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", "", "gRPC address of a running server, e.g. localhost:50051")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Store backend: file, sqlite, redis or memory")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Document path for the file backend")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Panic on invariant violations")

	rootCmd.AddCommand(
		serveCmd,
		assignCmd,
		moveCmd,
		findCmd,
		rmCmd,
		lsCmd,
		mkdirCmd,
		clearCmd,
		scanCmd,
	)
}

// loadConfig reads the config file, then applies global flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Store.Backend = backend
	}
	if flags.Changed("store") {
		cfg.Store.Path = storePath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("debug") {
		cfg.Engine.Debug = debugMode
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. One-shot commands log to stderr so
// their stdout stays clean.
func newLogger(cfg *config.Config) *logger.Logger {
	logger.InitGlobalLogger(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})
	return logger.GetGlobalLogger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
