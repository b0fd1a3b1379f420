// Command realitycheck scans source for fake implementations and gates
// change proposals against metric-gaming tricks.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bharath-kolekar/cogone-sub001/internal/engine"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/shared"
)

var version = "dev"

var (
	cfgFile   string
	logFormat string
	logLevel  string
	ledger    string
	dbPath    string

	cfg    shared.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "realitycheck",
	Short:         "Code reality and manipulation detection",
	Long:          "Scan source for fake or placeholder implementations and block change proposals that game quality metrics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = shared.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		// precedence: flags > env > config > defaults
		flags := cmd.Flags()
		if flags.Changed("log-format") {
			cfg.Logging.Format = logFormat
		}
		if flags.Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if flags.Changed("ledger") {
			cfg.Storage.Ledger = ledger
		}
		if flags.Changed("db") {
			cfg.Storage.DSN = dbPath
		}
		logger = shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to YAML config (optional)")
	pf.StringVar(&logFormat, "log-format", "json", "log format: json|text")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&ledger, "ledger", "", "JSONL ledger path (\"\" in config disables)")
	pf.StringVar(&dbPath, "db", "", "SQLite mirror path")

	rootCmd.AddCommand(scanCmd, evaluateCmd, statsCmd, rulesCmd, diffCmd, serveCmd, versionCmd)
}

func openEngine() (*engine.Engine, error) {
	return engine.Open(cfg, logger)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := engine.BuildLibrary(cfg.Rules.Packs)
		if err != nil {
			return err
		}
		fmt.Printf("realitycheck %s (IR %s, rules %s)\n", version, ir.Version, lib.Version())
		return nil
	},
}

// exitCode maps errors to process status: 2 for configuration problems,
// 1 for everything else.
func exitCode(err error) int {
	var ce *ir.ConfigurationError
	if errors.As(err, &ce) {
		return 2
	}
	return 1
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "realitycheck:", err)
		os.Exit(exitCode(err))
	}
}
