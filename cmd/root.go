package cmd

import (
	"fmt"
	"os"

	"github.com/nikogura/penalty-matrix/pkg/config"
	"github.com/nikogura/penalty-matrix/pkg/logging"
	"github.com/nikogura/penalty-matrix/pkg/statute"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X".
//
//nolint:gochecknoglobals // Build metadata
var Version = "dev"

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var logLevel string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "penalty-matrix",
	Short: "Compute statutory penalty exposure from detected violations",
	Long: `penalty-matrix prices violations detected in filings against a schedule of
statutory civil penalties and aggregates them into a per-document matrix.

Each violation is mapped to its candidate statutes, the highest enhanced
penalty is selected, and every line is validated before it counts toward
the grand total. Results are exported as JSON, CSV and Markdown.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (prints the audit trail)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.penalty-matrix/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// loadConfig loads the config and applies persistent flag overrides.
func loadConfig() (cfg config.Config, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = fmt.Errorf("failed to load config: %w", err)
		return cfg, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, err
}

func newLogger(cfg config.Config) (logger *zap.Logger) {
	logger = logging.New(cfg.LogLevel, false)
	return logger
}

// loadRegistry returns the configured schedule, or the embedded one.
func loadRegistry(cfg config.Config) (registry *statute.Registry, err error) {
	if cfg.ScheduleFile != "" {
		registry, err = statute.Load(cfg.ScheduleFile)
	} else {
		registry, err = statute.Default()
	}
	if err != nil {
		err = fmt.Errorf("failed to load statute schedule: %w", err)
		return registry, err
	}

	return registry, err
}
