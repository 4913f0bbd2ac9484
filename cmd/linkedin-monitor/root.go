package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MihirGambhire/linkedin-monitor/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linkedin-monitor",
	Short: "LinkedIn keyword monitor",
	Long: `linkedin-monitor watches LinkedIn for posts matching configured
keyword categories. Each run searches every category, deduplicates the
hits, screenshots the posts through a headless browser, archives them,
and emails an HTML digest.

Example usage:
  linkedin-monitor run                      # Full run with config.yaml
  linkedin-monitor run --dry-run            # Search only, JSON to stdout
  linkedin-monitor run --categories BESS    # Restrict to one category
  linkedin-monitor history --since 7d       # Show posts archived this week
  linkedin-monitor categories               # List the configured watch list`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads the configuration and builds the logger every
// subcommand shares. Without --config, a config.yaml next to the
// binary is used when present and the built-in defaults otherwise.
func initConfig() error {
	var err error
	switch {
	case cfgFile != "":
		cfg, err = config.Load(cfgFile)
	default:
		if _, statErr := os.Stat("config.yaml"); statErr == nil {
			cfg, err = config.Load("config.yaml")
		} else {
			cfg, err = config.FromEnvironment()
		}
	}
	if err != nil {
		return err
	}

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)
	return nil
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Structured {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
