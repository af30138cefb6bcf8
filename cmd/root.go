package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hasiraza/LLM-Ethicallogix/internal/config"
)

var (
	cfgFile       string
	modelFlag     string
	providerFlag  string
	storeBackend  string
	storePath     string
	logLevelFlag  string
	contextWindow int
	outputFormat  string

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "hasi",
		Short: "Conversational assistant with persistent multi-session history",
		Long: "hasi is a chat assistant that keeps every conversation on disk, " +
			"feeds recent history back to the model and serves the same " +
			"conversations over a JSON HTTP API.",
		// Running hasi with no subcommand starts chat mode.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/hasi/config.yaml)")
	pf.StringVarP(&modelFlag, "model", "m", "", "override model")
	pf.StringVarP(&providerFlag, "provider", "p", "", "override provider")
	pf.StringVar(&storeBackend, "store-backend", "", "conversation store backend: json, sqlite or bolt")
	pf.StringVar(&storePath, "store-path", "", "conversation store file")
	pf.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")
	pf.IntVar(&contextWindow, "context", 0, "number of recent messages sent to the model (0=config)")
	pf.StringVarP(&outputFormat, "output-format", "o", "text", "non-interactive output format: text or jsonl")

	// Subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// displayVersion returns a formatted version string, e.g. "v0.3.1 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if storeBackend != "" {
		cfg.Storage.Backend = storeBackend
	}
	if storePath != "" {
		cfg.Storage.Path = storePath
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if contextWindow > 0 {
		cfg.Context.MaxMessages = contextWindow
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildLogger returns a stderr slog logger for cfg.Log and installs it as
// the default.
func buildLogger(lc config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
