package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dorzhavian/hardwareexpress-logai/internal/config"
	"github.com/dorzhavian/hardwareexpress-logai/internal/server"
)

var version = "dev"

// debugLogging is set by the persistent --debug flag.
var debugLogging bool

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logai",
		Short: "Classify log entries as suspicious or normal",
		Long: `logai decides whether a single log entry is suspicious.

It runs either a score-based text classifier (Hugging Face Inference API or a
local ONNX model) or a rule-grounded generator, and normalizes the result into
one verdict. Configuration is read from the environment and, optionally, the
YAML file named by AI_CONFIG_FILE.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newClassifyCommand())
	cmd.AddCommand(newMCPCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// loadConfig reads configuration and builds the logger, which writes to w.
func loadConfig(w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if debugLogging {
		cfg.LogLevel = "debug"
	}
	logger := server.SetupLogger(w, cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
