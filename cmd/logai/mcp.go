package main

import (
	"github.com/spf13/cobra"

	"github.com/dorzhavian/hardwareexpress-logai/internal/mcpserver"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the classify_log tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; logs go to stderr.
			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := newService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			return mcpserver.New(svc.decider, version, logger).RunStdio(cmd.Context())
		},
	}
}
