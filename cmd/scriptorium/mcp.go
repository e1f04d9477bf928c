package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/scriptorium/mcpserver"
)

func mcpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the structuring tools over MCP stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
structure_manuscripts and chunk_document tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}

			opts := []mcpserver.Option{
				mcpserver.WithChunking(cfg.ChunkerConfig()),
				mcpserver.WithLogger(logger),
			}
			if app.classifier != nil {
				opts = append(opts, mcpserver.WithClassifier(app.classifier))
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return mcpserver.New(app.pipeline, opts...).Run(ctx, Version)
		},
	}
}
