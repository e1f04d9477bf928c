// Package main provides the scriptorium binary entry point.
// Scriptorium turns heterogeneous manuscript catalog data into normalized
// manuscript records using a language model.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/scriptorium/llm/providers"

	"github.com/c360studio/scriptorium/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "scriptorium"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Structure manuscript catalog data",
		Long: `Scriptorium turns manuscript catalog data into normalized manuscript records.

Documents (CSV, TSV, JSON, XML/TEI, Turtle, HTML, PDF or plain text) are
split into format-aware chunks, each chunk is sent to a language model for
record extraction, and the partial records are merged into one record per
manuscript identifier.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		structureCmd(flags),
		chunkCmd(flags),
		watchCmd(flags),
		runsCmd(flags),
		mcpCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// setup configures logging and loads the layered configuration.
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(f.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	// Logs go to stderr; stdout carries records.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var opts []config.LoaderOption
	if f.configPath != "" {
		opts = append(opts, config.WithConfigFile(f.configPath))
	}
	cfg, err := config.NewLoader(logger, opts...).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}
