package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/watcher"
)

type watchOptions struct {
	dir         string
	outDir      string
	existing    bool
	metricsAddr string
}

func watchCmd(flags *globalFlags) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Structure catalog files as they appear in a directory",
		Long: `Watch a directory tree and structure every catalog file that is created
or changed. Output is written to the output directory and, when nats.url is
set, published to NATS and the run store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dir = args[0]
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if opts.dir != "" {
				cfg.Watch.Dir = opts.dir
			}
			if opts.outDir != "" {
				cfg.Watch.OutputDir = opts.outDir
			}
			if opts.metricsAddr == "" {
				opts.metricsAddr = cfg.Metrics.Addr
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			w, err := watcher.New(cfg.WatcherConfig(), cfg.Watch.Dir, logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			publishers, err := app.Publishers(ctx)
			if err != nil {
				return err
			}
			dest := append(sink.Multi{sink.NewFile(cfg.Watch.OutputDir)}, publishers...)

			app.StartMetrics(opts.metricsAddr)
			return runWatch(ctx, app, w, dest, opts.existing)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Directory to watch (default watch.dir)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (default watch.output_dir)")
	cmd.Flags().BoolVar(&opts.existing, "existing", false, "Also structure matching files already present at startup")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runWatch(ctx context.Context, app *App, w *watcher.DocWatcher, dest sink.Sink, existing bool) error {
	var initial []watcher.Event
	if existing {
		var err error
		if initial, err = w.Existing(); err != nil {
			return fmt.Errorf("scan existing files: %w", err)
		}
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for _, ev := range initial {
		if err := handleEvent(ctx, app, dest, ev); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			app.logger.Info("Watcher shutting down", "dropped_events", w.DroppedEvents())
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := handleEvent(ctx, app, dest, ev); err != nil {
				return err
			}
		}
	}
}

// handleEvent structures one changed file. Per-document failures are
// logged; only cancellation stops the loop.
func handleEvent(ctx context.Context, app *App, dest sink.Sink, ev watcher.Event) error {
	if ev.Operation == watcher.OpDelete {
		app.logger.Debug("Catalog file removed", "path", ev.Path)
		return nil
	}

	content, err := os.ReadFile(ev.AbsPath)
	if err != nil {
		app.logger.Warn("Failed to read catalog file", "path", ev.Path, "error", err)
		return nil
	}

	err = structureOne(ctx, app, dest, ev.AbsPath, "", content)
	switch {
	case err == nil:
		app.logger.Info("Structured catalog file", "path", ev.Path, "operation", ev.Operation)
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		return nil
	default:
		app.logger.Error("Failed to structure catalog file", "path", ev.Path, "error", err)
	}
	return nil
}
