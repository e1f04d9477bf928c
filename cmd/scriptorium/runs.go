package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/storage"
)

// runReader is the read side of the run store.
type runReader interface {
	Get(ctx context.Context, runID string) (*sink.Batch, error)
	List(ctx context.Context) ([]*sink.Batch, error)
	ListBySource(ctx context.Context, source string) ([]*sink.Batch, error)
}

var _ runReader = (*storage.Store)(nil)

// runSummary is one line of the run listing.
type runSummary struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}

func runsCmd(flags *globalFlags) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show structured runs kept in the run store",
		Long: `List the runs kept in the NATS KV run store (nats.url, nats.bucket),
oldest first, or print one run's full output by its ID.`,
		Example: `  scriptorium runs
  scriptorium runs --source inbox/catalog.csv
  scriptorium runs 3f9c2a7e-5b1d-4c1e-9a0f-2d6b8e4c7a11`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && source != "" {
				return fmt.Errorf("pass a run ID or --source, not both")
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := app.RunStore(ctx)
			if err != nil {
				return err
			}
			return printRuns(ctx, store, source, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Only list runs structured from this path")

	return cmd
}

func printRuns(ctx context.Context, runs runReader, source string, args []string, w io.Writer) error {
	if len(args) == 1 {
		b, err := runs.Get(ctx, args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		if err != nil {
			return err
		}
		return sink.Encode(w, b, true)
	}

	var (
		batches []*sink.Batch
		err     error
	)
	if source != "" {
		batches, err = runs.ListBySource(ctx, source)
	} else {
		batches, err = runs.List(ctx)
	}
	if err != nil {
		return err
	}

	summaries := make([]runSummary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, runSummary{
			RunID:     b.RunID,
			Source:    b.Source,
			CreatedAt: b.CreatedAt,
			Records:   len(b.StructuredData),
		})
	}
	return sink.Encode(w, summaries, true)
}
