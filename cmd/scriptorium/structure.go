package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/c360studio/scriptorium/pipeline"
	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/source/parser"
)

type structureOptions struct {
	ext         string
	stdin       bool
	outDir      string
	publish     bool
	classify    bool
	timeout     time.Duration
	metricsAddr string
}

func structureCmd(flags *globalFlags) *cobra.Command {
	opts := &structureOptions{}

	cmd := &cobra.Command{
		Use:   "structure [file or glob]...",
		Short: "Structure catalog files into manuscript records",
		Long: `Structure each input document and emit {"structured_data": [...]}.

Inputs are file paths or doublestar globs such as 'catalogs/**/*.csv'.
Without --out the output of each document is written to stdout.`,
		Example: `  scriptorium structure catalog.csv
  scriptorium structure --out structured 'inbox/**/*.{ttl,xml}'
  cat export.tsv | scriptorium structure --stdin --ext tsv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.stdin && len(args) == 0 {
				return fmt.Errorf("no input: pass files or --stdin")
			}
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if opts.metricsAddr == "" {
				opts.metricsAddr = cfg.Metrics.Addr
			}
			if !opts.publish {
				cfg.NATS.URL = ""
			}
			if opts.classify {
				cfg.Classification.Enabled = true
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if opts.timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			app.StartMetrics(opts.metricsAddr)
			return runStructure(ctx, app, opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.ext, "ext", "", "Format tag overriding the file extension (csv, tsv, json, xml, tei, ttl, turtle, html, pdf, txt)")
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read one document from stdin")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Write <name>"+sink.Suffix+" files into this directory instead of stdout")
	cmd.Flags().BoolVar(&opts.classify, "classify", false, "Add controlled-vocabulary classifications to the output")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Also publish each batch to NATS (nats.url) and the run store (nats.bucket)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Abort after this long; a canceled document produces no output")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runStructure(ctx context.Context, app *App, opts *structureOptions, args []string, stdin io.Reader, stdout io.Writer) error {
	var out sink.Sink = sink.NewWriter(stdout)
	if opts.outDir != "" {
		out = sink.NewFile(opts.outDir)
	}
	publishers, err := app.Publishers(ctx)
	if err != nil {
		return err
	}
	dest := append(sink.Multi{out}, publishers...)

	if opts.stdin {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return structureOne(ctx, app, dest, "", opts.ext, content)
	}

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := structureOne(ctx, app, dest, path, opts.ext, content); err != nil {
			return err
		}
	}
	return nil
}

func structureOne(ctx context.Context, app *App, dest sink.Sink, path, ext string, content []byte) error {
	if ext == "" {
		ext = parser.Tag(path)
	}
	doc, err := parser.DefaultRegistry.ParseAs(path, ext, content)
	if err != nil {
		return err
	}

	batch, err := app.Structure(ctx, pipeline.Request{
		Content:   doc.Content,
		Extension: doc.Extension,
		Filename:  path,
	})
	if err != nil {
		if path == "" {
			return fmt.Errorf("structure stdin: %w", err)
		}
		return fmt.Errorf("structure %s: %w", path, err)
	}
	return dest.Write(ctx, batch)
}

// expandInputs resolves each argument as a doublestar glob. Arguments
// without glob metacharacters are kept as literal paths so a missing file
// is reported by the read instead of silently matching nothing.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 && !hasMeta(arg) {
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %v", args)
	}
	return paths, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
