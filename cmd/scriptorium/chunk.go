package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/source"
	"github.com/c360studio/scriptorium/source/chunker"
	"github.com/c360studio/scriptorium/source/parser"
)

func chunkCmd(flags *globalFlags) *cobra.Command {
	var (
		ext   string
		stdin bool
	)

	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Print the chunks a document splits into",
		Long:  "Split a document with the configured thresholds and print the chunks as JSON. No model is called.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdin && len(args) == 0 {
				return fmt.Errorf("no input: pass a file or --stdin")
			}
			cfg, _, err := flags.setup()
			if err != nil {
				return err
			}

			var (
				path    string
				content []byte
			)
			if stdin {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				path = args[0]
				content, err = os.ReadFile(path)
			}
			if err != nil {
				return err
			}
			return printChunks(cmd.OutOrStdout(), cfg.ChunkerConfig(), path, ext, content)
		},
	}

	cmd.Flags().StringVar(&ext, "ext", "", "Format tag overriding the file extension")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the document from stdin")

	return cmd
}

func printChunks(w io.Writer, cfg chunker.Config, path, ext string, content []byte) error {
	if ext == "" {
		ext = parser.Tag(path)
	}
	doc, err := parser.DefaultRegistry.ParseAs(path, ext, content)
	if err != nil {
		return err
	}

	chunks := chunker.Split(doc, cfg)
	if chunks == nil {
		chunks = []source.Chunk{}
	}
	return sink.Encode(w, chunks, true)
}
