// Package mcpserver exposes the structuring pipeline as Model Context
// Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/c360studio/scriptorium/classify"
	"github.com/c360studio/scriptorium/pipeline"
	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/source"
	"github.com/c360studio/scriptorium/source/chunker"
	"github.com/c360studio/scriptorium/source/parser"
)

// Name is the implementation name announced to clients.
const Name = "scriptorium"

// MetadataStructureManuscripts describes the structure_manuscripts tool.
var MetadataStructureManuscripts = &mcp.Tool{
	Name: "structure_manuscripts",
	Description: "Turn manuscript catalog data into normalized manuscript records. " +
		"The document is split into chunks, each chunk is extracted by a language model, " +
		"and partial records are merged into one record per manuscript identifier. " +
		"Supported formats: csv, tsv, json, xml, tei, ttl, turtle, html, txt.",
	InputSchema: map[string]any{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Raw catalog document",
			},
			"extension": map[string]any{
				"type":        "string",
				"description": "Format tag of the document. Defaults to txt; unknown tags are read as plain text.",
			},
			"classify": map[string]any{
				"type":        "boolean",
				"description": "Also map materials, scripts, decorations, formats, bindings and inks onto controlled vocabularies.",
			},
		},
	},
}

// InputStructureManuscripts is the input for the structure_manuscripts tool.
type InputStructureManuscripts struct {
	Content   string `json:"content"`
	Extension string `json:"extension,omitempty"`
	Classify  bool   `json:"classify,omitempty"`
}

// MetadataChunkDocument describes the chunk_document tool.
var MetadataChunkDocument = &mcp.Tool{
	Name:        "chunk_document",
	Description: "Split a catalog document into the chunks the extractor would receive, without calling a model.",
	InputSchema: map[string]any{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Raw catalog document",
			},
			"extension": map[string]any{
				"type":        "string",
				"description": "Format tag of the document. Defaults to txt.",
			},
		},
	},
}

// InputChunkDocument is the input for the chunk_document tool.
type InputChunkDocument struct {
	Content   string `json:"content"`
	Extension string `json:"extension,omitempty"`
}

// OutputChunkDocument is the output for the chunk_document tool.
type OutputChunkDocument struct {
	Format string         `json:"format"`
	Chunks []source.Chunk `json:"chunks"`
}

// Server holds the collaborators the tools run against.
type Server struct {
	pipeline   *pipeline.Pipeline
	classifier classify.Classifier
	chunking   chunker.Config
	parsers    *parser.Registry
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClassifier enables the classify input of structure_manuscripts.
func WithClassifier(c classify.Classifier) Option {
	return func(s *Server) { s.classifier = c }
}

// WithChunking sets the thresholds used by chunk_document. It should match
// the pipeline's.
func WithChunking(cfg chunker.Config) Option {
	return func(s *Server) { s.chunking = cfg }
}

// WithTimeout bounds each structure_manuscripts call.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates the tool server.
func New(p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		chunking: chunker.DefaultConfig(),
		parsers:  parser.DefaultRegistry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer returns an MCP server with the tools registered.
func (s *Server) MCPServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	mcp.AddTool(server, MetadataStructureManuscripts, s.StructureManuscripts)
	mcp.AddTool(server, MetadataChunkDocument, s.ChunkDocument)
	return server
}

// Run serves the tools over stdio until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, version string) error {
	s.logger.Info("Serving MCP tools over stdio", "version", version)
	return s.MCPServer(version).Run(ctx, &mcp.StdioTransport{})
}

// StructureManuscripts runs the pipeline over the provided document.
func (s *Server) StructureManuscripts(ctx context.Context, _ *mcp.CallToolRequest, input InputStructureManuscripts) (*mcp.CallToolResult, sink.Output, error) {
	if input.Content == "" {
		return nil, sink.Output{}, fmt.Errorf("content is required")
	}
	if input.Classify && s.classifier == nil {
		return nil, sink.Output{}, fmt.Errorf("classification is not enabled on this server")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	doc, err := s.parsers.ParseAs("", input.Extension, []byte(input.Content))
	if err != nil {
		return nil, sink.Output{}, err
	}

	result, err := s.pipeline.Run(ctx, pipeline.Request{Content: doc.Content, Extension: doc.Extension})
	if err != nil {
		return nil, sink.Output{}, fmt.Errorf("structuring aborted: %w", err)
	}

	out := sink.Output{StructuredData: result.StructuredData}
	if input.Classify {
		out.Classifications, err = classify.Records(ctx, s.classifier, result.StructuredData)
		if err != nil {
			return nil, sink.Output{}, err
		}
	}
	if out.StructuredData == nil {
		out.StructuredData = []record.Record{}
	}
	return nil, out, nil
}

// ChunkDocument returns the chunk sequence of the provided document.
func (s *Server) ChunkDocument(_ context.Context, _ *mcp.CallToolRequest, input InputChunkDocument) (*mcp.CallToolResult, OutputChunkDocument, error) {
	if input.Content == "" {
		return nil, OutputChunkDocument{}, fmt.Errorf("content is required")
	}

	doc, err := s.parsers.ParseAs("", input.Extension, []byte(input.Content))
	if err != nil {
		return nil, OutputChunkDocument{}, err
	}

	chunks := chunker.Split(doc, s.chunking)
	if chunks == nil {
		chunks = []source.Chunk{}
	}
	return nil, OutputChunkDocument{Format: doc.Tag(), Chunks: chunks}, nil
}
