package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/scriptorium/classify"
	"github.com/c360studio/scriptorium/config"
	"github.com/c360studio/scriptorium/extract"
	"github.com/c360studio/scriptorium/llm"
	"github.com/c360studio/scriptorium/metrics"
	"github.com/c360studio/scriptorium/pipeline"
	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/storage"
)

// App wires the configured components together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// Metrics
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	server   *http.Server

	pipeline   *pipeline.Pipeline
	classifier classify.Classifier

	// NATS
	natsConn *nats.Conn
	store    *storage.Store
}

// NewApp builds the pipeline around an LLM-backed extractor.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	client := llm.NewClient(cfg.Registry(),
		llm.WithRetryConfig(cfg.Retry),
		llm.WithLogger(logger))

	ext := extract.NewLLMExtractor(client,
		extract.WithTemperature(cfg.Extraction.Temperature),
		extract.WithMaxTokens(cfg.Extraction.MaxTokens),
		extract.WithTimeout(cfg.Extraction.Timeout),
		extract.WithLogger(logger))

	app, err := newApp(cfg, logger, ext)
	if err != nil {
		return nil, err
	}
	if cfg.Classification.Enabled {
		app.classifier = classify.NewLLMClassifier(client)
	}
	return app, nil
}

func newApp(cfg *config.Config, logger *slog.Logger, ext extract.Extractor) (*App, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	p, err := pipeline.New(ext,
		pipeline.WithChunking(cfg.ChunkerConfig()),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		pipeline: p,
	}, nil
}

// Structure runs the pipeline over one document and classifies the result
// when classification is enabled.
func (a *App) Structure(ctx context.Context, req pipeline.Request) (sink.Batch, error) {
	result, err := a.pipeline.Run(ctx, req)
	if err != nil {
		return sink.Batch{}, err
	}

	batch := sink.Batch{
		RunID:     result.RunID,
		Source:    req.Filename,
		CreatedAt: time.Now().UTC(),
		Output:    sink.Output{StructuredData: result.StructuredData},
	}
	if a.classifier != nil {
		batch.Classifications, err = classify.Records(ctx, a.classifier, result.StructuredData)
		if err != nil {
			return sink.Batch{}, err
		}
	}
	return batch, nil
}

// StartMetrics serves the Prometheus endpoint on addr. An empty addr
// disables it.
func (a *App) StartMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("Serving metrics", "addr", addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
}

// Publishers connects to NATS when a URL is configured and returns the
// sinks that deliver there: the subject publisher and, when a bucket is
// configured, the run store.
func (a *App) Publishers(ctx context.Context) ([]sink.Sink, error) {
	if a.cfg.NATS.URL == "" {
		return nil, nil
	}

	if err := a.connect(); err != nil {
		return nil, err
	}
	sinks := []sink.Sink{sink.NewNATS(a.natsConn, a.cfg.NATS.Subject)}

	if a.cfg.NATS.Bucket != "" {
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}
	return sinks, nil
}

// RunStore opens the run store for reading. An unset nats.bucket means
// storage.DefaultBucket.
func (a *App) RunStore(ctx context.Context) (*storage.Store, error) {
	if a.cfg.NATS.URL == "" {
		return nil, errors.New("the run store needs nats.url")
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a.openStore(ctx)
}

func (a *App) connect() error {
	if a.natsConn != nil {
		return nil
	}
	a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
	conn, err := sink.Connect(a.cfg.NATS.URL, appName)
	if err != nil {
		return err
	}
	a.natsConn = conn
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	store, err := storage.NewStore(ctx, js, a.cfg.NATS.Bucket)
	if err != nil {
		return nil, fmt.Errorf("initialize run store: %w", err)
	}
	a.store = store
	return store, nil
}

// Shutdown stops the metrics server and drains the NATS connection.
func (a *App) Shutdown(timeout time.Duration) {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics server shutdown", "error", err)
		}
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.natsConn.Close()
		}
	}
}
