// Package storage keeps structured runs in a NATS KV bucket so downstream
// consumers can fetch a run's records after the fact.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/scriptorium/sink"
)

// DefaultBucket is the KV bucket runs are stored in.
const DefaultBucket = "SCRIPTORIUM_RUNS"

// bucket is the subset of a KV bucket the store uses.
type bucket interface {
	put(ctx context.Context, key string, value []byte) error
	get(ctx context.Context, key string) ([]byte, error)
	keys(ctx context.Context) ([]string, error)
}

// Store provides run storage backed by NATS KV. It implements sink.Sink.
type Store struct {
	runs bucket
}

var _ sink.Sink = (*Store)(nil)

// NewStore creates a Store with the given JetStream context.
// It creates the bucket if it doesn't exist. An empty name means
// DefaultBucket.
func NewStore(ctx context.Context, js jetstream.JetStream, name string) (*Store, error) {
	if name == "" {
		name = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, name)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &Store{runs: &jsBucket{kv: kv}}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Scriptorium structured runs",
		History:     5, // Keep last 5 revisions
	})
}

// Write stores a batch under its run ID, replacing any earlier revision.
func (s *Store) Write(ctx context.Context, b sink.Batch) error {
	if strings.TrimSpace(b.RunID) == "" {
		return ErrMissingRunID
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	if err := s.runs.put(ctx, b.RunID, data); err != nil {
		return fmt.Errorf("store run %s: %w", b.RunID, err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, runID string) (*sink.Batch, error) {
	data, err := s.runs.get(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var b sink.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &b, nil
}

// List returns all stored runs, oldest first.
func (s *Store) List(ctx context.Context) ([]*sink.Batch, error) {
	return s.filter(ctx, func(*sink.Batch) bool { return true })
}

// ListBySource returns the runs produced from one source, oldest first.
func (s *Store) ListBySource(ctx context.Context, source string) ([]*sink.Batch, error) {
	return s.filter(ctx, func(b *sink.Batch) bool { return b.Source == source })
}

func (s *Store) filter(ctx context.Context, keep func(*sink.Batch) bool) ([]*sink.Batch, error) {
	keys, err := s.runs.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*sink.Batch, 0, len(keys))
	for _, key := range keys {
		b, err := s.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		if keep(b) {
			runs = append(runs, b)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

// jsBucket adapts a JetStream KeyValue to bucket.
type jsBucket struct {
	kv jetstream.KeyValue
}

func (b *jsBucket) put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

func (b *jsBucket) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value(), nil
}

func (b *jsBucket) keys(ctx context.Context) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	return keys, err
}
