package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/sink"
)

// memBucket is an in-memory bucket.
type memBucket struct {
	mu      sync.Mutex
	entries map[string][]byte
	failPut error
}

func newMemBucket() *memBucket {
	return &memBucket{entries: make(map[string][]byte)}
}

func (m *memBucket) put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return m.failPut
	}
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *memBucket) get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memBucket) keys(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func batch(id, source string, at time.Time) sink.Batch {
	return sink.Batch{
		RunID:     id,
		Source:    source,
		CreatedAt: at,
		Output: sink.Output{StructuredData: []record.Record{
			{"manuscript_ID": "MS " + id, "source_text": "row"},
		}},
	}
}

func TestStore_WriteAndGet(t *testing.T) {
	ctx := context.Background()
	s := &Store{runs: newMemBucket()}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Write(ctx, batch("r1", "a.csv", t0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "a.csv" {
		t.Errorf("expected source a.csv, got %s", got.Source)
	}
	if len(got.StructuredData) != 1 || got.StructuredData[0].ID() != "MS r1" {
		t.Errorf("unexpected records: %v", got.StructuredData)
	}
	if !got.CreatedAt.Equal(t0) {
		t.Errorf("expected created_at %v, got %v", t0, got.CreatedAt)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := &Store{runs: newMemBucket()}

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_WriteRequiresRunID(t *testing.T) {
	s := &Store{runs: newMemBucket()}

	err := s.Write(context.Background(), batch(" ", "a.csv", time.Now()))
	if !errors.Is(err, ErrMissingRunID) {
		t.Errorf("expected ErrMissingRunID, got %v", err)
	}
}

func TestStore_WriteError(t *testing.T) {
	boom := errors.New("bucket unavailable")
	mem := newMemBucket()
	mem.failPut = boom
	s := &Store{runs: mem}

	err := s.Write(context.Background(), batch("r1", "a.csv", time.Now()))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped put error, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	mem := newMemBucket()
	s := &Store{runs: mem}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, b := range []sink.Batch{
		batch("z", "a.csv", t0),
		batch("a", "b.csv", t0.Add(time.Hour)),
		batch("m", "a.csv", t0.Add(2*time.Hour)),
	} {
		if err := s.Write(ctx, b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	mem.entries["broken"] = []byte("{not json")

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, b := range all {
		ids = append(ids, b.RunID)
	}
	if want := []string{"z", "a", "m"}; !equal(ids, want) {
		t.Errorf("expected %v oldest first, got %v", want, ids)
	}

	fromA, err := s.ListBySource(ctx, "a.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fromA) != 2 {
		t.Errorf("expected 2 runs for a.csv, got %d", len(fromA))
	}
}

func TestStore_ListEmpty(t *testing.T) {
	runs, err := (&Store{runs: newMemBucket()}).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
