package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/scriptorium/record"
	"github.com/c360studio/scriptorium/sink"
	"github.com/c360studio/scriptorium/storage"
)

// fakeRuns serves runs from memory, oldest first.
type fakeRuns struct {
	batches []*sink.Batch
}

func (f *fakeRuns) Get(_ context.Context, runID string) (*sink.Batch, error) {
	for _, b := range f.batches {
		if b.RunID == runID {
			return b, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeRuns) List(context.Context) ([]*sink.Batch, error) {
	return f.batches, nil
}

func (f *fakeRuns) ListBySource(_ context.Context, source string) ([]*sink.Batch, error) {
	var out []*sink.Batch
	for _, b := range f.batches {
		if b.Source == source {
			out = append(out, b)
		}
	}
	return out, nil
}

func testRuns() *fakeRuns {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &fakeRuns{batches: []*sink.Batch{
		{RunID: "r1", Source: "a.csv", CreatedAt: t0, Output: sink.Output{StructuredData: []record.Record{
			{"manuscript_ID": "MS 1"}, {"manuscript_ID": "MS 2"},
		}}},
		{RunID: "r2", Source: "b.ttl", CreatedAt: t0.Add(time.Hour), Output: sink.Output{StructuredData: []record.Record{}}},
	}}
}

func TestPrintRuns_List(t *testing.T) {
	var out bytes.Buffer
	if err := printRuns(context.Background(), testRuns(), "", nil, &out); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}

	var got []runSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid output %q: %v", out.String(), err)
	}
	if len(got) != 2 || got[0].RunID != "r1" || got[0].Records != 2 || got[1].Records != 0 {
		t.Errorf("unexpected summaries: %+v", got)
	}
}

func TestPrintRuns_BySource(t *testing.T) {
	var out bytes.Buffer
	if err := printRuns(context.Background(), testRuns(), "b.ttl", nil, &out); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}

	var got []runSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
	if len(got) != 1 || got[0].RunID != "r2" {
		t.Errorf("expected only r2, got %+v", got)
	}

	out.Reset()
	if err := printRuns(context.Background(), testRuns(), "missing.csv", nil, &out); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("expected empty list, got %s", out.String())
	}
}

func TestPrintRuns_Get(t *testing.T) {
	var out bytes.Buffer
	if err := printRuns(context.Background(), testRuns(), "", []string{"r1"}, &out); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}

	var got sink.Batch
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
	if got.RunID != "r1" || len(got.StructuredData) != 2 || got.StructuredData[1].ID() != "MS 2" {
		t.Errorf("unexpected run: %+v", got)
	}

	err := printRuns(context.Background(), testRuns(), "", []string{"nope"}, &out)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppRunStore_RequiresNATS(t *testing.T) {
	if _, err := testApp(t).RunStore(context.Background()); err == nil {
		t.Error("expected error without nats.url")
	}
}

func TestRunsCmd_RunIDAndSourceExclusive(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"runs", "--source", "a.csv", "r1"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "not both") {
		t.Errorf("expected exclusivity error, got %v", err)
	}
}
