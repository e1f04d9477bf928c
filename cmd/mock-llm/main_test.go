package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/scriptorium/extract"
	"github.com/c360studio/scriptorium/llm"
	_ "github.com/c360studio/scriptorium/llm/providers"
	"github.com/c360studio/scriptorium/model"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "extractor.2.json", `[{"manuscript_ID":"B"}]`)
	writeFixture(t, dir, "extractor.1.txt", "sorry, no JSON here\n")
	writeFixture(t, dir, "extractor.json", `[]`)
	writeFixture(t, dir, "classifier.txt", "paper")
	writeFixture(t, dir, "README.md", "ignored")

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["extractor"]
	want := []string{"sorry, no JSON here", `[{"manuscript_ID":"B"}]`, `[]`}
	if len(seq) != len(want) {
		t.Fatalf("expected %d extractor replies, got %v", len(want), seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, seq[i], want[i])
		}
	}
	if got := fixtures["classifier"]; len(got) != 1 || got[0] != "paper" {
		t.Errorf("unexpected classifier replies: %v", got)
	}
	if len(fixtures) != 2 {
		t.Errorf("expected 2 models, got %d", len(fixtures))
	}
}

func TestLoadFixtures_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "extractor.json", `[{"broken"`)

	if _, err := loadFixtures(dir); err == nil {
		t.Error("expected error for invalid JSON fixture")
	}
}

func newTestServer(t *testing.T, fixtures map[string][]string) (*server, *httptest.Server) {
	t.Helper()
	s := newServer(fixtures, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestServer_DrivesExtractor(t *testing.T) {
	_, ts := newTestServer(t, map[string][]string{
		"extractor": {
			"not json",
			`[{"manuscript_ID": "MS 12", "support_type": "vellum"}]`,
		},
	})

	registry := model.FromConfig(model.RegistryConfig{
		Endpoints: map[string]*model.EndpointConfig{
			"mock": {Provider: "ollama", URL: ts.URL + "/v1", Model: "mock-extractor"},
		},
		Default: "mock",
	})
	client := llm.NewClient(registry, llm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ext := extract.NewLLMExtractor(client)

	ctx := context.Background()
	if _, err := ext.Extract(ctx, "MS 12. Vellum."); !errors.Is(err, extract.ErrMalformedReply) {
		t.Fatalf("first reply should be malformed, got %v", err)
	}

	// The last fixture repeats
	for i := 0; i < 2; i++ {
		recs, err := ext.Extract(ctx, "MS 12. Vellum.")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(recs) != 1 || recs[0].ID() != "MS 12" {
			t.Errorf("unexpected records: %v", recs)
		}
	}

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()

	var stats struct {
		TotalCalls   int            `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCalls != 3 || stats.CallsByModel["extractor"] != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestServer_UnknownModel(t *testing.T) {
	_, ts := newTestServer(t, map[string][]string{"extractor": {"[]"}})

	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
		jsonBody(t, map[string]any{"model": "other", "messages": []any{}}))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_Models(t *testing.T) {
	_, ts := newTestServer(t, map[string][]string{"b": {"x"}, "a": {"y"}})

	resp, err := http.Get(ts.URL + "/v1/models")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].ID != "a" {
		t.Errorf("expected sorted models, got %+v", body.Data)
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(v))
	}()
	return pr
}
