// Package main implements a scripted OpenAI-compatible model server for
// offline pipeline runs. Point an endpoint at it with provider "ollama" and
// url "http://localhost:11434/v1".
//
// Replies are read from a fixture directory and routed by the request's
// "model" field. A fixture named <model>.json or <model>.txt is the reply
// for every call; numbered fixtures (<model>.1.txt, <model>.2.json, ...) are
// served in order first, after which the unnumbered one repeats. Text
// fixtures allow malformed replies; JSON fixtures must parse.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		addr       string
	)

	cmd := &cobra.Command{
		Use:          "mock-llm",
		Short:        "Serve scripted chat completions from fixture files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixtureDir == "" {
				fixtureDir = os.Getenv("MOCK_LLM_FIXTURES")
			}
			if fixtureDir == "" {
				return fmt.Errorf("no fixture directory: pass --fixtures or set MOCK_LLM_FIXTURES")
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			for model, seq := range fixtures {
				logger.Info("Loaded fixtures", "model", model, "replies", len(seq))
			}

			logger.Info("Mock LLM server listening", "addr", addr)
			srv := &http.Server{
				Addr:              addr,
				Handler:           newServer(fixtures, logger).routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory containing reply fixtures")
	cmd.Flags().StringVar(&addr, "addr", ":11434", "Listen address")

	return cmd
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type server struct {
	fixtures map[string][]string
	logger   *slog.Logger

	mu    sync.Mutex
	calls map[string]int
	total int
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	return &server{
		fixtures: fixtures,
		logger:   logger,
		calls:    make(map[string]int),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// next returns the reply for the model's next call, counting the call.
func (s *server) next(model string) (string, int, bool) {
	seq, ok := s.fixtures[model]
	if !ok {
		model = strings.TrimPrefix(model, "mock-")
		seq, ok = s.fixtures[model]
	}
	if !ok || len(seq) == 0 {
		return "", 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	n := s.calls[model]
	s.calls[model] = n + 1

	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n], s.calls[model], true
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	reply, call, ok := s.next(req.Model)
	if !ok {
		s.logger.Warn("No fixture for model", "model", req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}
	s.logger.Debug("Serving reply", "model", req.Model, "call", call, "bytes", len(reply))

	var prompt int
	for _, m := range req.Messages {
		prompt += len(m.Content)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: reply},
			FinishReason: "stop",
		}},
		// Rough estimate at four characters per token
		Usage: chatUsage{
			PromptTokens:     prompt / 4,
			CompletionTokens: len(reply) / 4,
			TotalTokens:      (prompt + len(reply)) / 4,
		},
	})
}

func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	names := make([]string, 0, len(s.fixtures))
	for name := range s.fixtures {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]modelEntry, 0, len(names))
	for _, name := range names {
		models = append(models, modelEntry{ID: name, Object: "model", OwnedBy: "mock-llm"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": models})
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byModel := make(map[string]int, len(s.calls))
	for model, n := range s.calls {
		byModel[model] = n
	}
	total := s.total
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_calls":    total,
		"calls_by_model": byModel,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fixtureRe splits "<model>[.<n>].<json|txt>".
var fixtureRe = regexp.MustCompile(`^(.+?)(?:\.(\d+))?\.(json|txt)$`)

// loadFixtures reads the reply sequence of each model: numbered fixtures in
// numeric order, then the unnumbered fixture.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	numbered := make(map[string]map[int]string)
	base := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fixtureRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if m[3] == "json" && !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", e.Name())
		}
		content := strings.TrimRight(string(data), "\n")

		model := m[1]
		if m[2] == "" {
			base[model] = content
			continue
		}
		idx, _ := strconv.Atoi(m[2])
		if numbered[model] == nil {
			numbered[model] = make(map[int]string)
		}
		numbered[model][idx] = content
	}

	fixtures := make(map[string][]string)
	for model, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[model] = append(fixtures[model], byIndex[idx])
		}
	}
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}
	return fixtures, nil
}
