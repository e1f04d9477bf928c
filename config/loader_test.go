package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func testLoader(home, cwd string, opts ...LoaderOption) *Loader {
	l := NewLoader(nil, opts...)
	l.home = home
	l.cwd = cwd
	return l
}

func TestLoader_DefaultsOnly(t *testing.T) {
	root := t.TempDir()

	cfg, err := testLoader(filepath.Join(root, "home"), filepath.Join(root, "work")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Chunking.Size != 2000 {
		t.Errorf("expected default size, got %d", cfg.Chunking.Size)
	}
}

func TestLoader_Layering(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home")
	project := filepath.Join(root, "project")
	cwd := filepath.Join(project, "catalogs", "2024")
	if err := os.MkdirAll(cwd, 0755); err != nil {
		t.Fatalf("failed to create cwd: %v", err)
	}

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
chunking:
  size: 1500
  max_rows: 10
watch:
  dir: user-inbox
`)
	// Found by searching upward from cwd
	writeFile(t, filepath.Join(project, ProjectConfigFile), `
chunking:
  max_rows: 25
watch:
  output_dir: project-out
`)
	explicit := filepath.Join(root, "explicit.yaml")
	writeFile(t, explicit, `
watch:
  output_dir: explicit-out
`)

	cfg, err := testLoader(home, cwd, WithConfigFile(explicit)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chunking.Size != 1500 {
		t.Errorf("expected user size 1500, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.MaxRows != 25 {
		t.Errorf("expected project max_rows 25, got %d", cfg.Chunking.MaxRows)
	}
	if cfg.Watch.Dir != "user-inbox" {
		t.Errorf("expected user watch dir, got %s", cfg.Watch.Dir)
	}
	if cfg.Watch.OutputDir != "explicit-out" {
		t.Errorf("expected explicit output dir, got %s", cfg.Watch.OutputDir)
	}
}

func TestLoader_ExplicitFileMissing(t *testing.T) {
	root := t.TempDir()
	_, err := testLoader(root, root, WithConfigFile(filepath.Join(root, "missing.yaml"))).Load()
	if err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SCRIPTORIUM_CHUNK_SIZE", "800")
	t.Setenv("SCRIPTORIUM_CHUNK_OVERLAP_PERCENT", "0")
	t.Setenv("SCRIPTORIUM_EXTRACTION_TIMEOUT", "45s")
	t.Setenv("SCRIPTORIUM_EXTRACTION_TEMPERATURE", "0")
	t.Setenv("SCRIPTORIUM_CLASSIFY", "true")
	t.Setenv("SCRIPTORIUM_NATS_URL", "nats://env:4222")
	t.Setenv("SCRIPTORIUM_WATCH_PATTERNS", "**/*.csv,**/*.ttl")

	writeFile(t, filepath.Join(root, ProjectConfigFile), `
chunking:
  size: 1200
extraction:
  temperature: 0.5
`)

	cfg, err := testLoader(filepath.Join(root, "home"), root).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chunking.Size != 800 {
		t.Errorf("env should win over file, got size %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.OverlapPercent != 0 {
		t.Errorf("explicit zero overlap should apply, got %d", cfg.Chunking.OverlapPercent)
	}
	if cfg.Extraction.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Extraction.Timeout)
	}
	if cfg.Extraction.Temperature != 0 {
		t.Errorf("explicit zero temperature should apply, got %f", cfg.Extraction.Temperature)
	}
	if !cfg.Classification.Enabled {
		t.Error("expected classification enabled from env")
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("expected env NATS URL, got %s", cfg.NATS.URL)
	}
	if len(cfg.Watch.Patterns) != 2 || cfg.Watch.Patterns[1] != "**/*.ttl" {
		t.Errorf("unexpected patterns: %v", cfg.Watch.Patterns)
	}
}

func TestLoader_DotEnv(t *testing.T) {
	root := t.TempDir()
	const key = "SCRIPTORIUM_METRICS_ADDR"
	t.Cleanup(func() { os.Unsetenv(key) })

	writeFile(t, filepath.Join(root, DotEnvFile), key+"=:9191\n")

	cfg, err := testLoader(filepath.Join(root, "home"), root).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Metrics.Addr != ":9191" {
		t.Errorf("expected metrics addr from .env, got %q", cfg.Metrics.Addr)
	}
}

func TestLoader_InvalidResult(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SCRIPTORIUM_MODEL_DEFAULT", "nowhere")

	if _, err := testLoader(filepath.Join(root, "home"), root).Load(); err == nil {
		t.Error("expected validation error for unknown default endpoint")
	}
}

func TestLoader_EnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	l := testLoader(home, home)

	path, err := l.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("created config should load: %v", err)
	}

	// Second call leaves the file alone
	if _, err := l.EnsureUserConfig(); err != nil {
		t.Errorf("second EnsureUserConfig() error = %v", err)
	}
}
