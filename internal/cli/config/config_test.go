package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.URL != "http://localhost:8001/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.AuthScheme != "Token" {
		t.Errorf("API.AuthScheme = %q", cfg.API.AuthScheme)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.Store.Backend != BackendFile {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Cache.StaleAfter != 30*time.Second || cfg.Cache.MaxRetries != 1 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Session.MinLoginInterval != time.Second {
		t.Errorf("Session.MinLoginInterval = %v", cfg.Session.MinLoginInterval)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("Output.Format = %q", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".mulligan", "cli.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != "http://localhost:8001/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := `api:
  url: https://file.example.com/api
  timeout: 10s
output:
  format: json
cache:
  max_retries: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MULLIGAN_OUTPUT_FORMAT", "yaml")

	cfg, err := Load(path, map[string]any{"api.url": "https://flag.example.com/api"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.URL != "https://flag.example.com/api" {
		t.Errorf("API.URL = %q, want flag value", cfg.API.URL)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, want env value", cfg.Output.Format)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want file value", cfg.API.Timeout)
	}
	if cfg.Cache.MaxRetries != 3 {
		t.Errorf("Cache.MaxRetries = %d, want file value", cfg.Cache.MaxRetries)
	}
	if cfg.API.AuthScheme != "Token" {
		t.Errorf("API.AuthScheme = %q, want default", cfg.API.AuthScheme)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if got := cfg.Values()["output.format"]; got != "yaml" {
		t.Errorf(`Values()["output.format"] = %v`, got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"relative url", map[string]any{"api.url": "/api"}},
		{"unknown backend", map[string]any{"store.backend": "etcd"}},
		{"unknown format", map[string]any{"output.format": "xml"}},
		{"negative retries", map[string]any{"cache.max_retries": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(filepath.Join(t.TempDir(), "cli.yaml"), tt.overrides); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	if !strings.HasSuffix(cfg.StorePath(), "credentials") {
		t.Errorf("file StorePath() = %q", cfg.StorePath())
	}
	cfg.Store.Backend = BackendBadger
	if !strings.HasSuffix(cfg.StorePath(), "store") {
		t.Errorf("badger StorePath() = %q", cfg.StorePath())
	}
	cfg.Store.Path = "/tmp/x"
	if cfg.StorePath() != "/tmp/x" {
		t.Errorf("explicit StorePath() = %q", cfg.StorePath())
	}
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")

	if err := Set(path, "api.url", "https://golf.example.com/api"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := Set(path, "cache.max_retries", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != "https://golf.example.com/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.Cache.MaxRetries != 2 {
		t.Errorf("Cache.MaxRetries = %d", cfg.Cache.MaxRetries)
	}
}

func TestSet_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	if err := Set(path, "api.nope", "x"); err == nil {
		t.Error("Set() unknown key error = nil")
	}
	if err := Set(path, "output.format", "xml"); err == nil {
		t.Error("Set() invalid value error = nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("rejected Set() wrote the file: %v", err)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(Defaults()) {
		t.Fatalf("len(Keys()) = %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("Keys() not sorted at %d", i)
		}
	}
}
