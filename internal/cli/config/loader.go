package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/maps"
	"gopkg.in/yaml.v3"

	"github.com/mulligan-golf/mulligan-go/internal/infra/confloader"
)

// DefaultDir returns the per-user state directory.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".mulligan"
	}
	return filepath.Join(homeDir, ".mulligan")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "cli.yaml")
}

// Load resolves the configuration. overrides carries flag values keyed by
// dotted path and wins over every other source. A missing file is not an
// error.
func Load(path string, overrides map[string]any) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	l := confloader.NewLoader(
		confloader.WithDefaults(Defaults()),
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
		confloader.WithDotEnv(".env"),
	)
	cfg := &Config{path: path}
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.values = l.All()
	return cfg, nil
}

// decode builds a Config from the defaults overlaid with values only.
func decode(values map[string]any) (*Config, error) {
	l := confloader.NewLoader()
	if err := l.LoadMap(Defaults()); err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := l.LoadMap(values); err != nil {
			return nil, err
		}
	}
	cfg := &Config{}
	if err := l.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.values = l.All()
	return cfg, nil
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(Defaults()))
	for k := range Defaults() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set writes one key to the YAML file at path, keeping the other keys.
// The result must still validate; otherwise the file is left unchanged.
func Set(path, key, value string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, ok := Defaults()[key]; !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}

	current := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if current == nil {
			current = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	flat, _ := maps.Flatten(current, nil, ".")
	flat[key] = scalar(value)

	probe, err := decode(flat)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := probe.Validate(); err != nil {
		return err
	}

	out, err := yaml.Marshal(maps.Unflatten(flat, "."))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeFile(path, out)
}

// scalar keeps YAML typing for command line values, so "3" is stored as
// an integer and "true" as a boolean.
func scalar(value string) any {
	var v any
	if err := yaml.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	switch v.(type) {
	case bool, int, float64:
		return v
	}
	return value
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cli-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
