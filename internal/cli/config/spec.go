package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the configuration of mulligan-cli.
type Config struct {
	API     APIConfig     `koanf:"api"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
	Output  OutputConfig  `koanf:"output"`

	// values is the flattened effective configuration.
	values map[string]any
	// path is the file the configuration was read from.
	path string
}

// APIConfig configures the transport and API client.
type APIConfig struct {
	URL        string        `koanf:"url"`
	AuthScheme string        `koanf:"auth_scheme"`
	LoginPath  string        `koanf:"login_path"`
	Timeout    time.Duration `koanf:"timeout"`
	CAFile     string        `koanf:"ca_file"`
	Insecure   bool          `koanf:"insecure"`
}

// StoreConfig configures where the token is persisted.
type StoreConfig struct {
	Backend    string        `koanf:"backend"`
	Path       string        `koanf:"path"`
	Passphrase string        `koanf:"passphrase"`
	TTL        time.Duration `koanf:"ttl"`
}

// CacheConfig sets the default query cache policy.
type CacheConfig struct {
	StaleAfter time.Duration `koanf:"stale_after"`
	MaxRetries int           `koanf:"max_retries"`
}

// SessionConfig configures the session manager.
type SessionConfig struct {
	MinLoginInterval time.Duration `koanf:"min_login_interval"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	Format string `koanf:"format"`
}

// Defaults returns the built-in defaults keyed by dotted path.
func Defaults() map[string]any {
	return map[string]any{
		"api.url":                    "http://localhost:8001/api",
		"api.auth_scheme":            "Token",
		"api.login_path":             "/users/login/",
		"api.timeout":                "30s",
		"api.ca_file":                "",
		"api.insecure":               false,
		"store.backend":              BackendFile,
		"store.path":                 "",
		"store.passphrase":           "",
		"store.ttl":                  "0s",
		"cache.stale_after":          "30s",
		"cache.max_retries":          1,
		"session.min_login_interval": "1s",
		"log.level":                  "warn",
		"log.format":                 "text",
		"output.format":              "table",
	}
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	cfg, err := decode(nil)
	if err != nil {
		// The built-in defaults always decode.
		panic(err)
	}
	cfg.path = DefaultConfigPath()
	return cfg
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("api.url %q is not an absolute URL", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	switch c.Store.Backend {
	case BackendFile, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of file, badger, memory", c.Store.Backend)
	}
	if c.Cache.StaleAfter < 0 || c.Cache.MaxRetries < 0 {
		return fmt.Errorf("cache.stale_after and cache.max_retries must not be negative")
	}
	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output.format %q is not one of table, json, yaml", c.Output.Format)
	}
	return nil
}

// StorePath returns the token location for the configured backend.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == BackendBadger {
		return filepath.Join(DefaultDir(), "store")
	}
	return filepath.Join(DefaultDir(), "credentials")
}

// Values returns the flattened effective configuration.
func (c *Config) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Path returns the configuration file in use.
func (c *Config) Path() string {
	return c.path
}
