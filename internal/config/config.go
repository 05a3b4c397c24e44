// Package config implements the layered configuration this indexer is
// started with: built-in defaults, overridden by an optional TOML file,
// overridden by environment variables. The command line supplies only
// the TOML file's path; no CLI flag overrides individual settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full set of knobs this indexer needs at startup.
type Config struct {
	Backend      BackendConfig      `toml:"backend"`
	ContentStore ContentStoreConfig `toml:"content_store"`
	Ingest       IngestConfig       `toml:"ingest"`
	Log          LogConfig          `toml:"log"`
}

// Duration wraps time.Duration with text decoding, since go-toml/v2 has no
// special case for time.Duration (a bare int64) and would otherwise require
// duration fields to be written in nanoseconds instead of "30s" form.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// BackendConfig addresses the Cypher-capable graph store.
type BackendConfig struct {
	URI      string   `toml:"uri"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Timeout  Duration `toml:"timeout"`
}

// ContentStoreConfig addresses the IPFS gateway edits are fetched from.
type ContentStoreConfig struct {
	GatewayURL  string   `toml:"gateway_url"`
	Timeout     Duration `toml:"timeout"`
	MaxAttempts int      `toml:"max_attempts"`
	DefaultPin  bool     `toml:"default_pin"`
}

// IngestConfig controls the ingestion pipeline's block-stream source and
// internal concurrency.
type IngestConfig struct {
	BlockStreamAddr string `toml:"block_stream_addr"`
	Concurrency     int    `toml:"concurrency"`
}

// LogConfig controls structured-logging verbosity.
type LogConfig struct {
	Verbosity string `toml:"verbosity"`
}

// Default returns the built-in baseline every layer starts from.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URI:     "bolt://localhost:7687",
			Timeout: Duration(30 * time.Second),
		},
		ContentStore: ContentStoreConfig{
			GatewayURL:  "https://ipfs.io/ipfs",
			Timeout:     Duration(60 * time.Second),
			MaxAttempts: 3,
			DefaultPin:  false,
		},
		Ingest: IngestConfig{
			BlockStreamAddr: "localhost:9000",
			Concurrency:     10,
		},
		Log: LogConfig{
			Verbosity: "info",
		},
	}
}

// LoadFile merges a TOML file at path on top of cfg. A missing file is
// not an error: an unconfigured deployment runs on defaults plus
// environment/CLI overrides alone.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv overrides cfg's fields from the KGINDEXER_* environment
// variables, applied in a fixed order so repeated calls are
// deterministic.
func LoadEnv(cfg Config) Config {
	if v := os.Getenv("KGINDEXER_BACKEND_URI"); v != "" {
		cfg.Backend.URI = v
	}
	if v := os.Getenv("KGINDEXER_BACKEND_USERNAME"); v != "" {
		cfg.Backend.Username = v
	}
	if v := os.Getenv("KGINDEXER_BACKEND_PASSWORD"); v != "" {
		cfg.Backend.Password = v
	}
	if v := os.Getenv("KGINDEXER_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("KGINDEXER_CONTENT_STORE_GATEWAY_URL"); v != "" {
		cfg.ContentStore.GatewayURL = v
	}
	if v := os.Getenv("KGINDEXER_CONTENT_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ContentStore.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("KGINDEXER_CONTENT_STORE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContentStore.MaxAttempts = n
		}
	}
	if v := os.Getenv("KGINDEXER_INGEST_BLOCK_STREAM_ADDR"); v != "" {
		cfg.Ingest.BlockStreamAddr = v
	}
	if v := os.Getenv("KGINDEXER_INGEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Concurrency = n
		}
	}
	if v := os.Getenv("KGINDEXER_LOG_VERBOSITY"); v != "" {
		cfg.Log.Verbosity = v
	}
	return cfg
}

// Load applies the documented precedence: defaults, then tomlPath (if
// non-empty and present), then environment variables. cmd/kgindexer
// passes its --config-file flag as tomlPath and applies no further
// overrides to the returned Config.
func Load(tomlPath string) (Config, error) {
	cfg := Default()
	if tomlPath != "" {
		var err error
		cfg, err = LoadFile(cfg, tomlPath)
		if err != nil {
			return cfg, err
		}
	}
	return LoadEnv(cfg), nil
}
