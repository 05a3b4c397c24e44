package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultCarriesDocumentedBudgets(t *testing.T) {
	cfg := Default()
	require.Equal(t, Duration(30*time.Second), cfg.Backend.Timeout)
	require.Equal(t, Duration(60*time.Second), cfg.ContentStore.Timeout)
	require.Equal(t, 3, cfg.ContentStore.MaxAttempts)
	require.Equal(t, 10, cfg.Ingest.Concurrency)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kgindexer.toml")
	contents := `
[backend]
uri = "bolt://db.internal:7687"

[ingest]
concurrency = 4
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	require.Equal(t, "bolt://db.internal:7687", cfg.Backend.URI)
	require.Equal(t, 4, cfg.Ingest.Concurrency)
	require.Equal(t, Duration(60*time.Second), cfg.ContentStore.Timeout) // untouched by the file
}

func TestLoadFileParsesDurationStrings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kgindexer.toml")
	contents := `
[backend]
timeout = "5s"

[content_store]
timeout = "2m"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	require.Equal(t, Duration(5*time.Second), cfg.Backend.Timeout)
	require.Equal(t, Duration(2*time.Minute), cfg.ContentStore.Timeout)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg, err := LoadFile(Default(), filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("KGINDEXER_BACKEND_URI", "bolt://env-host:7687")
	t.Setenv("KGINDEXER_INGEST_CONCURRENCY", "7")

	cfg := LoadEnv(Default())
	require.Equal(t, "bolt://env-host:7687", cfg.Backend.URI)
	require.Equal(t, 7, cfg.Ingest.Concurrency)
}
