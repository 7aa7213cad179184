package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/objdb/core/store/kv"
)

func TestLoad_Default(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "db: /tmp/queue\nbackend: leveldb\nhistory: 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/queue", cfg.DB)
	require.Equal(t, kv.BackendLevelDB, cfg.Backend)
	require.Equal(t, "rewardqueue", cfg.Bucket)
	require.Equal(t, "error", cfg.LogLevel)
	require.Equal(t, 3, cfg.History)
}

func TestLoad_Env(t *testing.T) {
	path := writeFile(t, "db: /tmp/queue\nbucket: a\n")

	t.Setenv("OBJDB_DB", "/tmp/other")
	t.Setenv("OBJDB_BUCKET", "b")
	t.Setenv("LLVL", "debug")
	t.Setenv("OBJDB_HISTORY", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Config{
		DB:       "/tmp/other",
		Backend:  kv.BackendBolt,
		Bucket:   "b",
		LogLevel: "debug",
		History:  5,
	}, cfg)
}

func TestLoad_Failures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config: ")

	_, err = Load(writeFile(t, "unknown: 1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse config: ")

	_, err = Load(writeFile(t, "backend: mongo\n"))
	require.EqualError(t, err, "invalid config: unknown backend 'mongo'")

	t.Setenv("OBJDB_HISTORY", "abc")

	_, err = Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read environment: ")
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Backend = kv.BackendLevelDB
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.DB = ""
	require.EqualError(t, cfg.Validate(), "missing database path")

	cfg = Default()
	cfg.Bucket = ""
	require.EqualError(t, cfg.Validate(), "missing bucket")

	cfg = Default()
	cfg.History = -1
	require.EqualError(t, cfg.Validate(), "negative history: -1")
}

// -----------------------------------------------------------------------------
// Utility functions

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")

	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)

	return path
}
