// Package config loads the configuration of the database tool from an
// optional YAML file, overridden by environment variables.
package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.dedis.ch/objdb/core/store/kv"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of the database tool.
type Config struct {
	// DB is the path of the database.
	DB string `yaml:"db" env:"OBJDB_DB"`

	// Backend is the engine of the database, either bolt or leveldb.
	Backend kv.Backend `yaml:"backend" env:"OBJDB_BACKEND"`

	// Bucket is the bucket of the database where the queue is saved.
	Bucket string `yaml:"bucket" env:"OBJDB_BUCKET"`

	// LogLevel is the level of the global logger.
	LogLevel string `yaml:"log_level" env:"LLVL"`

	// History is the number of committed sessions kept to be reverted with
	// undo.Manager.PopRevision. Revisions live in memory only, so the setting
	// serves programs that keep the queue open across operations. The objdb
	// command runs one operation per process and has nothing to revert.
	History int `yaml:"history" env:"OBJDB_HISTORY"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DB:       "objdb.db",
		Backend:  kv.BackendBolt,
		Bucket:   "rewardqueue",
		LogLevel: "error",
		History:  0,
	}
}

// Load returns the configuration of the file, if the path is not empty, on top
// of the default one. Environment variables take precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, xerrors.Errorf("failed to read config: %v", err)
		}

		err = yaml.UnmarshalStrict(data, &cfg)
		if err != nil {
			return cfg, xerrors.Errorf("failed to parse config: %v", err)
		}
	}

	err := env.Parse(&cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read environment: %v", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid config: %v", err)
	}

	return cfg, nil
}

// Validate returns an error if a value of the configuration is not supported.
func (cfg Config) Validate() error {
	if cfg.DB == "" {
		return xerrors.New("missing database path")
	}

	switch cfg.Backend {
	case kv.BackendBolt, kv.BackendLevelDB:
	default:
		return xerrors.Errorf("unknown backend '%s'", cfg.Backend)
	}

	if cfg.Bucket == "" {
		return xerrors.New("missing bucket")
	}

	if cfg.History < 0 {
		return xerrors.Errorf("negative history: %d", cfg.History)
	}

	return nil
}
