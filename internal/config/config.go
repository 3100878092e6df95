// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package config loads LibraryHub settings from defaults, a YAML file,
// the environment, and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/libraryhub/libraryhub/internal/logging"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Environment variables carrying connection strings.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvMongoURI    = "MONGO_URI"
)

// Config is the resolved LibraryHub configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Loan    LoanConfig    `koanf:"loan"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig selects and addresses the backing store.
type StoreConfig struct {
	Driver   string         `koanf:"driver"`
	Postgres PostgresConfig `koanf:"postgres"`
	Mongo    MongoConfig    `koanf:"mongo"`
}

// PostgresConfig addresses a PostgreSQL database.
type PostgresConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
	// MaxRetries bounds transactor retries of serialization failures.
	MaxRetries uint64 `koanf:"max_retries"`
}

// MongoConfig addresses a MongoDB database.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// LoanConfig holds lending policy.
type LoanConfig struct {
	Period time.Duration `koanf:"period"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Defaults returns the built-in configuration values keyed by koanf path.
func Defaults() map[string]any {
	return map[string]any{
		"store.driver":               DriverMemory,
		"store.postgres.max_conns":   int32(10),
		"store.postgres.max_retries": uint64(3),
		"store.mongo.database":       "libraryhub",
		"loan.period":                "336h",
		"metrics.addr":               "127.0.0.1:9100",
		"log.format":                 "json",
		"log.level":                  "info",
		"timeout":                    "30s",
	}
}

// Flag names bound to configuration keys.
var flagKeys = map[string]string{
	"store":          "store.driver",
	"mongo-database": "store.mongo.database",
	"loan-period":    "loan.period",
	"metrics-addr":   "metrics.addr",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"timeout":        "timeout",
}

// RegisterFlags adds the configuration flags to fs. Their defaults are
// informational; unset flags never override file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "config file (default $XDG_CONFIG_HOME/libraryhub/config.yaml)")
	fs.String("env-file", "", "dotenv file with DATABASE_URL / MONGO_URI")
	fs.String("store", d["store.driver"].(string), "store driver (memory, postgres, mongo)")
	fs.String("mongo-database", d["store.mongo.database"].(string), "MongoDB database name")
	fs.Duration("loan-period", 14*24*time.Hour, "loan period for new borrowings")
	fs.String("metrics-addr", d["metrics.addr"].(string), "observability server address")
	fs.String("log-format", d["log.format"].(string), "log format (json, text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.Duration("timeout", 30*time.Second, "per-command timeout")
}

// Sources names where configuration is read from.
type Sources struct {
	// ConfigFile is an explicit YAML file. Missing explicit files are an error.
	ConfigFile string
	// DefaultConfigFile is read only if it exists.
	DefaultConfigFile string
	// EnvFile is a dotenv file. Missing explicit files are an error.
	EnvFile string
	// DefaultEnvFile is read only if it exists.
	DefaultEnvFile string
	// Flags supplies command-line overrides; may be nil.
	Flags *pflag.FlagSet
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration and validates it.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if err := loadYAML(k, src.ConfigFile, src.DefaultConfigFile); err != nil {
		return nil, err
	}

	if err := loadEnv(k, src); err != nil {
		return nil, err
	}

	if src.Flags != nil {
		provider := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(k *koanf.Koanf, explicit, fallback string) error {
	path := explicit
	if path == "" {
		if fallback == "" {
			return nil
		}
		if _, err := os.Stat(fallback); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = fallback
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	}
	return nil
}

// loadEnv applies DATABASE_URL and MONGO_URI. The process environment wins
// over the dotenv file; the dotenv file never mutates the environment.
func loadEnv(k *koanf.Koanf, src Sources) error {
	lookup := src.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	dotenv, err := readDotenv(src.EnvFile, src.DefaultEnvFile)
	if err != nil {
		return err
	}

	bindings := map[string]string{
		EnvDatabaseURL: "store.postgres.url",
		EnvMongoURI:    "store.mongo.uri",
	}
	for env, key := range bindings {
		val, ok := lookup(env)
		if !ok {
			val, ok = dotenv[env]
		}
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}
	return nil
}

func readDotenv(explicit, fallback string) (map[string]string, error) {
	path := explicit
	if path == "" {
		if fallback == "" {
			return nil, nil
		}
		if _, err := os.Stat(fallback); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		path = fallback
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, oops.Code("ENV_FILE_INVALID").With("path", path).Wrap(err)
	}
	return vals, nil
}

// Validate checks driver requirements and value ranges.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).
				Errorf("%s is required for the postgres store", EnvDatabaseURL)
		}
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).
				Errorf("%s is required for the mongo store", EnvMongoURI)
		}
		if c.Store.Mongo.Database == "" {
			return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).
				Errorf("store.mongo.database must not be empty")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("driver", c.Store.Driver).
			Errorf("unknown store driver %q (want memory, postgres or mongo)", c.Store.Driver)
	}

	if c.Loan.Period <= 0 {
		return oops.Code("CONFIG_INVALID").With("loan.period", c.Loan.Period).Errorf("loan period must be positive")
	}
	if c.Timeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("timeout", c.Timeout).Errorf("timeout must be positive")
	}
	if !logging.ValidFormat(c.Log.Format) {
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).Errorf("log format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
