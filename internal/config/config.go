// Package config loads the catalog service configuration.
//
// Sources, lowest priority first: built-in defaults, an optional YAML file,
// an optional .env file and CATALOG_* environment variables. Environment
// keys map onto dotted paths: CATALOG_STORE_PATH sets store.path.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CATALOG_"

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Store   StoreConfig   `koanf:"store"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Auth    AuthConfig    `koanf:"auth"`
}

type HTTPConfig struct {
	Port     int           `koanf:"port" validate:"min=1,max=65535"`
	Shutdown time.Duration `koanf:"shutdown" validate:"gt=0"`
}

type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=file memory postgres"`
	Path   string `koanf:"path" validate:"required_if=Driver file"`
	DSN    string `koanf:"dsn" validate:"required_if=Driver postgres"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token" validate:"required_if=Enabled true"`
}

type AuthConfig struct {
	Secret string        `koanf:"secret" validate:"required_with=Email"`
	Email  string        `koanf:"email" validate:"omitempty,email"`
	Hash   string        `koanf:"hash" validate:"required_with=Email"`
	TTL    time.Duration `koanf:"ttl" validate:"gt=0"`
}

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.HTTP.Port) }

func defaults() map[string]any {
	return map[string]any{
		"http.port":       8082,
		"http.shutdown":   "10s",
		"store.driver":    DriverFile,
		"store.path":      "products.json",
		"log.level":       "info",
		"metrics.enabled": false,
		"auth.ttl":        "15m",
	}
}

// Options point the loader at its optional files. Empty paths are skipped.
type Options struct {
	File    string
	EnvFile string
}

func Load(opts Options) (Config, error) {
	var cfg Config
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", opts.File, err)
		}
	}

	if opts.EnvFile != "" {
		vals, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("read %s: %w", opts.EnvFile, err)
		}
		m := make(map[string]any, len(vals))
		for key, v := range vals {
			if strings.HasPrefix(key, EnvPrefix) {
				m[envKey(key)] = v
			}
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return cfg, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", ".")
}
