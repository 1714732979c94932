// Package config loads undolog settings from a YAML file and HOPSAN_UNDO_* environment
// variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Hopsan/hopsan-sub008/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOPSAN_UNDO_"

// Config is the full runtime configuration.
type Config struct {
	LogLevel string      `mapstructure:"log_level" yaml:"log_level"`
	Store    StoreConfig `mapstructure:"store" yaml:"store"`
	HTTP     HTTPConfig  `mapstructure:"http" yaml:"http"`
}

// StoreConfig selects and configures the history backend.
type StoreConfig struct {
	// Backend is one of memory, file, redis or sqlite.
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Compress bool   `mapstructure:"compress" yaml:"compress"`
	// EncryptionKey is a hex-encoded 32-byte AES key; empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`

	File   FileConfig   `mapstructure:"file" yaml:"file"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

type FileConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Format string `mapstructure:"format" yaml:"format"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// envKeys maps environment suffixes to dotted config paths.
var envKeys = map[string]string{
	"LOG_LEVEL":            "log_level",
	"STORE_BACKEND":        "store.backend",
	"STORE_COMPRESS":       "store.compress",
	"STORE_ENCRYPTION_KEY": "store.encryption_key",
	"STORE_FALLBACK_KEYS":  "store.fallback_keys",
	"FILE_PATH":            "store.file.path",
	"FILE_FORMAT":          "store.file.format",
	"REDIS_ADDR":           "store.redis.addr",
	"REDIS_PASSWORD":       "store.redis.password",
	"REDIS_DB":             "store.redis.db",
	"REDIS_PREFIX":         "store.redis.prefix",
	"REDIS_TTL":            "store.redis.ttl",
	"SQLITE_PATH":          "store.sqlite.path",
	"HTTP_ADDR":            "http.addr",
}

func defaults() map[string]any {
	return map[string]any{
		"log_level": "info",
		"store": map[string]any{
			"backend":  "file",
			"compress": false,
			"file": map[string]any{
				"path":   ".undolog/histories",
				"format": "json",
			},
			"redis": map[string]any{
				"addr":   "localhost:6379",
				"prefix": "undolog:history:",
			},
			"sqlite": map[string]any{
				"path": ".undolog/histories.db",
			},
		},
		"http": map[string]any{
			"addr": ":8080",
		},
	}
}

// Load reads path (optional; a missing file means defaults) and applies environment
// overrides from the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			var fromFile map[string]any
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			merge(raw, fromFile)
		}
	}

	for suffix, key := range envKeys {
		if v, ok := lookup(EnvPrefix + suffix); ok {
			set(raw, strings.Split(key, "."), v)
		}
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, isMap := v.(map[string]any)
		existing, hasMap := dst[k].(map[string]any)
		if isMap && hasMap {
			merge(existing, sub)
			continue
		}
		dst[k] = v
	}
}

func set(m map[string]any, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

// Validate checks enumerations and key material.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "memory", "file", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Store.File.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown file format %q", c.Store.File.Format)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the active and fallback encryption keys. A nil active key means
// encryption is off.
func (s StoreConfig) Keys() ([]byte, [][]byte, error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("fallback keys set without an encryption key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	var fallback [][]byte
	for i, k := range s.FallbackKeys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}
