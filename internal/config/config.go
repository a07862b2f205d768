// Package config loads runtime configuration from an optional YAML file and
// SAUCE_-prefixed environment variables, with env taking precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	HashID  HashIDConfig  `koanf:"hashid"`
}

type ServerConfig struct {
	Port int `koanf:"port"`

	// Timeout bounds each request end to end, in seconds.
	Timeout int `koanf:"timeout"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type HashIDConfig struct {
	// Secret feeds the per-review id salt. The process refuses to start
	// without it.
	Secret string `koanf:"secret"`
}

// RequestTimeout returns the server timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.Timeout) * time.Second
}

// Load reads config.yaml (or the file named by SAUCE_CONFIG) when present,
// then overlays environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv("SAUCE_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Load environment variables
	if err := k.Load(env.Provider("SAUCE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SAUCE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.timeout") {
		k.Set("server.timeout", 30)
	}
	if !k.Exists("storage.driver") {
		k.Set("storage.driver", "sqlite")
	}
	if !k.Exists("storage.dsn") {
		k.Set("storage.dsn", "./data/saucelist.db")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
