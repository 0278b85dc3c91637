package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"feed-server.yaml",
	"feed-server.yml",
	"/etc/kvideo/feed-server.yaml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "KVIDEO_CONFIG"

const envPrefix = "KVIDEO_"

// envMappings routes environment variables whose koanf path is deeper than
// section.key. Everything else maps mechanically, e.g.
// KVIDEO_SERVER_PORT -> server.port, KVIDEO_CATALOG_BASE_URL -> catalog.base_url.
var envMappings = map[string]string{
	"history_redis_addr":     "history.redis.addr",
	"history_redis_password": "history.redis.password",
	"history_redis_db":       "history.redis.db",
	"history_sqlite_path":    "history.sqlite.path",
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it. An empty path triggers the
// default search; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing path from the env override and
// the default search list, or empty when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return strings.Replace(key, "_", ".", 1)
}
