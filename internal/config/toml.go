// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Server   ServerConfig   `toml:"server"`
	TextGen  TextGenConfig  `toml:"textgen"`
	Store    StoreConfig    `toml:"store"`
	Identity IdentityConfig `toml:"identity"`
}

// PracticeConfig maps terminal practice settings.
type PracticeConfig struct {
	Minutes *int    `toml:"minutes"`
	Mode    *string `toml:"mode"`
	Name    *string `toml:"name"`
	Email   *string `toml:"email"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr               *string  `toml:"addr"`
	Env                *string  `toml:"env"`
	AllowedOrigins     []string `toml:"allowed-origins"`
	RateLimit          *float64 `toml:"rate-limit"`
	RateBurst          *int     `toml:"rate-burst"`
	DailyCheckInterval *string  `toml:"daily-check-interval"`
	Timezone           *string  `toml:"timezone"`
	LogFormat          *string  `toml:"log-format"`
	LogLevel           *string  `toml:"log-level"`
}

// TextGenConfig maps text generation settings.
type TextGenConfig struct {
	Provider     *string `toml:"provider"`
	Model        *string `toml:"model"`
	MaxRetries   *int    `toml:"max-retries"`
	Timeout      *string `toml:"timeout"`
	TextsPath    *string `toml:"texts"`
	WordListPath *string `toml:"wordlist"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Backend       *string `toml:"backend"`
	Path          *string `toml:"path"`
	MongoURI      *string `toml:"mongo-uri"`
	MongoDatabase *string `toml:"mongo-database"`
}

// IdentityConfig maps contestant identity settings.
type IdentityConfig struct {
	Key            *string `toml:"key"`
	GoogleClientID *string `toml:"google-client-id"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// DefaultConfigTemplate is written by `neontype config` when no file exists.
const DefaultConfigTemplate = `# neontype configuration

[practice]
# minutes = 1
# mode = "practice"
# name = ""
# email = ""

[server]
# addr = ":5000"
# env = "development"
# allowed-origins = ["*"]
# rate-limit = 1.0
# rate-burst = 5
# daily-check-interval = "1h"
# timezone = "Local"
# log-format = "text"
# log-level = "info"

[textgen]
# provider = "gemini"
# model = "gemini-2.5-pro"
# max-retries = 3
# timeout = "30s"
# texts = ""
# wordlist = ""

[store]
# backend = "sqlite"
# path = ""
# mongo-uri = "mongodb://localhost:27017"
# mongo-database = "neontype"

[identity]
# key = "email"
# google-client-id = ""
`
