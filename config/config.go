// Package config loads server configuration from an optional YAML file,
// a .env file, and environment variable overrides (in that order of
// precedence, last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env          string        `yaml:"env"`
	Port         int           `yaml:"port"`
	BaseURL      string        `yaml:"base_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type SessionCfg struct {
	// Secret signs the auth token cookie. Required.
	Secret         string `yaml:"secret"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type StorageCfg struct {
	// Driver selects the user store backend: "mongo" (default) or "fs".
	Driver string `yaml:"driver"`
	// Path is the storage directory for the fs driver.
	Path string `yaml:"path"`
}

type MongoCfg struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type ProviderCfg struct {
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	CallbackURL  string `yaml:"callbackURL"`
}

// Enabled reports whether this provider is configured at all. Unconfigured
// providers are simply not mounted.
func (p ProviderCfg) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type Config struct {
	App     AppCfg      `yaml:"app"`
	Session SessionCfg  `yaml:"session"`
	Storage StorageCfg  `yaml:"storage"`
	Mongo   MongoCfg    `yaml:"mongo"`
	Google  ProviderCfg `yaml:"google"`
	Github  ProviderCfg `yaml:"github"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	override("PORT", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	})
	override("BASE_URL", func(v string) { cfg.App.BaseURL = v })
	override("SESSION_SECRET", func(v string) { cfg.Session.Secret = v })
	override("SESSION_TIMEOUT_SECONDS", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.TimeoutSeconds = n
		}
	})
	override("STORAGE_DRIVER", func(v string) { cfg.Storage.Driver = v })
	override("STORAGE_PATH", func(v string) { cfg.Storage.Path = v })
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("MONGO_COLLECTION", func(v string) { cfg.Mongo.Collection = v })
	override("OAUTH2_GOOGLE_CLIENT_ID", func(v string) { cfg.Google.ClientID = v })
	override("OAUTH2_GOOGLE_CLIENT_SECRET", func(v string) { cfg.Google.ClientSecret = v })
	override("OAUTH2_GOOGLE_CALLBACK_URL", func(v string) { cfg.Google.CallbackURL = v })
	override("OAUTH2_GITHUB_CLIENT_ID", func(v string) { cfg.Github.ClientID = v })
	override("OAUTH2_GITHUB_CLIENT_SECRET", func(v string) { cfg.Github.ClientSecret = v })
	override("OAUTH2_GITHUB_CALLBACK_URL", func(v string) { cfg.Github.CallbackURL = v })

	applyDefaults(cfg)

	if cfg.Session.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required (set in .env or config.yaml)")
	}
	if cfg.Storage.Driver == "mongo" && cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required when the mongo storage driver is selected")
	}
	if cfg.Storage.Driver == "fs" && cfg.Storage.Path == "" {
		return nil, errors.New("STORAGE_PATH is required when the fs storage driver is selected")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.ReadTimeout == 0 {
		cfg.App.ReadTimeout = 10 * time.Second
	}
	if cfg.App.WriteTimeout == 0 {
		cfg.App.WriteTimeout = 15 * time.Second
	}
	if cfg.App.IdleTimeout == 0 {
		cfg.App.IdleTimeout = 60 * time.Second
	}
	if cfg.Session.TimeoutSeconds == 0 {
		cfg.Session.TimeoutSeconds = 86400
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "mongo"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "addrbook"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "users"
	}
}
