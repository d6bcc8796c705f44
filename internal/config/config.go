// Package config loads moviesearch settings from an optional YAML file, a .env
// file and the process environment, in that order of precedence (lowest first).
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

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// RenderWait bounds how long a handler waits for an in-flight fetch
	// before rendering the loader instead.
	RenderWait time.Duration `yaml:"render_wait"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type CatalogConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ImageBaseURL string        `yaml:"image_base_url"`
	Token        string        `yaml:"token"`
	Language     string        `yaml:"language"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Policy  string `yaml:"policy"`
	Trigger string `yaml:"trigger"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Output      string `yaml:"output"`
	Development bool   `yaml:"development"`
}

// Load reads path (if non-empty), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Catalog.BaseURL, "TMDB_BASE_URL")
	setString(&cfg.Catalog.ImageBaseURL, "TMDB_IMAGE_BASE_URL")
	setString(&cfg.Catalog.Token, "TMDB_TOKEN")
	setString(&cfg.Catalog.Language, "TMDB_LANGUAGE")
	setString(&cfg.Session.Policy, "SESSION_POLICY")
	setString(&cfg.Session.Trigger, "SESSION_TRIGGER")
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")

	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.Database.Port = port
	}

	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEVELOPMENT: %w", err)
		}
		cfg.Logging.Development = dev
	}

	durations := []struct {
		dst *time.Duration
		env string
	}{
		{&cfg.Server.RenderWait, "RENDER_WAIT"},
		{&cfg.Server.SessionTTL, "SESSION_TTL"},
		{&cfg.Catalog.Timeout, "TMDB_TIMEOUT"},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.RenderWait == 0 {
		cfg.Server.RenderWait = 3 * time.Second
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}

	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Catalog.ImageBaseURL == "" {
		cfg.Catalog.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if cfg.Catalog.Language == "" {
		cfg.Catalog.Language = "en-US"
	}

	if cfg.Session.Policy == "" {
		cfg.Session.Policy = "append"
	}
	if cfg.Session.Trigger == "" {
		cfg.Session.Trigger = "scroll"
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "./moviesearch.db"
	}
	if cfg.Database.Type == "postgres" {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.User == "" {
			cfg.Database.User = "moviesearch"
		}
		if cfg.Database.Name == "" {
			cfg.Database.Name = "moviesearch"
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Catalog.Token == "" {
		return errors.New("catalog token is required (set TMDB_TOKEN)")
	}
	switch c.Session.Policy {
	case "replace", "append":
	default:
		return fmt.Errorf("unknown session policy %q", c.Session.Policy)
	}
	switch c.Session.Trigger {
	case "control", "scroll":
	default:
		return fmt.Errorf("unknown session trigger %q", c.Session.Trigger)
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Catalog.Timeout < 0 {
		return errors.New("catalog timeout cannot be negative")
	}
	return nil
}
