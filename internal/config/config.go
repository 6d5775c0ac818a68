package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Enrich     EnrichConfig     `yaml:"enrich"`
	Sources    SourcesConfig    `yaml:"sources"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// ServerConfig holds HTTP trigger settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// TriggerTokenHash is a bcrypt hash produced by `liner hash-token`.
	// Empty disables the POST trigger endpoint.
	TriggerTokenHash string `yaml:"trigger_token_hash"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BackupDir defaults to a "backups" directory next to Path.
	BackupDir       string `yaml:"backup_dir"`
	BackupRetention int    `yaml:"backup_retention"`
	// MaintenanceInterval is how often serve optimizes and snapshots the
	// database. Zero disables scheduled maintenance.
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// EnrichConfig controls batch sizing, pacing and scheduling.
type EnrichConfig struct {
	DefaultLimit      int           `yaml:"default_limit"`
	MaxLimit          int           `yaml:"max_limit"`
	Pacing            time.Duration `yaml:"pacing"`
	BiographyStrategy string        `yaml:"biography_strategy"`
	LockDir           string        `yaml:"lock_dir"`
	// Schedule maps a target field to its batch interval. Zero or missing
	// entries disable scheduling for that field.
	Schedule map[string]time.Duration `yaml:"schedule"`
}

// SourceConfig describes one external metadata source.
type SourceConfig struct {
	BaseURL     string        `yaml:"base_url"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// SourcesConfig lists every external source the engine talks to.
type SourcesConfig struct {
	Wikidata    SourceConfig  `yaml:"wikidata"`
	WikidataAPI string        `yaml:"wikidata_api"`
	MusicBrainz SourceConfig  `yaml:"musicbrainz"`
	Wikipedia   SourceConfig  `yaml:"wikipedia"`
	FLO         SourceConfig  `yaml:"flo"`
	ManiaDB     SourceConfig  `yaml:"maniadb"`
	Spotify     SpotifyConfig `yaml:"spotify"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// SpotifyConfig holds the client-credentials pair for the streaming catalog.
type SpotifyConfig struct {
	SourceConfig `yaml:",inline"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// ResilienceConfig tunes the shared retry and cooldown behavior.
type ResilienceConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	CooldownThreshold int           `yaml:"cooldown_threshold"`
	Cooldown          time.Duration `yaml:"cooldown"`
	RetryFloor        time.Duration `yaml:"retry_floor"`
	RetryBuffer       time.Duration `yaml:"retry_buffer"`
	RetryDefault      time.Duration `yaml:"retry_default"`
}

// NotifyConfig lists outbound webhooks for enrichment events.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one notification target. Type selects the payload
// format: generic, discord, slack or gotify. Empty Events subscribes to
// enrich.completed only.
type WebhookConfig struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Type   string   `yaml:"type"`
	Events []string `yaml:"events"`
}

// Biography strategies.
const (
	BiographyExtracted = "extracted"
	BiographyTemplated = "templated"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8090,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path:                "/data/liner.db",
			BackupRetention:     7,
			MaintenanceInterval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			FileMaxSizeMB:  100,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
		Enrich: EnrichConfig{
			DefaultLimit:      100,
			MaxLimit:          300,
			Pacing:            1100 * time.Millisecond,
			BiographyStrategy: BiographyExtracted,
			LockDir:           "/data",
			Schedule: map[string]time.Duration{
				"localized": 6 * time.Hour,
			},
		},
		Sources: SourcesConfig{
			Wikidata:    SourceConfig{BaseURL: "https://query.wikidata.org/sparql", MinInterval: 250 * time.Millisecond},
			WikidataAPI: "https://www.wikidata.org/w/api.php",
			MusicBrainz: SourceConfig{BaseURL: "https://musicbrainz.org/ws/2", MinInterval: time.Second},
			Wikipedia:   SourceConfig{BaseURL: "https://{lang}.wikipedia.org/api/rest_v1", MinInterval: 250 * time.Millisecond},
			FLO:         SourceConfig{BaseURL: "https://www.music-flo.com/api", MinInterval: 500 * time.Millisecond},
			ManiaDB:     SourceConfig{BaseURL: "http://www.maniadb.com", MinInterval: time.Second},
			Spotify: SpotifyConfig{
				SourceConfig: SourceConfig{BaseURL: "https://api.spotify.com/v1", MinInterval: 500 * time.Millisecond},
				TokenURL:     "https://accounts.spotify.com/api/token",
			},
			HTTPTimeout: 15 * time.Second,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:       3,
			CooldownThreshold: 3,
			Cooldown:          60 * time.Second,
			RetryFloor:        3 * time.Second,
			RetryBuffer:       2 * time.Second,
			RetryDefault:      5 * time.Second,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("LN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LN_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("LN_TRIGGER_TOKEN_HASH"); v != "" {
		c.Server.TriggerTokenHash = v
	}
	if v := os.Getenv("LN_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LN_BACKUP_DIR"); v != "" {
		c.Database.BackupDir = v
	}
	if v := os.Getenv("LN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LN_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("LN_BIOGRAPHY_STRATEGY"); v != "" {
		c.Enrich.BiographyStrategy = v
	}
	if v := os.Getenv("LN_LOCK_DIR"); v != "" {
		c.Enrich.LockDir = v
	}
	if v := os.Getenv("LN_SPOTIFY_CLIENT_ID"); v != "" {
		c.Sources.Spotify.ClientID = v
	}
	if v := os.Getenv("LN_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Sources.Spotify.ClientSecret = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Database.BackupDir == "" {
		c.Database.BackupDir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	if c.Database.BackupRetention < 1 {
		return fmt.Errorf("database.backup_retention must be at least 1")
	}

	if c.Enrich.MaxLimit <= 0 {
		return fmt.Errorf("enrich.max_limit must be positive, got %d", c.Enrich.MaxLimit)
	}
	if c.Enrich.DefaultLimit <= 0 || c.Enrich.DefaultLimit > c.Enrich.MaxLimit {
		return fmt.Errorf("enrich.default_limit must be in 1..%d, got %d", c.Enrich.MaxLimit, c.Enrich.DefaultLimit)
	}
	if c.Enrich.Pacing < 0 {
		return fmt.Errorf("enrich.pacing must not be negative")
	}
	switch c.Enrich.BiographyStrategy {
	case BiographyExtracted, BiographyTemplated:
	default:
		return fmt.Errorf("unknown biography strategy: %q", c.Enrich.BiographyStrategy)
	}

	for i, w := range c.Notify.Webhooks {
		if !strings.HasPrefix(w.URL, "http://") && !strings.HasPrefix(w.URL, "https://") {
			return fmt.Errorf("notify.webhooks[%d]: url must be http or https", i)
		}
		switch w.Type {
		case "", "generic", "discord", "slack", "gotify":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be at least 1")
	}
	if c.Resilience.CooldownThreshold < 1 {
		return fmt.Errorf("resilience.cooldown_threshold must be at least 1")
	}
	return nil
}
