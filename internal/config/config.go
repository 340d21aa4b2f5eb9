// Package config provides unified configuration loading for neuroserve.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for neuroserve.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Services      ServicesConfig      `yaml:"services"`
	Index         IndexConfig         `yaml:"index"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// UploadsConfig holds local upload storage settings.
type UploadsConfig struct {
	Dir    string `yaml:"dir"`
	Subdir string `yaml:"subdir"`
	MaxMB  int    `yaml:"max_mb"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds task result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ServicesConfig holds settings for the built-in services.
type ServicesConfig struct {
	Enabled     []string        `yaml:"enabled"` // empty means all
	TaskTimeout time.Duration   `yaml:"task_timeout"`
	PDFReader   PDFReaderConfig `yaml:"pdf_reader"`
	TextTools   TextToolsConfig `yaml:"text_tools"`
}

// PDFReaderConfig configures the pdf_reader service.
type PDFReaderConfig struct {
	OCR          bool     `yaml:"ocr"`
	OCRLanguages []string `yaml:"ocr_languages"`
	MaxPages     int      `yaml:"max_pages"`
}

// TextToolsConfig configures the text_tools service.
type TextToolsConfig struct {
	DictionaryPath string `yaml:"dictionary_path"`
}

// IndexConfig holds settings for the services index generator.
type IndexConfig struct {
	Root        string `yaml:"root"`
	ServicesDir string `yaml:"services_dir"`
	OutputFile  string `yaml:"output_file"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// Enabled reports whether API key authentication is active.
func (a AuthConfig) Enabled() bool {
	return a.APIKey != ""
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		cfg.Uploads.Dir = ResolveRelativePath(path, cfg.Uploads.Dir)
		if cfg.Services.TextTools.DictionaryPath != "" {
			cfg.Services.TextTools.DictionaryPath = ResolveRelativePath(path, cfg.Services.TextTools.DictionaryPath)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   110 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Uploads: UploadsConfig{
			Dir:    "data/uploads",
			Subdir: "pdf",
			MaxMB:  20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "data/neuroserve.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "ns:",
			},
		},
		Services: ServicesConfig{
			TaskTimeout: 90 * time.Second,
			PDFReader: PDFReaderConfig{
				OCR:          false,
				OCRLanguages: []string{"ara", "eng"},
				MaxPages:     0,
			},
		},
		Index: IndexConfig{
			Root:        ".",
			ServicesDir: "internal/services",
			OutputFile:  "docs/services-overview.md",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "neuroserve",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres driver requires database.postgres.dsn")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}

	if c.Uploads.MaxMB < 1 {
		return fmt.Errorf("uploads.max_mb must be positive, got %d", c.Uploads.MaxMB)
	}

	if c.Services.TaskTimeout < 0 {
		return fmt.Errorf("services.task_timeout must not be negative")
	}

	if c.Services.PDFReader.MaxPages < 0 {
		return fmt.Errorf("services.pdf_reader.max_pages must not be negative")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// ServiceEnabled reports whether the named built-in service should be registered.
func (c *Config) ServiceEnabled(name string) bool {
	if len(c.Services.Enabled) == 0 {
		return true
	}
	for _, n := range c.Services.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}

	if v := os.Getenv("UPLOAD_MAX_MB"); v != "" {
		if mb, err := strconv.Atoi(v); err == nil {
			cfg.Uploads.MaxMB = mb
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("NEUROSERVE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	if v := os.Getenv("PDF_OCR"); v != "" {
		cfg.Services.PDFReader.OCR = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("AR_DICTIONARY_PATH"); v != "" {
		cfg.Services.TextTools.DictionaryPath = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
