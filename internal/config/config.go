package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the wardwatch service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Detection DetectionConfig `mapstructure:"detection"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds a pgx-compatible connection string.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration for sync cursor state
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// ArchiveConfig holds OpenSearch configuration for the raw-log archive
type ArchiveConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Insecure    bool   `mapstructure:"insecure"`
	Enabled     bool   `mapstructure:"enabled"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

// NATSConfig holds NATS configuration for alert event publishing
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// DetectionConfig holds the knobs for the built-in detection rules
type DetectionConfig struct {
	TrustedOriginPrefixes []string `mapstructure:"trusted_origin_prefixes"`
	BusinessHoursStart    int      `mapstructure:"business_hours_start"`
	BusinessHoursEnd      int      `mapstructure:"business_hours_end"`
	AutomationSignatures  []string `mapstructure:"automation_signatures"`
	ReferenceZone         string   `mapstructure:"reference_zone"`
}

// SweepConfig holds sweep orchestration settings
type SweepConfig struct {
	PageLimit   int           `mapstructure:"page_limit"`
	Concurrency int           `mapstructure:"concurrency"`
	Interval    time.Duration `mapstructure:"interval"`
	SourcesFile string        `mapstructure:"sources_file"`
	SealKey     string        `mapstructure:"seal_key"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "wardwatch")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "wardwatch")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("archive.url", "https://localhost:9200")
	v.SetDefault("archive.username", "admin")
	v.SetDefault("archive.password", "")
	v.SetDefault("archive.insecure", true)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.index_prefix", "wardwatch-logs")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)

	v.SetDefault("detection.trusted_origin_prefixes", []string{
		"127.", "10.", "172.16.", "192.168.",
	})
	v.SetDefault("detection.business_hours_start", 6)
	v.SetDefault("detection.business_hours_end", 22)
	v.SetDefault("detection.automation_signatures", []string{"bot", "crawler", "script"})
	v.SetDefault("detection.reference_zone", "UTC")

	v.SetDefault("sweep.page_limit", 100)
	v.SetDefault("sweep.concurrency", 4)
	v.SetDefault("sweep.interval", "5m")
	v.SetDefault("sweep.sources_file", "")
	v.SetDefault("sweep.seal_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("WARDWATCH")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Sweep.PageLimit <= 0 || c.Sweep.PageLimit > 1000 {
		return fmt.Errorf("sweep.page_limit must be between 1 and 1000, got %d", c.Sweep.PageLimit)
	}
	if c.Sweep.Concurrency <= 0 {
		return fmt.Errorf("sweep.concurrency must be positive, got %d", c.Sweep.Concurrency)
	}
	d := c.Detection
	if d.BusinessHoursStart < 0 || d.BusinessHoursStart > 23 {
		return fmt.Errorf("detection.business_hours_start out of range: %d", d.BusinessHoursStart)
	}
	if d.BusinessHoursEnd < 0 || d.BusinessHoursEnd > 24 {
		return fmt.Errorf("detection.business_hours_end out of range: %d", d.BusinessHoursEnd)
	}
	if d.BusinessHoursStart >= d.BusinessHoursEnd {
		return fmt.Errorf("detection business hours window is empty: %d-%d", d.BusinessHoursStart, d.BusinessHoursEnd)
	}
	return nil
}
