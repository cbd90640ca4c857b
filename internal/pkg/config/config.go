package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Match     MatchConfig     `mapstructure:"match"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	BodyLimitMB    int `mapstructure:"body_limit_mb"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
	// Encoding of published events: "json" or "protobuf".
	Encoding string `mapstructure:"encoding"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// MatchConfig tunes input parsing, matching and output.
type MatchConfig struct {
	Candidates int    `mapstructure:"candidates"`
	CacheTTL   int    `mapstructure:"cache_ttl"`
	Delimiter  string `mapstructure:"delimiter"`
	HasHeader  bool   `mapstructure:"has_header"`
	LatColumn  int    `mapstructure:"lat_column"`
	LonColumn  int    `mapstructure:"lon_column"`
	Precision  int    `mapstructure:"precision"`
}

// CacheTTLDuration returns CacheTTL (seconds) as a duration.
func (m MatchConfig) CacheTTLDuration() time.Duration {
	return time.Duration(m.CacheTTL) * time.Second
}

// Comma returns the CSV delimiter as a rune.
func (m MatchConfig) Comma() rune {
	r, _ := utf8.DecodeRuneInString(m.Delimiter)
	return r
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOMATCH_MATCH_CANDIDATES → match.candidates
	v.SetEnvPrefix("GEOMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 30)
	v.SetDefault("server.body_limit_mb", 8)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geomatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geomatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.encoding", "json")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "geomatch-batch")
	v.SetDefault("match.candidates", 1)
	v.SetDefault("match.cache_ttl", 600)
	v.SetDefault("match.delimiter", ",")
	v.SetDefault("match.has_header", true)
	v.SetDefault("match.lat_column", 0)
	v.SetDefault("match.lon_column", 1)
	v.SetDefault("match.precision", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, "server.body_limit_mb must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.NATS.Encoding != "json" && c.NATS.Encoding != "protobuf" {
		errs = append(errs, fmt.Sprintf("nats.encoding must be json or protobuf, got %q", c.NATS.Encoding))
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Match.Candidates < 1 || c.Match.Candidates > 64 {
		errs = append(errs, fmt.Sprintf("match.candidates must be 1-64, got %d", c.Match.Candidates))
	}
	if c.Match.CacheTTL < 0 {
		errs = append(errs, "match.cache_ttl must not be negative")
	}
	if utf8.RuneCountInString(c.Match.Delimiter) != 1 || c.Match.Delimiter == "\n" || c.Match.Delimiter == "\"" {
		errs = append(errs, fmt.Sprintf("match.delimiter must be a single character, got %q", c.Match.Delimiter))
	}
	if c.Match.LatColumn < 0 || c.Match.LonColumn < 0 || c.Match.LatColumn == c.Match.LonColumn {
		errs = append(errs, "match.lat_column and match.lon_column must be distinct non-negative indexes")
	}
	if c.Match.Precision < 0 || c.Match.Precision > 10 {
		errs = append(errs, fmt.Sprintf("match.precision must be 0-10, got %d", c.Match.Precision))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
