// Package config loads dbviz configuration from a YAML file, DBVIZ_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbviz/dbviz/internal/version"
)

// Supported values for DatabaseConfig.Driver.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

// Supported values for LogConfig.Format.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config is the complete dbviz configuration.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServiceConfig is static metadata used only for self-description.
type ServiceConfig struct {
	Title              string `mapstructure:"title"`
	Version            string `mapstructure:"version"`
	Description        string `mapstructure:"description"`
	BaseURL            string `mapstructure:"base_url"`
	BaseURLDescription string `mapstructure:"base_url_description"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	MaxConnections    int           `mapstructure:"max_connections"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	// RateLimitRPS of 0 disables rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig describes how to reach PostgreSQL.
// When DSN is set it is used verbatim and the discrete fields are ignored.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	SSLMode          string        `mapstructure:"sslmode"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Name   string `mapstructure:"name"`
}

func defaults() map[string]any {
	return map[string]any{
		"service.title":                "Database Visualization API",
		"service.version":              version.Version,
		"service.description":          "Execute SQL statements against a PostgreSQL database and inspect its schema.",
		"service.base_url":             "",
		"service.base_url_description": "Local development server",

		"server.host":                 "127.0.0.1",
		"server.port":                 8000,
		"server.max_connections":      64,
		"server.read_timeout":         "30s",
		"server.read_header_timeout":  "5s",
		"server.write_timeout":        "60s",
		"server.idle_timeout":         "60s",
		"server.shutdown_timeout":     "30s",
		"server.cors_allowed_origins": []string{"*"},
		"server.rate_limit_rps":       0.0,
		"server.rate_limit_burst":     0,

		"database.driver":             DriverPQ,
		"database.dsn":                "",
		"database.host":               "127.0.0.1",
		"database.port":               5432,
		"database.user":               "postgres",
		"database.password":           "",
		"database.name":               "postgres",
		"database.sslmode":            "disable",
		"database.statement_timeout":  "0s",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "10m",

		"log.level":  "info",
		"log.format": LogFormatJSON,
		"log.name":   "dbviz",
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("server.max_connections must be at least 1, got %d", c.Server.MaxConnections)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("server.rate_limit_burst must be at least 1 when rate limiting is enabled")
	}

	switch c.Database.Driver {
	case DriverPQ, DriverPGX:
	default:
		return fmt.Errorf("unsupported database.driver %q (want %q or %q)", c.Database.Driver, DriverPQ, DriverPGX)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	if c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database.statement_timeout must not be negative")
	}

	switch strings.ToLower(c.Log.Format) {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("unsupported log.format %q", c.Log.Format)
	}
	return nil
}

// BaseURL returns the externally reachable URL advertised in the API
// description, falling back to the listen address.
func (c *Config) BaseURL() string {
	if c.Service.BaseURL != "" {
		return strings.TrimRight(c.Service.BaseURL, "/")
	}
	return "http://" + c.Server.Addr()
}
