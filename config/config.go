package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	GitHub    GitHubConfig    `json:"github"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server parameters
type ServerConfig struct {
	Port                string `json:"port"`
	EnableCORS          bool   `json:"enable_cors"`
	Seed                bool   `json:"seed"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// GitHubConfig holds GitHub API client parameters
type GitHubConfig struct {
	BaseURL           string `json:"base_url"`
	Token             string `json:"token"`
	UserAgent         string `json:"user_agent"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	RequestIntervalMS int    `json:"request_interval_ms"`
}

// DatabaseConfig holds database connection parameters
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Database       string `json:"database"`
	User           string `json:"user"`
	Password       string `json:"password"`
	MaxConnections int    `json:"max_connections"`
}

// CacheConfig holds the optional Redis read-cache parameters
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// TelemetryConfig holds tracing parameters
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled"`
	Exporter       string  `json:"exporter"`
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SamplingRatio  float64 `json:"sampling_ratio"`
}

// LoggingConfig holds logger parameters
type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(filepath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	config.applyEnvironmentOverrides()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads the config file when it exists and falls back to
// defaults plus environment overrides otherwise.
func LoadOrDefault(filepath string) (*Config, error) {
	if filepath != "" {
		if _, err := os.Stat(filepath); err == nil {
			return LoadConfig(filepath)
		}
	}

	var config Config
	config.applyEnvironmentOverrides()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// applyEnvironmentOverrides applies environment variable overrides
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("API_PORT"); port != "" {
		c.Server.Port = port
	}

	// GitHub token from environment
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}

	// Database configuration from environment
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := parseInt(port); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if dbname := os.Getenv("POSTGRES_DB"); dbname != "" {
		c.Database.Database = dbname
	}

	// Redis from environment
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Cache.Addr = addr
		c.Cache.Enabled = true
	}
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		// Analyses issue up to ~15 sequential upstream reads; give them room.
		c.Server.WriteTimeoutSeconds = 120
	}

	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = "https://api.github.com"
	}
	if c.GitHub.UserAgent == "" {
		c.GitHub.UserAgent = "github-portfolio-analyzer"
	}
	if c.GitHub.TimeoutSeconds == 0 {
		c.GitHub.TimeoutSeconds = 30
	}
	if c.GitHub.RequestIntervalMS < 0 {
		return fmt.Errorf("request_interval_ms must be >= 0")
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Database == "" {
		c.Database.Database = "gitfolio"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}

	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			c.Cache.Addr = "localhost:6379"
		}
		if c.Cache.TTLSeconds == 0 {
			c.Cache.TTLSeconds = 300
		}
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Exporter == "" {
			c.Telemetry.Exporter = "jaeger"
		}
		if c.Telemetry.JaegerEndpoint == "" {
			c.Telemetry.JaegerEndpoint = "http://localhost:14268/api/traces"
		}
		if c.Telemetry.SamplingRatio == 0 {
			c.Telemetry.SamplingRatio = 1
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// GetDatabaseURL returns the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// GitHubTimeout returns the GitHub client timeout as a duration
func (c *Config) GitHubTimeout() time.Duration {
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}

// CacheTTL returns the analysis read-cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func parseInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	return i, err
}
