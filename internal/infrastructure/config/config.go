package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Pawl Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
// Write must exceed LongPoll or long-poll responses are cut off.
type APITimeoutConfig struct {
	Read     int `yaml:"read"`
	Write    int `yaml:"write"`
	Idle     int `yaml:"idle"`
	LongPoll int `yaml:"long_poll"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains settings for the optional change fan-out broker.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for event telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains the at-rest secret and session settings.
type SecurityConfig struct {
	// Secret keys the record cipher. It must be supplied before the first
	// table is read; prefer PAWL_SECRET over writing it to the file.
	Secret string `yaml:"secret"`

	// SessionLifetime is the session token lifetime in seconds.
	SessionLifetime int `yaml:"session_lifetime"`

	// InsecureCookies drops the Secure attribute from the session cookie.
	// Only for local development over plain HTTP.
	InsecureCookies bool `yaml:"insecure_cookies"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped if the file does not exist
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PAWL_SECTION_KEY
// For example: PAWL_DATABASE_PATH, PAWL_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus environment are a complete configuration.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/pawl.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:     30,
				Write:    90,
				Idle:     120,
				LongPoll: 60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pawl-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			SessionLifetime: 3600,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PAWL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAWL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PAWL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("PAWL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("PAWL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PAWL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PAWL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PAWL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PAWL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// The record secret (IMPORTANT: always supply via environment in production)
	if v := os.Getenv("PAWL_SECRET"); v != "" {
		cfg.Security.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Timeouts.LongPoll < 0 {
		errs = append(errs, "api.timeouts.long_poll must not be negative")
	}
	if c.API.Timeouts.Write > 0 && c.API.Timeouts.Write <= c.API.Timeouts.LongPoll {
		errs = append(errs, "api.timeouts.write must exceed api.timeouts.long_poll")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Without a secret nothing on disk can be read or written, so refuse
	// to start rather than fail on the first table access.
	if c.Security.Secret == "" {
		errs = append(errs, "security.secret is required (set PAWL_SECRET environment variable)")
	}
	if c.Security.SessionLifetime <= 0 {
		errs = append(errs, "security.session_lifetime must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the request read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the response write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// LongPollWindow returns how long a poll may park. Zero means no limit.
func (t APITimeoutConfig) LongPollWindow() time.Duration {
	return time.Duration(t.LongPoll) * time.Second
}

// GetSessionLifetime returns the session token lifetime as a Duration.
func (c *Config) GetSessionLifetime() time.Duration {
	return time.Duration(c.Security.SessionLifetime) * time.Second
}
