package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the panel bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Database      DatabaseConfig      `yaml:"database"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BridgeConfig contains settings for the ZeroMQ subscription.
type BridgeConfig struct {
	// Endpoint is the panel publisher endpoint, e.g. "tcp://192.168.1.20:5556".
	Endpoint string `yaml:"endpoint"`

	// ReceiveHWM caps queued inbound messages on the socket. 0 keeps the
	// library default.
	ReceiveHWM int `yaml:"receive_hwm"`

	// HealthInterval is how often health is published to MQTT (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// HomeAssistantConfig contains Home Assistant REST API settings.
type HomeAssistantConfig struct {
	BaseURL         string `yaml:"base_url"`
	Token           string `yaml:"token"`
	LightEntityID   string `yaml:"light_entity_id"`
	ClimateEntityID string `yaml:"climate_entity_id"`

	// LightDomain is the service domain used for the light entity.
	// The panel's dome light is usually wired to a relay exposed as a switch.
	LightDomain string `yaml:"light_domain"`

	// HVACMode is the mode set when the climate pack turns on.
	HVACMode string `yaml:"hvac_mode"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// Retry controls retries of failed service calls.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains retry settings for outbound calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts. 1 disables retries.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialInterval is the first backoff delay in milliseconds.
	InitialInterval int `yaml:"initial_interval"`

	// MaxInterval caps the backoff delay in milliseconds.
	MaxInterval int `yaml:"max_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite database settings for the actuation audit.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists the browser origins allowed to read the API. Empty
// allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket live feed settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are not overwritten. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern PANELBRIDGE_SECTION_KEY, e.g.
// PANELBRIDGE_MQTT_HOST. The deployment names HA_BASE_URL, HA_TOKEN,
// HA_LIGHT_ENTITY_ID, HA_AC_ENTITY_ID and ZMQ_SUB_ENDPOINT are honoured too.
//
// Parameters:
//   - path: Path to the YAML configuration file; empty means environment only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			HealthInterval: 30,
		},
		HomeAssistant: HomeAssistantConfig{
			LightDomain: "switch",
			HVACMode:    "cool",
			Timeout:     10,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 200,
				MaxInterval:     2000,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-panelbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "panel",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/panelbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Bridge
	setString(&cfg.Bridge.Endpoint, "ZMQ_SUB_ENDPOINT", "PANELBRIDGE_BRIDGE_ENDPOINT")

	// Home Assistant
	setString(&cfg.HomeAssistant.BaseURL, "HA_BASE_URL", "PANELBRIDGE_HA_BASE_URL")
	setString(&cfg.HomeAssistant.Token, "HA_TOKEN", "PANELBRIDGE_HA_TOKEN")
	setString(&cfg.HomeAssistant.LightEntityID, "HA_LIGHT_ENTITY_ID", "PANELBRIDGE_HA_LIGHT_ENTITY_ID")
	setString(&cfg.HomeAssistant.ClimateEntityID, "HA_AC_ENTITY_ID", "PANELBRIDGE_HA_CLIMATE_ENTITY_ID")
	setString(&cfg.HomeAssistant.LightDomain, "PANELBRIDGE_HA_LIGHT_DOMAIN")
	setString(&cfg.HomeAssistant.HVACMode, "PANELBRIDGE_HA_HVAC_MODE")

	// MQTT
	setBool(&cfg.MQTT.Enabled, "PANELBRIDGE_MQTT_ENABLED")
	setString(&cfg.MQTT.Broker.Host, "PANELBRIDGE_MQTT_HOST")
	setInt(&cfg.MQTT.Broker.Port, "PANELBRIDGE_MQTT_PORT")
	setString(&cfg.MQTT.Auth.Username, "PANELBRIDGE_MQTT_USERNAME")
	setString(&cfg.MQTT.Auth.Password, "PANELBRIDGE_MQTT_PASSWORD")

	// InfluxDB
	setBool(&cfg.InfluxDB.Enabled, "PANELBRIDGE_INFLUXDB_ENABLED")
	setString(&cfg.InfluxDB.URL, "PANELBRIDGE_INFLUXDB_URL")
	setString(&cfg.InfluxDB.Token, "PANELBRIDGE_INFLUXDB_TOKEN")

	// Database
	setBool(&cfg.Database.Enabled, "PANELBRIDGE_DATABASE_ENABLED")
	setString(&cfg.Database.Path, "PANELBRIDGE_DATABASE_PATH")

	// API
	setBool(&cfg.API.Enabled, "PANELBRIDGE_API_ENABLED")
	setString(&cfg.API.Host, "PANELBRIDGE_API_HOST")
	setInt(&cfg.API.Port, "PANELBRIDGE_API_PORT")

	// Logging
	setString(&cfg.Logging.Level, "PANELBRIDGE_LOG_LEVEL")
}

// setString assigns the first non-empty variable among names. Later names win.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bridge validation
	if c.Bridge.Endpoint == "" {
		errs = append(errs, "bridge.endpoint is required (set ZMQ_SUB_ENDPOINT)")
	} else if !strings.Contains(c.Bridge.Endpoint, "://") {
		errs = append(errs, "bridge.endpoint must include a transport, e.g. tcp://host:port")
	}

	// Home Assistant validation
	ha := c.HomeAssistant
	if ha.BaseURL == "" {
		errs = append(errs, "home_assistant.base_url is required (set HA_BASE_URL)")
	} else if u, err := url.Parse(ha.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "home_assistant.base_url must be an absolute URL")
	}
	if ha.Token == "" {
		errs = append(errs, "home_assistant.token is required (set HA_TOKEN)")
	}
	if ha.LightEntityID == "" {
		errs = append(errs, "home_assistant.light_entity_id is required (set HA_LIGHT_ENTITY_ID)")
	}
	if ha.ClimateEntityID == "" {
		errs = append(errs, "home_assistant.climate_entity_id is required (set HA_AC_ENTITY_ID)")
	}
	if ha.Timeout <= 0 {
		errs = append(errs, "home_assistant.timeout must be positive")
	}
	if ha.Retry.MaxAttempts < 1 {
		errs = append(errs, "home_assistant.retry.max_attempts must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetHATimeout returns the Home Assistant request timeout as a Duration.
func (c *Config) GetHATimeout() time.Duration {
	return time.Duration(c.HomeAssistant.Timeout) * time.Second
}

// GetHealthInterval returns the MQTT health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}
