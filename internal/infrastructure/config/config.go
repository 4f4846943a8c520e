package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TLS modes accepted by broker.tls_mode.
const (
	TLSModeOff        = "off"
	TLSModeSimple     = "simple"
	TLSModeClientCert = "client_cert"
)

// Config is the root configuration structure for garagedoor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Broker    BrokerConfig    `yaml:"broker"`
	Account   AccountConfig   `yaml:"account"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BrokerConfig contains the MQTT broker connection details.
//
// The garage controller talks to exactly one broker. Port is used for the
// TLS modes, PlainPort when tls_mode is "off".
type BrokerConfig struct {
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	PlainPort      int              `yaml:"plain_port"`
	TLSMode        string           `yaml:"tls_mode"`
	ClientIDPrefix string           `yaml:"client_id_prefix"`
	KeepAlive      int              `yaml:"keep_alive"`
	ClientCert     ClientCertConfig `yaml:"client_cert"`

	// AcceptAnyCertificate makes the TLS trust evaluation always succeed.
	// The hosted broker this client was built for is reached through
	// self-signed intermediaries often enough that this is the default.
	AcceptAnyCertificate bool `yaml:"accept_any_certificate"`
}

// ClientCertConfig points at a PKCS#12 bundle used in client_cert mode.
type ClientCertConfig struct {
	P12File     string `yaml:"p12_file"`
	P12Password string `yaml:"p12_password"`
}

// AccountConfig optionally seeds the stored broker credentials.
// Values found here are written to the key-value store on startup
// when the store has none.
type AccountConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DatabaseConfig contains SQLite database settings. An empty Path keeps
// state in memory and disables the audit trail.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APIAuthConfig controls bearer-token protection of the control routes.
// An empty TokenSecret leaves the API open (local development only).
type APIAuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
	TokenTTL    int    `yaml:"token_ttl"` // hours
}

// WebSocketConfig contains WebSocket server settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GARAGEDOOR_SECTION_KEY
// For example: GARAGEDOOR_BROKER_HOST, GARAGEDOOR_DATABASE_PATH
//
// A missing file is not an error when allowMissing is true; the defaults
// (plus environment overrides) are used instead.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case allowMissing && os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
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
		Broker: BrokerConfig{
			Host:                 "io.adafruit.com",
			Port:                 8883,
			PlainPort:            1883,
			TLSMode:              TLSModeSimple,
			ClientIDPrefix:       "GarageDoor-",
			KeepAlive:            120,
			AcceptAnyCertificate: true,
		},
		Database: DatabaseConfig{
			Path:        "./data/garagedoor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 24 * 30,
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
// Environment variables follow the pattern: GARAGEDOOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Broker
	if v := os.Getenv("GARAGEDOOR_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("GARAGEDOOR_BROKER_TLS_MODE"); v != "" {
		cfg.Broker.TLSMode = v
	}
	if v := os.Getenv("GARAGEDOOR_BROKER_P12_PASSWORD"); v != "" {
		cfg.Broker.ClientCert.P12Password = v
	}

	// Account
	if v := os.Getenv("GARAGEDOOR_ACCOUNT_NAME"); v != "" {
		cfg.Account.Username = v
	}
	if v := os.Getenv("GARAGEDOOR_ACCOUNT_SECRET"); v != "" {
		cfg.Account.Password = v
	}

	// Database
	if v := os.Getenv("GARAGEDOOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("GARAGEDOOR_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GARAGEDOOR_API_TOKEN_SECRET"); v != "" {
		cfg.API.Auth.TokenSecret = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Broker validation
	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.Broker.PlainPort < 1 || c.Broker.PlainPort > 65535 {
		errs = append(errs, "broker.plain_port must be between 1 and 65535")
	}
	switch c.Broker.TLSMode {
	case TLSModeOff, TLSModeSimple:
	case TLSModeClientCert:
		if c.Broker.ClientCert.P12File == "" {
			errs = append(errs, "broker.client_cert.p12_file is required when tls_mode is client_cert")
		}
	default:
		errs = append(errs, "broker.tls_mode must be off, simple, or client_cert")
	}
	if c.Broker.KeepAlive < 1 {
		errs = append(errs, "broker.keep_alive must be positive")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// A short shared secret would let anyone on the network forge a token
	// and operate the doors.
	const minTokenSecretLength = 32
	if s := c.API.Auth.TokenSecret; s != "" && len(s) < minTokenSecretLength {
		errs = append(errs, "api.auth.token_secret must be at least 32 characters")
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

// GetTokenTTL returns the API token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.API.Auth.TokenTTL) * time.Hour
}
