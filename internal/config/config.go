// Package config provides configuration management for the tracker.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// minRefreshInterval / maxRefreshInterval bound the polling cadence the
	// configuration surface allows.
	minRefreshInterval = 1 * time.Second
	maxRefreshInterval = 10 * time.Second

	// defaultRefreshInterval is used when tracking.refresh_interval is unset.
	defaultRefreshInterval = 3 * time.Second
	// defaultCallbackPort is where the brokerage redirects the auth code.
	defaultCallbackPort = 5000
	// defaultAuthWaitSeconds is the fixed window for the login redirect.
	defaultAuthWaitSeconds = 120
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Auth        AuthConfig        `yaml:"auth"`
	Position    PositionConfig    `yaml:"position"`
	Tracking    TrackingConfig    `yaml:"tracking"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig defines the brokerage API credentials and endpoints. The
// credential values are normally supplied through env vars referenced from
// the YAML file.
type BrokerConfig struct {
	ClientID     string `yaml:"client_id"`
	SecretKey    string `yaml:"secret_key"`
	RedirectURI  string `yaml:"redirect_uri"`
	ResponseType string `yaml:"response_type"`
	GrantType    string `yaml:"grant_type"`
	// APIBaseURL / DataBaseURL override the production endpoints (tests).
	APIBaseURL  string `yaml:"api_base_url"`
	DataBaseURL string `yaml:"data_base_url"`
}

// AuthConfig defines the local callback listener settings.
type AuthConfig struct {
	CallbackPort int `yaml:"callback_port"`
	WaitSeconds  int `yaml:"wait_seconds"`
}

// PositionConfig defines the iron condor to track: four strikes, an expiry
// tag in DDMMMYY form, and lot sizing.
type PositionConfig struct {
	Underlying     string `yaml:"underlying"`
	Expiry         string `yaml:"expiry"`
	CallSellStrike int    `yaml:"call_sell_strike"`
	CallBuyStrike  int    `yaml:"call_buy_strike"`
	PutSellStrike  int    `yaml:"put_sell_strike"`
	PutBuyStrike   int    `yaml:"put_buy_strike"`
	Lots           int    `yaml:"lots"`
	MinQty         int    `yaml:"min_qty"`
}

// TrackingConfig defines the polling loop settings.
type TrackingConfig struct {
	RefreshInterval string `yaml:"refresh_interval"` // 1s..10s
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables so credentials never live in the file.
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent,
// filling defaults where the file is silent.
func (c *Config) Validate() error {
	// Environment validation
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	// Broker validation
	if c.Broker.ClientID == "" {
		return fmt.Errorf("broker.client_id is required")
	}
	if c.Broker.SecretKey == "" {
		return fmt.Errorf("broker.secret_key is required")
	}
	if c.Broker.RedirectURI == "" {
		return fmt.Errorf("broker.redirect_uri is required")
	}
	if c.Broker.ResponseType == "" {
		c.Broker.ResponseType = "code"
	}
	if c.Broker.GrantType == "" {
		c.Broker.GrantType = "authorization_code"
	}

	// Auth validation
	if c.Auth.CallbackPort == 0 {
		c.Auth.CallbackPort = defaultCallbackPort
	}
	if c.Auth.CallbackPort < 0 || c.Auth.CallbackPort > 65535 {
		return fmt.Errorf("auth.callback_port must be a valid port, got %d", c.Auth.CallbackPort)
	}
	if c.Auth.WaitSeconds == 0 {
		c.Auth.WaitSeconds = defaultAuthWaitSeconds
	}
	if c.Auth.WaitSeconds < 0 {
		return fmt.Errorf("auth.wait_seconds must be > 0")
	}

	// Position validation: structural checks live on the position model;
	// here we only require the fields to be present.
	if c.Position.Underlying == "" {
		return fmt.Errorf("position.underlying is required")
	}
	if c.Position.Expiry == "" {
		return fmt.Errorf("position.expiry is required (DDMMMYY)")
	}
	if c.Position.Lots == 0 {
		c.Position.Lots = 1
	}
	if c.Position.MinQty == 0 {
		c.Position.MinQty = 1
	}

	// Tracking validation
	if c.Tracking.RefreshInterval == "" {
		c.Tracking.RefreshInterval = defaultRefreshInterval.String()
	}
	interval, err := time.ParseDuration(c.Tracking.RefreshInterval)
	if err != nil {
		return fmt.Errorf("tracking.refresh_interval invalid: %w", err)
	}
	if interval < minRefreshInterval || interval > maxRefreshInterval {
		return fmt.Errorf("tracking.refresh_interval must be between %s and %s, got %s",
			minRefreshInterval, maxRefreshInterval, interval)
	}

	return nil
}

// RefreshInterval returns the configured polling interval.
func (c *Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Tracking.RefreshInterval)
	if err != nil {
		return defaultRefreshInterval
	}
	return d
}

// AuthWait returns the configured redirect wait window.
func (c *Config) AuthWait() time.Duration {
	return time.Duration(c.Auth.WaitSeconds) * time.Second
}
