// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the RoomRelay service.
package server

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig defines the parameters for the per-connection fixed-window
// event gate. MaxPerWindow events are accepted per Window; further events in
// the same window are rejected with an error event (code 429).
type RateLimitConfig struct {
	Window       time.Duration
	MaxPerWindow int
}

// Config holds the server configuration settings including security controls
// and liveness parameters.
type Config struct {
	Port              string
	AllowedOrigins    []string
	MaxMessageSize    int64
	SendBufferSize    int
	WriteWait         time.Duration
	HeartbeatInterval time.Duration
	RateLimit         RateLimitConfig
}

var (
	configMu     sync.RWMutex
	activeConfig Config
	activePolicy originPolicy
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:    512,
		SendBufferSize:    256,
		WriteWait:         10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		RateLimit: RateLimitConfig{
			Window:       time.Second,
			MaxPerWindow: 10,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = defaults.RateLimit.Window
	}
	if cfg.RateLimit.MaxPerWindow <= 0 {
		cfg.RateLimit.MaxPerWindow = defaults.RateLimit.MaxPerWindow
	}

	policy := newOriginPolicy(cfg.AllowedOrigins)
	cfg.AllowedOrigins = policy.origins()

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	activePolicy = policy

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Port:              cfg.Port,
		AllowedOrigins:    append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize:    cfg.MaxMessageSize,
		SendBufferSize:    cfg.SendBufferSize,
		WriteWait:         cfg.WriteWait,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RateLimit: RateLimitConfig{
			Window:       cfg.RateLimit.Window,
			MaxPerWindow: cfg.RateLimit.MaxPerWindow,
		},
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig builds a Config from defaults, an optional config.yaml in the
// working directory, and WSRELAY_* environment variables (highest priority).
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WSRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Port:              v.GetString("server.port"),
		AllowedOrigins:    v.GetStringSlice("server.allowedOrigins"),
		MaxMessageSize:    v.GetInt64("websocket.maxMessageSize"),
		SendBufferSize:    v.GetInt("websocket.sendBufferSize"),
		WriteWait:         v.GetDuration("websocket.writeWait"),
		HeartbeatInterval: v.GetDuration("heartbeat.interval"),
		RateLimit: RateLimitConfig{
			Window:       v.GetDuration("rateLimit.window"),
			MaxPerWindow: v.GetInt("rateLimit.maxPerWindow"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := defaultConfig()

	v.SetDefault("server.port", defaults.Port)
	v.SetDefault("server.allowedOrigins", defaults.AllowedOrigins)

	v.SetDefault("websocket.maxMessageSize", defaults.MaxMessageSize)
	v.SetDefault("websocket.sendBufferSize", defaults.SendBufferSize)
	v.SetDefault("websocket.writeWait", defaults.WriteWait)

	v.SetDefault("heartbeat.interval", defaults.HeartbeatInterval)

	v.SetDefault("rateLimit.window", defaults.RateLimit.Window)
	v.SetDefault("rateLimit.maxPerWindow", defaults.RateLimit.MaxPerWindow)
}

// Validate reports the first configuration value that cannot be used to run
// the relay.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("server port must be configured")
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("websocket max message size must be positive")
	}
	if c.SendBufferSize <= 0 {
		return errors.New("websocket send buffer size must be positive")
	}
	if c.WriteWait <= 0 {
		return errors.New("websocket write wait must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("heartbeat interval must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.RateLimit.MaxPerWindow < 1 {
		return errors.New("rate limit max per window must be at least 1")
	}
	return nil
}
