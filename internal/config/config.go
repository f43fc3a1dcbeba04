// Package config loads runtime settings from defaults, an optional YAML file
// and CHROMA_* environment variables, in increasing order of precedence.
// The Gemini API key is deliberately not part of Config; see package auth.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport names accepted by gemini.transport.
const (
	TransportSDK  = "sdk"
	TransportREST = "rest"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Processing ProcessingConfig `mapstructure:"processing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GeminiConfig struct {
	Model     string        `mapstructure:"model"`
	Transport string        `mapstructure:"transport"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

type ProcessingConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Messages     []string      `mapstructure:"messages"`
}

// DefaultLoadingMessages rotate on screen while a colorization is in flight.
var DefaultLoadingMessages = []string{
	"Analyzing image structure...",
	"identifying historical context...",
	"Applying chromatic layers...",
	"Enhancing skin tones...",
	"Finalizing details...",
}

// Load reads configuration. configPath may be empty, in which case only
// defaults and environment variables apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHROMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Gemini.Transport {
	case TransportSDK, TransportREST:
	default:
		return fmt.Errorf("invalid gemini.transport %q: must be %q or %q", c.Gemini.Transport, TransportSDK, TransportREST)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload.max_size must be positive")
	}
	if c.Processing.TickInterval <= 0 {
		return fmt.Errorf("processing.tick_interval must be positive")
	}
	if len(c.Processing.Messages) == 0 {
		c.Processing.Messages = append([]string(nil), DefaultLoadingMessages...)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("gemini.model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.transport", TransportSDK)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.timeout", 120*time.Second)

	v.SetDefault("upload.max_size", 10*1024*1024)

	v.SetDefault("processing.tick_interval", 1500*time.Millisecond)
	v.SetDefault("processing.messages", DefaultLoadingMessages)
}
