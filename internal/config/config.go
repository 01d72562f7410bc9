package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Server ServerConfig `mapstructure:"server"`
	Watch  WatchConfig  `mapstructure:"watch"`

	// Default values for commands
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// ServerConfig locates the monitor server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WatchConfig tunes the live watch core.
type WatchConfig struct {
	ReconnectDelay string `mapstructure:"reconnect_delay"`
	Capacity       int    `mapstructure:"capacity"`
}

// DefaultsConfig holds default values for various commands
type DefaultsConfig struct {
	// Emit command defaults
	Agent    string `mapstructure:"agent"`
	Workflow string `mapstructure:"workflow"`

	// Events command defaults
	Limit int `mapstructure:"limit"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "auto",
		Quiet:   false,
		Verbose: false,
		Server: ServerConfig{
			Host: "localhost",
			Port: 8765,
		},
		Watch: WatchConfig{
			ReconnectDelay: "3s",
			Capacity:       1000,
		},
		Defaults: DefaultsConfig{
			Limit: 100,
		},
	}
}

// BaseURL returns the server's HTTP base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// WebSocketURL returns the server's live stream URL.
func (c *Config) WebSocketURL() string {
	return fmt.Sprintf("ws://%s:%d/ws", c.Server.Host, c.Server.Port)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("wfmon")
	v.SetConfigType("yaml")

	// Config paths, lowest precedence first
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "wfmon"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".wfmon")
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("WFMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "WFMON_FORMAT")
	v.BindEnv("quiet", "WFMON_QUIET")
	v.BindEnv("verbose", "WFMON_VERBOSE")
	v.BindEnv("server.host", "WFMON_HOST")
	v.BindEnv("server.port", "WFMON_PORT")

	// Set defaults
	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("watch.reconnect_delay", cfg.Watch.ReconnectDelay)
	v.SetDefault("watch.capacity", cfg.Watch.Capacity)
	v.SetDefault("defaults.limit", cfg.Defaults.Limit)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
