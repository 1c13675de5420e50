// Package config loads the agent configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	HTTP        HTTPConfig
	DataService DataServiceConfig `mapstructure:"data_service"`
	Spool       SpoolConfig
	Slack       SlackConfig
	Log         LogConfig
}

// HTTPConfig holds gateway settings.
type HTTPConfig struct {
	Addr string
}

// DataServiceConfig holds backing data service settings.
type DataServiceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// SpoolConfig holds write-spool settings. An empty RedisAddr selects
// the in-memory spool.
type SpoolConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	DrainInterval time.Duration `mapstructure:"drain_interval"`
}

// SlackConfig holds notification sink settings. An empty token
// disables notifications.
type SlackConfig struct {
	Token     string
	ChannelID string `mapstructure:"channel_id"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from file and env. Env var overrides use
// prefix VOX_, e.g. VOX_DATA_SERVICE_BASE_URL.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("data_service.base_url", "http://localhost:3000")
	v.SetDefault("data_service.timeout", "60s")
	v.SetDefault("data_service.max_attempts", 3)
	v.SetDefault("data_service.retry_base_delay", "500ms")
	v.SetDefault("spool.redis_addr", "")
	v.SetDefault("spool.redis_password", "")
	v.SetDefault("spool.redis_db", 0)
	v.SetDefault("spool.drain_interval", "5s")
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channel_id", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else if env := os.Getenv("VOX_CONFIG"); env != "" {
		v.SetConfigFile(env)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("vox")
	}

	v.SetEnvPrefix("VOX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present; an explicit path must exist
	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
