package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FRAMESYNC_SERVER_PORT.
const EnvPrefix = "FRAMESYNC"

// Config holds application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	App    AppConfig    `mapstructure:"app"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Host   HostConfig   `mapstructure:"host"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port    int  `mapstructure:"port"`
	Metrics bool `mapstructure:"metrics"`
}

// AppConfig selects the mini-app. An empty manifest serves the demo app.
type AppConfig struct {
	Manifest string `mapstructure:"manifest"`
}

// RedisConfig enables the Redis session store when URL is set.
// EncryptionKey (base64, 32 bytes) seals stored histories; FallbackKeys are
// still accepted for reading during key rotation.
type RedisConfig struct {
	URL           string        `mapstructure:"url"`
	TTL           time.Duration `mapstructure:"ttl"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	FallbackKeys  []string      `mapstructure:"fallback_keys"`
}

// HostConfig tunes the host page controller.
type HostConfig struct {
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment bindings.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics", true)
	v.SetDefault("app.manifest", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.encryption_key", "")
	v.SetDefault("host.ready_timeout", 5*time.Second)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) into v and decodes it.
// path wins over FRAMESYNC_CONFIG; without either, ./framesync.yaml is used
// when present.
func Load(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("framesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return c, nil
}
