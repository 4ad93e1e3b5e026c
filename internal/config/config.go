// Package config loads scanctl defaults from an optional config file and
// SCANCTL_* environment variables, on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the tunables that are not per-invocation flags.
type Config struct {
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	ScanWindow  time.Duration `mapstructure:"scan_window"`
	Retries     int           `mapstructure:"retries"`
	LogLevel    string        `mapstructure:"log_level"`
}

// Load reads scanctl.yaml from the working directory or
// $HOME/.config/scanctl, then the environment. A missing file is fine;
// a broken one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("baud", 9600)
	v.SetDefault("read_timeout", "500ms")
	v.SetDefault("scan_window", "10s")
	v.SetDefault("retries", 1)
	v.SetDefault("log_level", "info")

	v.SetConfigName("scanctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/scanctl")

	v.SetEnvPrefix("scanctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
