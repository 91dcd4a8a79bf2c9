package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables that override the
// values in the config file.
const EnvPrefix = "NTRIP"

// Load reads the config from the given YAML or JSON file, applies the
// environment overrides and fills in the defaults.  If path is empty, the
// config comes from the defaults and the environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Key "connection.host" maps to environment variable NTRIP_CONNECTION_HOST.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the config given by the defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// The defaults always unmarshal.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets the default values.  Every key has a default, even if
// it's empty, so that viper knows to look for an environment variable.
func setDefaults(v *viper.Viper) {
	v.SetDefault("connection.host", "")
	v.SetDefault("connection.port", DefaultPort)
	v.SetDefault("connection.username", "")
	v.SetDefault("connection.password", "")
	v.SetDefault("connection.mountpoint", "")
	v.SetDefault("connection.use_tls", false)
	v.SetDefault("connection.protocol", string(REV2))

	v.SetDefault("reconnect.max_attempts", 5)
	v.SetDefault("reconnect.base_delay", "1s")
	v.SetDefault("reconnect.max_delay", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("capture.enabled", false)
	v.SetDefault("capture.directory", "")

	v.SetDefault("store.path", "")

	v.SetDefault("report.interval", "10s")
	v.SetDefault("report.address", "")

	v.SetDefault("history.messages", 200)
	v.SetDefault("history.events", 50)

	v.SetDefault("dial_timeout", "10s")
}
