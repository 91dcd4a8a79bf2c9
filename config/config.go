// The config package holds the settings of the NTRIP analyser:  the caster
// connection, the reconnection policy, logging, raw data capture, the
// store of the last-used connection and the status report.
//
// The settings are read from a YAML or JSON file using viper.  Any value
// can be overridden by an environment variable with the prefix NTRIP_ and
// the key path in upper case, for example:
//
//	NTRIP_CONNECTION_HOST=caster.example.com
//	NTRIP_RECONNECT_MAX_ATTEMPTS=10
//
// An example YAML config:
//
//	connection:
//	  host: caster.example.com
//	  port: 2101
//	  username: user
//	  password: secret
//	  mountpoint: MOUNT1
//	  use_tls: false
//	  protocol: rev2
//	reconnect:
//	  max_attempts: 5
//	  base_delay: 1s
//	  max_delay: 15s
//	log:
//	  level: info
//	  format: text
//	  file: ntripanalyser.log
//	capture:
//	  enabled: true
//	  directory: captures
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Protocol is the version of the NTRIP protocol used to talk to the caster.
type Protocol string

const (
	// REV1 is NTRIP version 1:  an HTTP/1.0 request with no Ntrip-Version
	// header.
	REV1 Protocol = "rev1"

	// REV2 is NTRIP version 2:  an HTTP/1.1 request with the header
	// "Ntrip-Version: Ntrip/2.0".
	REV2 Protocol = "rev2"
)

// DefaultPort is the port assigned to NTRIP.
const DefaultPort = 2101

// ErrMissingHost is returned by Validate if the caster host is not set.
var ErrMissingHost = errors.New("host is required")

// ErrMissingMountpoint is returned by Validate if the mountpoint is not set.
var ErrMissingMountpoint = errors.New("mountpoint is required")

// ErrInvalidPort is returned by Validate if the port is out of range.
var ErrInvalidPort = errors.New("port must be between 1 and 65535")

// ParseProtocol converts a protocol name to a Protocol.  It accepts "rev1"
// and "rev2" (ignoring case) and also "1", "2", "ntrip1" and "ntrip2".
// An empty string gives REV2.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rev2", "2", "ntrip2":
		return REV2, nil
	case "rev1", "1", "ntrip1":
		return REV1, nil
	default:
		return "", fmt.Errorf("unknown NTRIP protocol %q - expected rev1 or rev2", s)
	}
}

// String returns the name of the protocol in upper case.
func (p Protocol) String() string {
	return strings.ToUpper(string(p))
}

// HTTPVersion returns the HTTP version used in the request line.
func (p Protocol) HTTPVersion() string {
	if p == REV1 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

// Connection holds the details needed to connect to a caster.  It's passed
// around as a value and never changed by the code that uses it.
type Connection struct {
	Host       string   `mapstructure:"host" json:"host"`
	Port       int      `mapstructure:"port" json:"port"`
	Username   string   `mapstructure:"username" json:"username"`
	Password   string   `mapstructure:"password" json:"-"`
	Mountpoint string   `mapstructure:"mountpoint" json:"mountpoint"`
	UseTLS     bool     `mapstructure:"use_tls" json:"use_tls"`
	Protocol   Protocol `mapstructure:"protocol" json:"protocol"`
}

// Validate checks that the connection has a host, a mountpoint and a
// sensible port.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrMissingHost
	}
	if strings.TrimSpace(c.MountpointPath()) == "" {
		return ErrMissingMountpoint
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w - got %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// Address returns the host and port in the form used by net.Dial.
func (c Connection) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// MountpointPath returns the mountpoint without surrounding space or a
// leading slash.
func (c Connection) MountpointPath() string {
	return strings.TrimLeft(strings.TrimSpace(c.Mountpoint), "/")
}

// String returns a description of the connection without the password.
func (c Connection) String() string {
	scheme := "ntrip"
	if c.UseTLS {
		scheme = "ntrips"
	}
	return fmt.Sprintf("%s://%s/%s (%s)", scheme, c.Address(), c.MountpointPath(),
		c.Protocol.String())
}

// Reconnect controls the retries after a connection fails.
type Reconnect struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// Logging controls the system log.
type Logging struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`

	// File is the name of the log file.  If it's empty, the log goes to
	// stderr only.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Capture controls the daily files of raw RTCM data.
type Capture struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// Store controls the database that remembers the last connection used.
type Store struct {
	// Path is the name of the sqlite database file.  If it's empty, the
	// connection is not remembered.
	Path string `mapstructure:"path"`
}

// Report controls the periodic status report.
type Report struct {
	// Interval is the time between reports.  Zero turns reporting off.
	Interval time.Duration `mapstructure:"interval"`

	// Address is the host:port of the HTTP status page, for example
	// "localhost:8080".  If it's empty, there is no status page.
	Address string `mapstructure:"address"`
}

// History controls the number of recent messages and events kept for
// display.
type History struct {
	Messages int `mapstructure:"messages"`
	Events   int `mapstructure:"events"`
}

// Config is the complete set of settings.
type Config struct {
	Connection  Connection    `mapstructure:"connection"`
	Reconnect   Reconnect     `mapstructure:"reconnect"`
	Log         Logging       `mapstructure:"log"`
	Capture     Capture       `mapstructure:"capture"`
	Store       Store         `mapstructure:"store"`
	Report      Report        `mapstructure:"report"`
	History     History       `mapstructure:"history"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// ValidateAndApplyDefaults checks the values that can't be checked until
// they are used, and tidies up the protocol name.  The connection is not
// checked here:  the caller may supply the host and mountpoint from the
// command line or from the store.
func (cfg *Config) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	protocol, err := ParseProtocol(string(cfg.Connection.Protocol))
	if err != nil {
		return err
	}
	cfg.Connection.Protocol = protocol

	if cfg.History.Messages < 0 || cfg.History.Events < 0 {
		return fmt.Errorf("history sizes must not be negative - got %d messages, %d events",
			cfg.History.Messages, cfg.History.Events)
	}

	if cfg.Report.Interval < 0 {
		return fmt.Errorf("invalid report interval %v", cfg.Report.Interval)
	}

	if cfg.Capture.Enabled && cfg.Capture.Directory == "" {
		cfg.Capture.Directory = "."
	}

	return nil
}
