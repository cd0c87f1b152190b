// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file for [Load].
const EnvironmentVariable = "BUREAU_REALTIME_CONFIG"

// Config is the master configuration for the realtime portal.
type Config struct {
	// Portal configures the session-bus side that applications call.
	Portal PortalConfig `yaml:"portal"`

	// RealtimeKit configures the system-bus side.
	RealtimeKit RealtimeKitConfig `yaml:"realtimekit"`

	// AppInfo configures caller identification.
	AppInfo AppInfoConfig `yaml:"appinfo"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// PortalConfig configures the exported interface.
type PortalConfig struct {
	// BusName is the well-known name to own.
	// Default: org.freedesktop.portal.Desktop
	BusName string `yaml:"bus_name"`

	// ObjectPath is where the interface is exported.
	// Default: /org/freedesktop/portal/desktop
	ObjectPath string `yaml:"object_path"`

	// SessionBusAddress overrides DBUS_SESSION_BUS_ADDRESS.
	SessionBusAddress string `yaml:"session_bus_address"`

	// Replace takes over BusName from a running owner.
	Replace bool `yaml:"replace"`
}

// RealtimeKitConfig locates RealtimeKit.
type RealtimeKitConfig struct {
	// BusName. Default: org.freedesktop.RealtimeKit1
	BusName string `yaml:"bus_name"`

	// ObjectPath. Default: /org/freedesktop/RealtimeKit1
	ObjectPath string `yaml:"object_path"`

	// SystemBusAddress overrides the system bus socket.
	SystemBusAddress string `yaml:"system_bus_address"`
}

// AppInfoConfig configures caller identification.
type AppInfoConfig struct {
	// ProcRoot is the procfs mount. Default: /proc
	ProcRoot string `yaml:"proc_root"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BusName:    "org.freedesktop.portal.Desktop",
			ObjectPath: "/org/freedesktop/portal/desktop",
		},
		RealtimeKit: RealtimeKitConfig{
			BusName:    "org.freedesktop.RealtimeKit1",
			ObjectPath: "/org/freedesktop/RealtimeKit1",
		},
		AppInfo: AppInfoConfig{
			ProcRoot: "/proc",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by
// BUREAU_REALTIME_CONFIG. When the variable is unset the defaults are
// returned.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, on top of
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
// JSON is a subset of YAML, so JSONC files are reduced to JSON and
// decoded by the same YAML decoder.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// and address fields.
func (c *Config) expandVariables() {
	c.Portal.SessionBusAddress = expandVars(c.Portal.SessionBusAddress)
	c.RealtimeKit.SystemBusAddress = expandVars(c.RealtimeKit.SystemBusAddress)
	c.AppInfo.ProcRoot = expandVars(c.AppInfo.ProcRoot)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Portal.BusName != "" && !validBusName(c.Portal.BusName) {
		errs = append(errs, fmt.Errorf("portal.bus_name %q is not a valid bus name", c.Portal.BusName))
	}
	if !dbus.ObjectPath(c.Portal.ObjectPath).IsValid() {
		errs = append(errs, fmt.Errorf("portal.object_path %q is not a valid object path", c.Portal.ObjectPath))
	}
	if !validBusName(c.RealtimeKit.BusName) {
		errs = append(errs, fmt.Errorf("realtimekit.bus_name %q is not a valid bus name", c.RealtimeKit.BusName))
	}
	if !dbus.ObjectPath(c.RealtimeKit.ObjectPath).IsValid() {
		errs = append(errs, fmt.Errorf("realtimekit.object_path %q is not a valid object path", c.RealtimeKit.ObjectPath))
	}
	if c.AppInfo.ProcRoot == "" {
		errs = append(errs, fmt.Errorf("appinfo.proc_root is required"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// busNamePattern matches well-known bus names: two or more dot-separated
// elements, none starting with a digit.
var busNamePattern = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*(\.[A-Za-z_-][A-Za-z0-9_-]*)+$`)

func validBusName(name string) bool {
	return len(name) <= 255 && busNamePattern.MatchString(name)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds a logger writing to w. When verbose is set the level
// is lowered to debug regardless of Level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
}
