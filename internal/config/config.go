// Package config loads the host configuration.
//
// Values are resolved in order of increasing precedence:
//
//  1. Built-in defaults (Default)
//  2. The configuration file, TOML or YAML by extension
//  3. A .env file next to it, if present
//  4. HOOKHOST_* environment variables
//
// Without an explicit path the first existing file of DefaultFiles is used.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/hookcore/internal/logging"
)

// DefaultFile is the preferred configuration file name.
const DefaultFile = "hookhost.toml"

// DefaultFiles are the names looked up, in order, when no path is given.
var DefaultFiles = []string{DefaultFile, "hookhost.yaml", "hookhost.yml"}

// Format is a configuration file encoding.
type Format int

// Supported formats.
const (
	FormatTOML Format = iota
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatFor returns the format implied by path's extension. Anything other
// than .yaml or .yml is read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Config is the complete host configuration.
type Config struct {
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Plugins    PluginsConfig    `toml:"plugins" yaml:"plugins"`
	Extensions ExtensionsConfig `toml:"extensions" yaml:"extensions"`
	Logging    logging.Config   `toml:"logging" yaml:"logging"`
}

// ServerConfig sizes the simulated server.
type ServerConfig struct {
	MaxClients int `toml:"max_clients" yaml:"max_clients"`
	MaxEdicts  int `toml:"max_edicts" yaml:"max_edicts"`

	// FrameRate is the number of frames per second in run mode.
	FrameRate int `toml:"frame_rate" yaml:"frame_rate"`
}

// FrameInterval returns the duration of one frame.
func (s ServerConfig) FrameInterval() time.Duration {
	if s.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.FrameRate)
}

// PluginsConfig controls the Lua plugin system.
type PluginsConfig struct {
	Paths    []string `toml:"paths" yaml:"paths"`
	Disabled []string `toml:"disabled,omitempty" yaml:"disabled,omitempty"`

	// Watch reloads plugins whose files change.
	Watch bool `toml:"watch" yaml:"watch"`

	// AutoActivate calls plugin_init right after loading.
	AutoActivate bool `toml:"auto_activate" yaml:"auto_activate"`

	// ExecutionTimeout bounds each top-level call into a plugin.
	ExecutionTimeout Duration `toml:"execution_timeout" yaml:"execution_timeout"`
}

// ExtensionsConfig controls the built-in extensions.
type ExtensionsConfig struct {
	Disabled []string `toml:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			MaxClients: 32,
			MaxEdicts:  900,
			FrameRate:  20,
		},
		Plugins: PluginsConfig{
			Paths:            []string{"plugins"},
			AutoActivate:     true,
			ExecutionTimeout: Duration(2 * time.Second),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies environment overrides. With
// an empty path the first existing file of DefaultFiles is read, and none
// existing is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = findDefault()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, FormatFor(path), cfg); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := LoadDotEnv(dotEnvPath(path)); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findDefault returns the first of DefaultFiles that exists, or DefaultFile.
func findDefault() string {
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return DefaultFile
}

func decode(data []byte, format Format, cfg *Config) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, cfg)
	}
	return toml.Unmarshal(data, cfg)
}

// Parse decodes data in the given format over the defaults without
// consulting the environment.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	if err := decode(data, format, cfg); err != nil {
		return nil, &ParseError{Path: "<input>", Err: err}
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the host cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.MaxClients < 1 {
		errs = append(errs, fmt.Errorf("%w: server.max_clients must be at least 1", ErrValidationFailed))
	}
	if c.Server.MaxEdicts <= c.Server.MaxClients {
		errs = append(errs, fmt.Errorf("%w: server.max_edicts must exceed server.max_clients", ErrValidationFailed))
	}
	if c.Server.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("%w: server.frame_rate must not be negative", ErrValidationFailed))
	}
	if c.Plugins.ExecutionTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: plugins.execution_timeout must not be negative", ErrValidationFailed))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging: %w", ErrValidationFailed, err))
	}

	return errors.Join(errs...)
}

// Marshal encodes the configuration in the given format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(c)
	}
	return toml.Marshal(c)
}
