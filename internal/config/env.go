package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOOKHOST_"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envSetter parses a raw value into one configuration field.
type envSetter func(c *Config, value string) error

// envMapping maps environment variables to the fields they override.
var envMapping = map[string]envSetter{
	"HOOKHOST_MAX_CLIENTS":         intField(func(c *Config) *int { return &c.Server.MaxClients }),
	"HOOKHOST_MAX_EDICTS":          intField(func(c *Config) *int { return &c.Server.MaxEdicts }),
	"HOOKHOST_FRAME_RATE":          intField(func(c *Config) *int { return &c.Server.FrameRate }),
	"HOOKHOST_PLUGIN_PATHS":        listField(func(c *Config) *[]string { return &c.Plugins.Paths }),
	"HOOKHOST_PLUGINS_DISABLED":    listField(func(c *Config) *[]string { return &c.Plugins.Disabled }),
	"HOOKHOST_PLUGIN_WATCH":        boolField(func(c *Config) *bool { return &c.Plugins.Watch }),
	"HOOKHOST_PLUGIN_AUTO":         boolField(func(c *Config) *bool { return &c.Plugins.AutoActivate }),
	"HOOKHOST_PLUGIN_TIMEOUT":      durationField(func(c *Config) *Duration { return &c.Plugins.ExecutionTimeout }),
	"HOOKHOST_EXTENSIONS_DISABLED": listField(func(c *Config) *[]string { return &c.Extensions.Disabled }),
	"HOOKHOST_LOG_LEVEL":           stringField(func(c *Config) *string { return &c.Logging.Level }),
	"HOOKHOST_LOG_FORMAT":          stringField(func(c *Config) *string { return &c.Logging.Format }),
	"HOOKHOST_LOG_OUTPUT":          stringField(func(c *Config) *string { return &c.Logging.Output }),
}

// EnvVars returns the names of the supported environment overrides.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv applies every override lookup finds. Empty values are treated as
// set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	for _, name := range EnvVars() {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := envMapping[name](c, value); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnv, name, value, err))
		}
	}
	return errors.Join(errs...)
}

// LoadDotEnv loads path into the process environment. Variables already set
// are not overridden and a missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func dotEnvPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".env")
}

func intField(field func(*Config) *int) envSetter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolField(field func(*Config) *bool) envSetter {
	return func(c *Config, value string) error {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			*field(c) = true
		case "0", "false", "no", "off", "":
			*field(c) = false
		default:
			return errors.New("not a boolean")
		}
		return nil
	}
}

func durationField(field func(*Config) *Duration) envSetter {
	return func(c *Config, value string) error {
		return field(c).UnmarshalText([]byte(value))
	}
}

func stringField(field func(*Config) *string) envSetter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

// listField splits on commas and drops empty entries.
func listField(field func(*Config) *[]string) envSetter {
	return func(c *Config, value string) error {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*field(c) = out
		return nil
	}
}
