package plugin

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/pelletier/go-toml/v2"

	plua "github.com/dshills/hookcore/internal/plugin/lua"
)

// ManifestFile is the name of the manifest inside a plugin directory.
const ManifestFile = "plugin.toml"

// Manifest describes a plugin's metadata and requirements.
type Manifest struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	Author      string `toml:"author"`

	// Main is the entry point relative to the plugin directory.
	Main string `toml:"main"`

	Capabilities []string `toml:"capabilities"`

	// Config holds default values passed to plugin_init.
	Config map[string]any `toml:"config"`

	// Forwards binds forwards to functions whose names differ.
	Forwards []ForwardBinding `toml:"forwards"`

	path string
}

// ForwardBinding maps a forward to the Lua function that handles it.
type ForwardBinding struct {
	Forward  string `toml:"forward"`
	Function string `toml:"function"`
}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be lowercase alphanumeric with hyphens or underscores")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidMain       = errors.New("manifest: main must be a .lua file")
	ErrInvalidCapability = errors.New("manifest: invalid capability")
	ErrInvalidBinding    = errors.New("manifest: invalid forward binding")
)

var (
	namePattern   = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
)

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads plugin.toml from a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// NewManifestMinimal creates the manifest of a plugin without plugin.toml.
func NewManifestMinimal(name, dir, main string) *Manifest {
	m := &Manifest{Name: name, Main: main, path: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	for _, c := range m.Capabilities {
		if _, ok := plua.ParseCapability(c); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, c)
		}
	}

	seen := make(map[string]bool, len(m.Forwards))
	for i, b := range m.Forwards {
		if b.Forward == "" || b.Function == "" {
			return fmt.Errorf("%w at index %d: forward and function are required", ErrInvalidBinding, i)
		}
		if seen[b.Forward] {
			return fmt.Errorf("%w: %s bound twice", ErrInvalidBinding, b.Forward)
		}
		seen[b.Forward] = true
	}
	return nil
}

// Path returns the path to the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// GrantedCapabilities returns the requested capabilities. Validate has
// already rejected unknown names.
func (m *Manifest) GrantedCapabilities() []plua.Capability {
	caps := make([]plua.Capability, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		if capability, ok := plua.ParseCapability(c); ok {
			caps = append(caps, capability)
		}
	}
	return caps
}

// FunctionFor returns the Lua function bound to the named forward: the
// explicit [[forwards]] entry if there is one, else the forward's name.
func (m *Manifest) FunctionFor(forward string) string {
	for _, b := range m.Forwards {
		if b.Forward == forward {
			return b.Function
		}
	}
	return forward
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}

// Clone copies the manifest. Nested config values are shared.
func (m *Manifest) Clone() *Manifest {
	clone := *m
	clone.Capabilities = slices.Clone(m.Capabilities)
	clone.Forwards = slices.Clone(m.Forwards)
	clone.Config = maps.Clone(m.Config)
	return &clone
}
