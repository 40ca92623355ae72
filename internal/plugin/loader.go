package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Loader discovers plugins on the filesystem. A plugin is a directory with
// plugin.toml, init.lua or plugin.lua, or a single name.lua file.
type Loader struct {
	// Search paths, checked in order. The first path holding a name wins.
	paths []string

	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns ./plugins.
func DefaultPluginPaths() []string {
	return []string{"plugins"}
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return slices.Clone(l.paths)
}

// Discover finds all plugins in the search paths, sorted by name. Plugins
// that fail inspection are returned with Error set.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	var errs []error
	for _, base := range l.paths {
		if err := l.discoverInPath(base); err != nil {
			errs = append(errs, err)
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	slices.SortFunc(plugins, func(a, b *PluginInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return plugins, errors.Join(errs...)
}

func (l *Loader) discoverInPath(base string) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading plugin path %s: %w", base, err)
	}

	for _, entry := range entries {
		var info *PluginInfo
		switch {
		case entry.IsDir():
			info = inspectDir(entry.Name(), filepath.Join(base, entry.Name()))
		case filepath.Ext(entry.Name()) == ".lua":
			info = singleFile(base, entry.Name())
		default:
			continue
		}
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
	return nil
}

func singleFile(dir, file string) *PluginInfo {
	name := strings.TrimSuffix(file, ".lua")
	return &PluginInfo{
		Name:     name,
		Path:     dir,
		Manifest: NewManifestMinimal(name, dir, file),
	}
}

// inspectDir examines a plugin directory. The manifest name, when present,
// overrides the directory name.
func inspectDir(name, dir string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: dir}

	manifestPath := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = m
		info.Name = m.Name
		return info
	}

	for _, main := range []string{"init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(dir, main)); err == nil {
			info.Manifest = NewManifestMinimal(name, dir, main)
			return info
		}
	}

	info.Error = ErrNoEntryPoint
	return info
}

// Get returns a discovered plugin by name.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// FindPlugin returns the named plugin, searching the paths if it has not
// been discovered yet.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	if info, ok := l.discovered[name]; ok {
		if info.Error != nil {
			return nil, fmt.Errorf("plugin %q: %w", name, info.Error)
		}
		return info, nil
	}

	for _, base := range l.paths {
		dir := filepath.Join(base, name)
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			if info := inspectDir(name, dir); info.Error == nil {
				l.discovered[info.Name] = info
				return info, nil
			}
		}
		if _, err := os.Stat(filepath.Join(base, name+".lua")); err == nil {
			info := singleFile(base, name+".lua")
			l.discovered[name] = info
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// Forget drops a cached discovery so the next FindPlugin inspects the disk
// again.
func (l *Loader) Forget(name string) {
	delete(l.discovered, name)
}

// ListNames returns the names of all discovered plugins.
func (l *Loader) ListNames() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Errors returns discovered plugins that failed inspection.
func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, name := range l.ListNames() {
		if info := l.discovered[name]; info.Error != nil {
			errored = append(errored, info)
		}
	}
	return errored
}
