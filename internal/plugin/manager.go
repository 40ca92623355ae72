package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hooks"
)

// Manager manages the lifecycle of all plugins: discovery, loading,
// forward binding, pausing and unloading.
type Manager struct {
	loader   *Loader
	hooks    *hooks.Facade
	forwards *forward.Manager

	plugins   map[string]*Host
	loadOrder []string

	eventHandlers []EventHandler

	config ManagerConfig
	logger zerolog.Logger
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// PluginPaths are directories to search for plugins.
	PluginPaths []string

	// AutoActivate calls plugin_init right after loading.
	AutoActivate bool

	// Disabled plugins are discovered but never loaded.
	Disabled []string

	// ExecutionTimeout bounds each top-level call into a plugin.
	ExecutionTimeout time.Duration
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PluginPaths:  DefaultPluginPaths(),
		AutoActivate: true,
	}
}

// EventHandler handles plugin manager events. Panics in handlers are
// recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded is emitted when a plugin is unloaded.
	EventPluginUnloaded
	// EventPluginActivated is emitted when plugin_init succeeds.
	EventPluginActivated
	// EventPluginPaused is emitted when a plugin is paused.
	EventPluginPaused
	// EventPluginResumed is emitted when a paused plugin is resumed.
	EventPluginResumed
	// EventPluginReloaded is emitted when a plugin is reloaded.
	EventPluginReloaded
	// EventPluginError is emitted when a plugin encounters an error.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginActivated:
		return "activated"
	case EventPluginPaused:
		return "paused"
	case EventPluginResumed:
		return "resumed"
	case EventPluginReloaded:
		return "reloaded"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a plugin manager that registers plugin hooks in
// facade and binds plugin functions to forwards of fwd.
func NewManager(config ManagerConfig, facade *hooks.Facade, fwd *forward.Manager, logger zerolog.Logger) *Manager {
	return &Manager{
		loader:   NewLoader(WithPaths(config.PluginPaths...)),
		hooks:    facade,
		forwards: fwd,
		plugins:  make(map[string]*Host),
		config:   config,
		logger:   logger.With().Str("component", "plugin").Logger(),
	}
}

// Discover searches for available plugins.
func (m *Manager) Discover() ([]*PluginInfo, error) {
	return m.loader.Discover()
}

// Load loads a plugin by name, binds its functions to existing forwards and
// activates it if AutoActivate is set. Hooks a failing plugin registered
// before the failure are removed.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	if _, exists := m.plugins[name]; exists {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	if slices.Contains(m.config.Disabled, name) {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrPluginDisabled)
	}

	info, err := m.loader.FindPlugin(name)
	if err != nil {
		return nil, err
	}

	opts := []HostOption{WithInstaller(m.installAPI)}
	if m.config.ExecutionTimeout > 0 {
		opts = append(opts, WithHostExecutionTimeout(m.config.ExecutionTimeout))
	}
	host, err := NewHost(info.Manifest, opts...)
	if err != nil {
		return nil, err
	}

	m.plugins[name] = host
	m.loadOrder = append(m.loadOrder, name)

	if err := host.Load(ctx); err != nil {
		m.forget(host)
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return nil, fmt.Errorf("loading plugin %q: %w", name, err)
	}

	bound := m.bindForwards(host)
	m.logger.Info().
		Str("plugin", name).
		Str("version", host.Manifest().Version).
		Str("id", host.ID()).
		Int("forwards", bound).
		Int("hooks", len(host.Hooks())).
		Msg("plugin loaded")
	m.emitEvent(ManagerEvent{Type: EventPluginLoaded, Plugin: name})

	if m.config.AutoActivate {
		if err := m.Activate(ctx, name); err != nil {
			return host, err
		}
	}
	return host, nil
}

// forget removes a plugin that failed to load along with everything it
// registered.
func (m *Manager) forget(host *Host) {
	m.release(host)
	delete(m.plugins, host.Name())
	m.loadOrder = slices.DeleteFunc(m.loadOrder, func(n string) bool { return n == host.Name() })
}

// release removes the plugin's hooks and forward targets and destroys the
// forwards it created.
func (m *Manager) release(host *Host) {
	removed := m.hooks.UnregisterOwner(host.ID())
	unbound, destroyed := m.forwards.ReleaseOwner(host.ID())
	if removed > 0 || unbound > 0 || destroyed > 0 {
		m.logger.Debug().
			Str("plugin", host.Name()).
			Int("hooks", removed).
			Int("targets", unbound).
			Int("forwards", destroyed).
			Msg("plugin registrations released")
	}
}

// LoadAll loads every discovered plugin that is not disabled.
func (m *Manager) LoadAll(ctx context.Context) error {
	plugins, err := m.loader.Discover()
	if err != nil {
		m.logger.Warn().Err(err).Msg("plugin discovery incomplete")
	}

	var loadErrors []error
	for _, info := range plugins {
		if info.Error != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, info.Error))
			continue
		}
		if slices.Contains(m.config.Disabled, info.Name) {
			m.logger.Debug().Str("plugin", info.Name).Msg("plugin disabled")
			continue
		}
		if _, err := m.Load(ctx, info.Name); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Activate calls a loaded plugin's plugin_init.
func (m *Manager) Activate(ctx context.Context, name string) error {
	host, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	if err := host.Activate(ctx); err != nil {
		m.logger.Error().Err(err).Str("plugin", name).Msg("plugin failed to initialize")
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return err
	}
	m.emitEvent(ManagerEvent{Type: EventPluginActivated, Plugin: name})
	return nil
}

// Unload calls plugin_end, releases the plugin's hooks and forward targets
// and closes its state. A plugin cannot unload while its code is running.
func (m *Manager) Unload(name string) error {
	host, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	if host.Busy() {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginBusy)
	}

	endErr := host.Unload()
	m.forget(host)

	if endErr != nil {
		m.logger.Warn().Err(endErr).Str("plugin", name).Msg("plugin_end failed")
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: endErr})
	}
	m.logger.Info().Str("plugin", name).Msg("plugin unloaded")
	m.emitEvent(ManagerEvent{Type: EventPluginUnloaded, Plugin: name})
	return nil
}

// UnloadAll unloads all plugins in reverse load order.
func (m *Manager) UnloadAll() error {
	names := slices.Clone(m.loadOrder)
	slices.Reverse(names)

	var unloadErrors []error
	for _, name := range names {
		if err := m.Unload(name); err != nil {
			unloadErrors = append(unloadErrors, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(unloadErrors) > 0 {
		return fmt.Errorf("failed to unload %d plugins: %w", len(unloadErrors), errors.Join(unloadErrors...))
	}
	return nil
}

// Reload unloads a plugin and loads it again from disk.
func (m *Manager) Reload(ctx context.Context, name string) error {
	if _, exists := m.plugins[name]; exists {
		if err := m.Unload(name); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
	}
	m.loader.Forget(name)

	if _, err := m.Load(ctx, name); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	m.emitEvent(ManagerEvent{Type: EventPluginReloaded, Plugin: name})
	return nil
}

// Pause disables a plugin's hooks and suspends its forward targets without
// unloading it. Suspended targets keep their place in each forward.
func (m *Manager) Pause(name string) error {
	host, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	if host.State() != StateActive {
		return fmt.Errorf("plugin %q is %s", name, host.State())
	}

	host.suspendHooks()
	for _, f := range m.forwards.Forwards() {
		f.Suspend(host.ID())
	}
	host.pluginState = StatePaused

	m.logger.Info().Str("plugin", name).Msg("plugin paused")
	m.emitEvent(ManagerEvent{Type: EventPluginPaused, Plugin: name})
	return nil
}

// Resume re-enables the hooks Pause disabled and reactivates the plugin's
// forward targets in place.
func (m *Manager) Resume(name string) error {
	host, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	if host.State() != StatePaused {
		return fmt.Errorf("plugin %q is %s", name, host.State())
	}

	host.restoreHooks()
	for _, f := range m.forwards.Forwards() {
		f.Resume(host.ID())
	}
	host.pluginState = StateActive

	m.logger.Info().Str("plugin", name).Msg("plugin resumed")
	m.emitEvent(ManagerEvent{Type: EventPluginResumed, Plugin: name})
	return nil
}

// bindForwards binds the plugin to every named forward it has a function
// for and returns how many were bound.
func (m *Manager) bindForwards(host *Host) int {
	bound := 0
	for _, f := range m.forwards.Named() {
		if m.bind(host, f) {
			bound++
		}
	}
	return bound
}

// BindForward binds every loaded plugin, in load order, to a forward
// created after the plugins loaded. Paused plugins are bound suspended. It
// returns how many were bound.
func (m *Manager) BindForward(f *forward.Forward) int {
	bound := 0
	for _, name := range m.loadOrder {
		host := m.plugins[name]
		if !host.State().IsUsable() {
			continue
		}
		if m.bind(host, f) {
			bound++
			if host.State() == StatePaused {
				f.Suspend(host.ID())
			}
		}
	}
	return bound
}

// bind attaches the plugin's handler for f, if it has one. Signature
// mismatches are skipped.
func (m *Manager) bind(host *Host, f *forward.Forward) bool {
	fn := host.Manifest().FunctionFor(f.Name())
	target, ok := host.Target(fn)
	if !ok {
		return false
	}
	if err := f.Bind(target); err != nil {
		m.logger.Debug().
			Err(err).
			Str("plugin", host.Name()).
			Str("forward", f.Name()).
			Str("function", fn).
			Msg("forward binding skipped")
		return false
	}
	return true
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Host, bool) {
	host, exists := m.plugins[name]
	return host, exists
}

// List returns all loaded plugins in load order.
func (m *Manager) List() []*Host {
	result := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		result = append(result, m.plugins[name])
	}
	return result
}

// ListActive returns all active plugins in load order.
func (m *Manager) ListActive() []*Host {
	var result []*Host
	for _, host := range m.List() {
		if host.State() == StateActive {
			result = append(result, host)
		}
	}
	return result
}

// Subscribe adds an event handler. Returns a function removing it.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	return func() {
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	return len(m.plugins)
}

// Errors returns plugins in error state with their errors.
func (m *Manager) Errors() map[string]error {
	errs := make(map[string]error)
	for name, host := range m.plugins {
		if host.State() == StateError && host.Error() != nil {
			errs[name] = host.Error()
		}
	}
	return errs
}

// Loader returns the underlying loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

func (m *Manager) emitEvent(event ManagerEvent) {
	for _, handler := range slices.Clone(m.eventHandlers) {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error().Interface("panic", r).Msg("plugin event handler panicked")
				}
			}()
			handler(event)
		}()
	}
}
