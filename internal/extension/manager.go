package extension

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hooks"
)

// Manager errors.
var (
	ErrAlreadyLoaded = errors.New("extension already loaded")
	ErrNotLoaded     = errors.New("extension not loaded")
	ErrDisabled      = errors.New("extension is disabled")
	ErrEmptyName     = errors.New("extension name is empty")
)

// loaded is one initialized extension instance.
type loaded struct {
	ext Extension
	ctx *Context
}

// Manager loads and unloads extensions.
type Manager struct {
	hooks    *hooks.Facade
	forwards *forward.Manager
	disabled []string

	loaded []*loaded
	logger zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDisabled refuses to load the named extensions.
func WithDisabled(names ...string) ManagerOption {
	return func(m *Manager) {
		m.disabled = append(m.disabled, names...)
	}
}

// NewManager creates an extension manager over the given hooks and forwards.
func NewManager(facade *hooks.Facade, fwd *forward.Manager, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		hooks:    facade,
		forwards: fwd,
		logger:   logger.With().Str("component", "extension").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load initializes ext under a fresh owner identity. If Init fails every
// registration made under that identity is rolled back.
func (m *Manager) Load(ext Extension) error {
	name := ext.Name()
	if name == "" {
		return ErrEmptyName
	}
	if slices.Contains(m.disabled, name) {
		return fmt.Errorf("%s: %w", name, ErrDisabled)
	}
	if m.find(name) >= 0 {
		return fmt.Errorf("%s: %w", name, ErrAlreadyLoaded)
	}

	owner := name + "#" + uuid.NewString()
	ctx := &Context{
		Engine:   m.hooks.Engine,
		Game:     m.hooks.Game,
		Hooks:    m.hooks,
		Forwards: m.forwards,
		Logger:   m.logger.With().Str("extension", name).Logger(),
		Owner:    owner,
	}

	if err := m.initSafely(ext, ctx); err != nil {
		hooksRemoved, targets, forwards := m.release(owner)
		m.logger.Error().
			Err(err).
			Str("extension", name).
			Int("hooks", hooksRemoved).
			Int("targets", targets).
			Int("forwards", forwards).
			Msg("extension failed to initialize, registrations rolled back")
		return fmt.Errorf("init %s: %w", name, err)
	}

	m.loaded = append(m.loaded, &loaded{ext: ext, ctx: ctx})
	m.logger.Info().
		Str("extension", name).
		Str("owner", owner).
		Int("hooks", m.hooks.CountOwned(owner)).
		Msg("extension loaded")
	return nil
}

func (m *Manager) initSafely(ext Extension, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ext.Init(ctx)
}

// Unload calls the extension's Unload and then removes whatever it left
// registered. Leftovers are logged as leaks. The Unload error, if any, is
// returned after the cleanup.
func (m *Manager) Unload(name string) error {
	i := m.find(name)
	if i < 0 {
		return fmt.Errorf("%s: %w", name, ErrNotLoaded)
	}
	l := m.loaded[i]
	m.loaded = slices.Delete(m.loaded, i, i+1)

	unloadErr := m.unloadSafely(l)

	hooksLeaked, targetsLeaked, forwardsLeaked := m.release(l.ctx.Owner)
	if hooksLeaked > 0 || targetsLeaked > 0 || forwardsLeaked > 0 {
		m.logger.Warn().
			Str("extension", name).
			Int("hooks", hooksLeaked).
			Int("targets", targetsLeaked).
			Int("forwards", forwardsLeaked).
			Msg("extension leaked registrations, released")
	}

	if unloadErr != nil {
		m.logger.Error().Err(unloadErr).Str("extension", name).Msg("extension unload failed")
		return fmt.Errorf("unload %s: %w", name, unloadErr)
	}
	m.logger.Info().Str("extension", name).Msg("extension unloaded")
	return nil
}

func (m *Manager) unloadSafely(l *loaded) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.ext.Unload(l.ctx)
}

// UnloadAll unloads every extension in reverse load order.
func (m *Manager) UnloadAll() error {
	var errs []error
	for len(m.loaded) > 0 {
		name := m.loaded[len(m.loaded)-1].ext.Name()
		if err := m.Unload(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) release(owner string) (hooksRemoved, targets, forwards int) {
	hooksRemoved = m.hooks.UnregisterOwner(owner)
	targets, forwards = m.forwards.ReleaseOwner(owner)
	return hooksRemoved, targets, forwards
}

func (m *Manager) find(name string) int {
	return slices.IndexFunc(m.loaded, func(l *loaded) bool { return l.ext.Name() == name })
}

// Owner returns the owner identity of a loaded extension.
func (m *Manager) Owner(name string) (string, bool) {
	i := m.find(name)
	if i < 0 {
		return "", false
	}
	return m.loaded[i].ctx.Owner, true
}

// Names returns loaded extension names in load order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.loaded))
	for i, l := range m.loaded {
		names[i] = l.ext.Name()
	}
	return names
}

// Count returns the number of loaded extensions.
func (m *Manager) Count() int {
	return len(m.loaded)
}
