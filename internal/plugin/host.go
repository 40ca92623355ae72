package plugin

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookcore/internal/hookchain"
	plua "github.com/dshills/hookcore/internal/plugin/lua"
)

// Lifecycle functions a plugin may define.
const (
	initFunction = "plugin_init"
	endFunction  = "plugin_end"
)

// Host manages a single plugin's Lua state and lifecycle.
type Host struct {
	id       string
	name     string
	manifest *Manifest

	state  *plua.State
	bridge *plua.Bridge

	pluginState State
	err         error

	config map[string]any

	// Hooks registered through hc.register_hook, by script-visible id.
	hooks      map[int]hookchain.Handle
	nextHookID int

	// Hooks that were enabled when the plugin was paused.
	pausedHooks []hookchain.Handle

	executionTimeout time.Duration
	installers       []func(*Host)
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// WithHostConfig overrides manifest config defaults.
func WithHostConfig(config map[string]any) HostOption {
	return func(h *Host) {
		maps.Copy(h.config, config)
	}
}

// WithInstaller runs fn on every Load, after the Lua state is created and
// before the main file runs. It is how host modules reach plugin code.
func WithInstaller(fn func(*Host)) HostOption {
	return func(h *Host) {
		h.installers = append(h.installers, fn)
	}
}

// NewHost creates a new plugin host for the given manifest. Each host gets
// a fresh identity used as the owner of its hooks and forward targets.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		id:               uuid.NewString(),
		name:             manifest.Name,
		manifest:         manifest,
		pluginState:      StateUnloaded,
		config:           maps.Clone(manifest.Config),
		hooks:            make(map[int]hookchain.Handle),
		executionTimeout: plua.DefaultExecutionTimeout,
	}
	if h.config == nil {
		h.config = make(map[string]any)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ID returns the owner identity of this plugin instance.
func (h *Host) ID() string { return h.id }

// Name returns the plugin name.
func (h *Host) Name() string { return h.name }

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest { return h.manifest }

// State returns the current plugin state.
func (h *Host) State() State { return h.pluginState }

// Error returns the error that put the plugin in StateError.
func (h *Host) Error() error { return h.err }

// Config returns a copy of the plugin configuration.
func (h *Host) Config() map[string]any {
	return maps.Clone(h.config)
}

// Load creates the Lua state, runs the installers and executes the main
// file.
func (h *Host) Load(ctx context.Context) error {
	if h.pluginState != StateUnloaded {
		return ErrAlreadyLoaded
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state, err := plua.NewState(plua.WithExecutionTimeout(h.executionTimeout))
	if err != nil {
		return h.fail(err)
	}
	h.state = state
	h.bridge = plua.NewBridge(state.L)

	for _, c := range h.manifest.GrantedCapabilities() {
		state.Sandbox().Grant(c)
	}
	for _, install := range h.installers {
		install(h)
	}

	if err := state.DoFile(h.manifest.MainPath()); err != nil {
		_ = state.Close()
		h.state = nil
		h.bridge = nil
		return h.fail(fmt.Errorf("loading %s: %w", h.manifest.MainPath(), err))
	}

	h.pluginState = StateLoaded
	h.err = nil
	return nil
}

func (h *Host) fail(err error) error {
	h.pluginState = StateError
	h.err = err
	return err
}

// Activate calls plugin_init(config) if the plugin defines it.
func (h *Host) Activate(ctx context.Context) error {
	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.HasFunction(initFunction) {
		if _, err := h.state.Call(initFunction, h.bridge.ToLuaValue(h.config)); err != nil {
			return h.fail(fmt.Errorf("%s: %w", initFunction, err))
		}
	}

	h.pluginState = StateActive
	return nil
}

// Unload calls plugin_end if the plugin was active and closes the Lua
// state. Errors from plugin_end are returned after the state is closed.
func (h *Host) Unload() error {
	if h.pluginState == StateUnloaded {
		return nil
	}
	if h.state != nil && h.state.Depth() > 0 {
		return ErrPluginBusy
	}

	var endErr error
	if (h.pluginState == StateActive || h.pluginState == StatePaused) && h.HasFunction(endFunction) {
		if _, err := h.state.Call(endFunction); err != nil {
			endErr = fmt.Errorf("%s: %w", endFunction, err)
		}
	}

	if h.state != nil {
		_ = h.state.Close()
		h.state = nil
	}
	h.bridge = nil
	h.hooks = make(map[int]hookchain.Handle)
	h.pausedHooks = nil
	h.pluginState = StateUnloaded
	return endErr
}

// Busy returns true while plugin code is on the call stack.
func (h *Host) Busy() bool {
	return h.state != nil && h.state.Depth() > 0
}

// Call calls a global Lua function in the plugin with Go values.
func (h *Host) Call(fn string, args ...any) ([]any, error) {
	if h.state == nil {
		return nil, ErrNotLoaded
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = h.bridge.ToLuaValue(arg)
	}
	results, err := h.state.Call(fn, luaArgs...)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = h.bridge.ToGoValue(r)
	}
	return out, nil
}

// HasFunction returns true if the plugin has the named global function.
func (h *Host) HasFunction(name string) bool {
	_, ok := h.Function(name)
	return ok
}

// Function returns the plugin's global function name.
func (h *Host) Function(name string) (*lua.LFunction, bool) {
	if h.state == nil {
		return nil, false
	}
	return h.state.Function(name)
}

// Target returns a forward target calling the named function.
func (h *Host) Target(name string) (*plua.Target, bool) {
	fn, ok := h.Function(name)
	if !ok {
		return nil, false
	}
	return plua.NewTarget(h.state, h.id, name, fn), true
}

// DoString executes Lua code in the plugin's state.
func (h *Host) DoString(code string) error {
	if h.state == nil {
		return ErrNotLoaded
	}
	return h.state.DoString(code)
}

// LuaState returns the plugin's Lua state, or nil if it is not loaded.
func (h *Host) LuaState() *plua.State {
	return h.state
}

// Bridge returns the Go-Lua bridge.
func (h *Host) Bridge() *plua.Bridge {
	return h.bridge
}

// trackHook records a hook registered by the script and returns its id.
func (h *Host) trackHook(handle hookchain.Handle) int {
	h.nextHookID++
	h.hooks[h.nextHookID] = handle
	return h.nextHookID
}

// hook returns a tracked hook handle. Handles of removed hooks are dropped.
func (h *Host) hook(id int) (hookchain.Handle, bool) {
	handle, ok := h.hooks[id]
	if ok && !handle.Valid() {
		delete(h.hooks, id)
		return hookchain.Handle{}, false
	}
	return handle, ok
}

func (h *Host) untrackHook(id int) {
	delete(h.hooks, id)
}

// Hooks returns the live hooks the script registered, in registration order.
func (h *Host) Hooks() []hookchain.Handle {
	ids := slices.Sorted(maps.Keys(h.hooks))
	out := make([]hookchain.Handle, 0, len(ids))
	for _, id := range ids {
		if handle := h.hooks[id]; handle.Valid() {
			out = append(out, handle)
		}
	}
	return out
}

// suspendHooks disables the plugin's enabled hooks and remembers them.
func (h *Host) suspendHooks() {
	h.pausedHooks = h.pausedHooks[:0]
	for _, handle := range h.Hooks() {
		if st, ok := handle.State(); ok && st == hookchain.StateEnabled {
			handle.Disable()
			h.pausedHooks = append(h.pausedHooks, handle)
		}
	}
}

// restoreHooks re-enables the hooks disabled by suspendHooks. Hooks the
// script disabled itself stay disabled.
func (h *Host) restoreHooks() {
	for _, handle := range h.pausedHooks {
		handle.Enable()
	}
	h.pausedHooks = nil
}

// Stats returns runtime statistics for the plugin.
func (h *Host) Stats() HostStats {
	return HostStats{
		Name:     h.name,
		ID:       h.id,
		Version:  h.manifest.Version,
		State:    h.pluginState,
		Hooks:    len(h.Hooks()),
		HasError: h.err != nil,
	}
}

// HostStats contains runtime statistics for a plugin host.
type HostStats struct {
	Name     string
	ID       string
	Version  string
	State    State
	Hooks    int
	HasError bool
}
