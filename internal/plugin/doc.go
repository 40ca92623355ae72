// Package plugin provides the Lua plugin system of the hook host.
//
// Plugins are Lua scripts that can:
//   - Intercept engine and game call sites through hook chains
//   - Handle forwards by defining functions named after them
//   - Declare their own forwards for other plugins to handle
//   - Execute forwards, passing values by reference
//
// # Plugin Structure
//
// Plugins can be either single-file or directory-based:
//
// Single-file plugin:
//
//	plugins/antiflood.lua
//
// Directory plugin:
//
//	plugins/antiflood/
//	├── plugin.toml      # Manifest (optional)
//	└── init.lua         # Entry point
//
// # Manifest
//
// The plugin.toml manifest describes the plugin:
//
//	name = "antiflood"
//	version = "1.2.0"
//	description = "Limits chat spam"
//	main = "init.lua"
//	capabilities = ["clock"]
//
//	[config]
//	max_messages = 5
//
//	[[forwards]]
//	forward = "say"
//	function = "on_say"
//
// Forwards without a [[forwards]] entry are bound to the global function of
// the same name, if the plugin defines one with a matching parameter count.
//
// # Plugin Lifecycle
//
//	StateUnloaded -> Load() -> StateLoaded
//	StateLoaded -> Activate() -> StateActive  (calls plugin_init(config))
//	StateActive -> Pause() -> StatePaused
//	StatePaused -> Resume() -> StateActive
//	any -> Unload() -> StateUnloaded           (calls plugin_end())
//
// Unloading removes every hook the plugin registered, unbinds it from every
// forward and destroys the forwards it created. A plugin cannot be unloaded
// while its own code is on the call stack.
//
// # The hc Module
//
//	hc.register_hook(site, fn [, priority]) -> id
//	hc.unregister_hook(id) -> bool
//	hc.set_hook_state(id, enabled) -> bool
//	hc.create_forward(name, exec, type...) -> id
//	hc.exec_forward(name, arg...) -> result
//	hc.sites() -> {name...}
//	hc.log(...), hc.warn(...)
//
// Result codes: hc.IGNORED, hc.CONTINUE, hc.CHANGED, hc.HANDLED, hc.STOP,
// plus hc.ORIGINAL for hooks. Priorities: hc.PRIORITY_UNINTERRUPTABLE,
// hc.PRIORITY_HIGH, hc.PRIORITY_DEFAULT, hc.PRIORITY_MEDIUM and
// hc.PRIORITY_LOW.
//
// # Security
//
// Plugins run in a sandboxed state (see package lua) with loaders removed,
// a per-call execution timeout and capabilities granted by the manifest.
package plugin
