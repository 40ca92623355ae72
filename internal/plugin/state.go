package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateUnloaded - Plugin is not loaded.
	StateUnloaded State = iota

	// StateLoaded - Plugin code has run but plugin_init has not.
	StateLoaded

	// StateActive - plugin_init succeeded; hooks and forwards are live.
	StateActive

	// StatePaused - Hooks are disabled and forward targets unbound.
	StatePaused

	// StateError - Plugin failed to load or initialize.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the plugin's code can be called.
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive || s == StatePaused
}
