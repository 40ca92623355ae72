package hookchain

// Handle is a weak reference to a registered interceptor. It carries the
// interceptor's HookInfo (priority and state) without owning the entry:
// every accessor reports ok=false once the entry is gone.
//
// The zero Handle is valid to use and always stale.
type Handle struct {
	arena *arena
	site  string
	ref   ref
}

// Valid returns true while the referenced entry is still registered.
func (h Handle) Valid() bool {
	return h.arena != nil && h.arena.get(h.ref) != nil
}

// Site returns the name of the call site the handle was issued by.
func (h Handle) Site() string {
	return h.site
}

// Priority returns the entry's priority.
func (h Handle) Priority() (Priority, bool) {
	s := h.slot()
	if s == nil {
		return 0, false
	}
	return s.priority, true
}

// State returns the entry's dispatch state.
func (h Handle) State() (State, bool) {
	s := h.slot()
	if s == nil {
		return StateDisabled, false
	}
	return s.state, true
}

// Owner returns the owner tag given at registration.
func (h Handle) Owner() (string, bool) {
	s := h.slot()
	if s == nil {
		return "", false
	}
	return s.owner, true
}

// SetState enables or disables the entry. The change applies to dispatches
// that start afterwards. Returns false for a stale handle.
func (h Handle) SetState(st State) bool {
	if h.arena == nil {
		return false
	}
	return h.arena.setState(h.ref, st)
}

// Enable is shorthand for SetState(StateEnabled).
func (h Handle) Enable() bool { return h.SetState(StateEnabled) }

// Disable is shorthand for SetState(StateDisabled).
func (h Handle) Disable() bool { return h.SetState(StateDisabled) }

func (h Handle) slot() *slot {
	if h.arena == nil {
		return nil
	}
	return h.arena.get(h.ref)
}
