package lua

import (
	"slices"

	lua "github.com/yuin/gopher-lua"
)

// Capability is a permission a plugin manifest can request.
type Capability string

// Available capabilities.
const (
	// CapabilityClock exposes os.time, os.clock, os.date and os.difftime.
	CapabilityClock Capability = "clock"

	// CapabilityIO opens the io library.
	CapabilityIO Capability = "io"

	// CapabilityUnsafe opens io, os and debug without restrictions.
	CapabilityUnsafe Capability = "unsafe"
)

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, bool) {
	switch c := Capability(s); c {
	case CapabilityClock, CapabilityIO, CapabilityUnsafe:
		return c, true
	default:
		return "", false
	}
}

// Sandbox restricts what Lua code in a state can reach.
type Sandbox struct {
	L *lua.LState

	capabilities map[Capability]bool
	modules      map[string]lua.LValue
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{
		L:            L,
		capabilities: make(map[Capability]bool),
		modules:      make(map[string]lua.LValue),
	}
}

// removedGlobals can load code from disk or strings.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module"}

// Install removes the loaders and replaces require with a lookup over the
// standard libraries and registered modules.
func (s *Sandbox) Install() {
	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}

	for _, name := range []string{"string", "table", "math"} {
		s.modules[name] = s.L.GetGlobal(name)
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		mod, ok := s.modules[name]
		if !ok {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(mod)
		return 1
	}))
}

// AllowModule makes value loadable with require(name).
func (s *Sandbox) AllowModule(name string, value lua.LValue) {
	s.modules[name] = value
}

// Grant enables a capability and opens the libraries it covers.
func (s *Sandbox) Grant(c Capability) {
	if s.capabilities[c] {
		return
	}
	s.capabilities[c] = true

	switch c {
	case CapabilityClock:
		s.installClock()
	case CapabilityIO:
		lua.OpenIo(s.L)
		s.modules["io"] = s.L.GetGlobal("io")
	case CapabilityUnsafe:
		lua.OpenIo(s.L)
		lua.OpenOs(s.L)
		lua.OpenDebug(s.L)
		for _, name := range []string{"io", "os", "debug"} {
			s.modules[name] = s.L.GetGlobal(name)
		}
	}
}

// installClock opens os and keeps only its time functions.
func (s *Sandbox) installClock() {
	if s.capabilities[CapabilityUnsafe] {
		return
	}
	lua.OpenOs(s.L)
	full, ok := s.L.GetGlobal("os").(*lua.LTable)
	if !ok {
		return
	}
	clock := s.L.NewTable()
	for _, name := range []string{"time", "clock", "date", "difftime"} {
		clock.RawSetString(name, full.RawGetString(name))
	}
	s.L.SetGlobal("os", clock)
	s.modules["os"] = clock
}

// HasCapability returns true if the capability is granted.
func (s *Sandbox) HasCapability(c Capability) bool {
	return s.capabilities[c]
}

// Capabilities returns the granted capabilities, sorted.
func (s *Sandbox) Capabilities() []Capability {
	caps := make([]Capability, 0, len(s.capabilities))
	for c, granted := range s.capabilities {
		if granted {
			caps = append(caps, c)
		}
	}
	slices.Sort(caps)
	return caps
}

// CheckCapability returns an error if the capability is not granted.
func (s *Sandbox) CheckCapability(c Capability) error {
	if !s.capabilities[c] {
		return &CapabilityError{Capability: c}
	}
	return nil
}

// CapabilityError is returned when a capability is not granted.
type CapabilityError struct {
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return "capability not granted: " + string(e.Capability)
}
