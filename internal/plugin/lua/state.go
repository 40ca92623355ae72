package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds one top-level call into a state.
const DefaultExecutionTimeout = 2 * time.Second

// State wraps gopher-lua with sandboxing and a per-call timeout.
//
// A State is used from the host's single logical thread. Calls may nest:
// a Go function exported to Lua can dispatch a hook or forward that calls
// back into the same State. The timeout applies to the outermost call and
// covers everything nested under it.
type State struct {
	L *lua.LState

	executionTimeout time.Duration
	sandbox          *Sandbox

	depth  int
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for top-level calls. Zero disables
// the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens the base, table, string and math libraries.
// io, os and debug are opened by capabilities.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// run executes fn as one (possibly nested) call into the state.
func (s *State) run(fn func() error) (err error) {
	if s.closed {
		return ErrStateClosed
	}

	if s.depth == 0 && s.executionTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			cancel()
		}()
		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s: %v", ErrExecutionTimeout, s.executionTimeout, err)
			}
		}()
	}

	s.depth++
	defer func() { s.depth-- }()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.run(func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	return s.run(func() error {
		return s.L.DoString(code)
	})
}

// Function returns the global function name.
func (s *State) Function(name string) (*lua.LFunction, bool) {
	if s.closed {
		return nil, false
	}
	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	return fn, ok
}

// Call calls a global Lua function and returns all of its results.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(name string, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	v := s.L.GetGlobal(name)
	if v == lua.LNil {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFunction, name, v.Type())
	}
	return s.CallFunction(fn, lua.MultRet, args...)
}

// CallFunction calls fn in protected mode. nret is the number of results
// to keep, or lua.MultRet for all of them.
func (s *State) CallFunction(fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.run(func() error {
		top := s.L.GetTop()
		if err := s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
			return err
		}
		n := s.L.GetTop() - top
		results = make([]lua.LValue, n)
		for i := 0; i < n; i++ {
			results[i] = s.L.Get(top + i + 1)
		}
		s.L.Pop(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Depth returns how many calls into the state are in progress.
func (s *State) Depth() int {
	return s.depth
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// RegisterModule installs a table of Go functions as the global name and
// makes it loadable with require(name).
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) *lua.LTable {
	if s.closed {
		return nil
	}
	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
	s.sandbox.AllowModule(name, mod)
	return mod
}

// Sandbox returns the sandbox for capability management.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
