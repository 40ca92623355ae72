// Package lua runs scripted plugins on gopher-lua.
//
// # State
//
// State is a sandboxed interpreter. Calls may nest: a Go function exported
// to Lua can dispatch a hook chain or forward that calls back into the same
// State. The execution timeout is armed by the outermost call only.
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("plugin.lua"); err != nil {
//	    return err
//	}
//
// # Sandbox
//
// New states have the base, string, table and math libraries without the
// code loaders (dofile, loadfile, load, loadstring). require only resolves
// the standard libraries and modules registered with RegisterModule.
// Capabilities granted from the plugin manifest open more:
//   - clock: os.time, os.clock, os.date, os.difftime
//   - io: the io library
//   - unsafe: io, os and debug
//
// # Forward targets
//
// Target adapts a Lua function to forward.Target. By-reference parameters
// are passed as {value = x} tables and arrays as sequence tables; edits are
// read back after the call. A nil return is ResultIgnored, true is
// ResultHandled, false is ResultContinue and numbers are used as is.
package lua
