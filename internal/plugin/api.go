package plugin

import (
	"fmt"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hookchain"
	plua "github.com/dshills/hookcore/internal/plugin/lua"
)

// ModuleName is the global (and require name) of the host API table.
const ModuleName = "hc"

// ResultOriginal is the hook return value that skips the remaining
// interceptors and calls the host function directly.
const ResultOriginal = -1

// installAPI registers the hc module in a freshly created plugin state.
func (m *Manager) installAPI(host *Host) {
	state := host.LuaState()
	api := &hostAPI{m: m, host: host}

	mod := state.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"log":             api.log,
		"warn":            api.warn,
		"register_hook":   api.registerHook,
		"unregister_hook": api.unregisterHook,
		"set_hook_state":  api.setHookState,
		"create_forward":  api.createForward,
		"exec_forward":    api.execForward,
		"sites":           api.sites,
	})

	for name, value := range map[string]int{
		"IGNORED":  int(forward.ResultIgnored),
		"CONTINUE": int(forward.ResultContinue),
		"CHANGED":  int(forward.ResultChanged),
		"HANDLED":  int(forward.ResultHandled),
		"STOP":     int(forward.ResultStop),
		"ORIGINAL": ResultOriginal,

		"PRIORITY_UNINTERRUPTABLE": int(hookchain.PriorityUninterruptable),
		"PRIORITY_HIGH":            int(hookchain.PriorityHigh),
		"PRIORITY_DEFAULT":         int(hookchain.PriorityDefault),
		"PRIORITY_MEDIUM":          int(hookchain.PriorityMedium),
		"PRIORITY_LOW":             int(hookchain.PriorityLow),
	} {
		mod.RawSetString(name, lua.LNumber(value))
	}

	info := state.L.CreateTable(0, 3)
	info.RawSetString("name", lua.LString(host.Name()))
	info.RawSetString("id", lua.LString(host.ID()))
	info.RawSetString("version", lua.LString(host.Manifest().Version))
	mod.RawSetString("plugin", info)
}

// hostAPI implements the hc functions for one plugin.
type hostAPI struct {
	m    *Manager
	host *Host
}

func (a *hostAPI) message(L *lua.LState) string {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	return strings.Join(parts, " ")
}

// hc.log(...)
func (a *hostAPI) log(L *lua.LState) int {
	a.m.logger.Info().Str("plugin", a.host.Name()).Msg(a.message(L))
	return 0
}

// hc.warn(...)
func (a *hostAPI) warn(L *lua.LState) int {
	a.m.logger.Warn().Str("plugin", a.host.Name()).Msg(a.message(L))
	return 0
}

// hc.register_hook(site, fn [, priority]) -> id
//
// fn is called as fn(args, site). Scalar fields changed in args are passed
// down the chain. The return value picks what happens next: nil or a
// result below HANDLED continues, HANDLED or STOP skips everything else,
// a boolean skips everything else and becomes the site's return value and
// ORIGINAL calls the host function directly.
func (a *hostAPI) registerHook(L *lua.LState) int {
	siteName := L.CheckString(1)
	fn := L.CheckFunction(2)

	priority, err := priorityArg(L.Get(3))
	if err != nil {
		L.ArgError(3, err.Error())
		return 0
	}

	site, ok := a.m.hooks.Lookup(siteName)
	if !ok {
		L.ArgError(1, fmt.Sprintf("%s: %s", hookchain.ErrUnknownSite, siteName))
		return 0
	}

	handle := site.RegisterDynamic(a.host.ID(), a.m.luaHook(a.host, fn), priority)
	L.Push(lua.LNumber(a.host.trackHook(handle)))
	return 1
}

func priorityArg(lv lua.LValue) (hookchain.Priority, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return hookchain.PriorityDefault, nil
	case lua.LNumber:
		return hookchain.Priority(int(v)), nil
	case lua.LString:
		p, ok := hookchain.ParsePriority(strings.ToLower(string(v)))
		if !ok {
			return 0, fmt.Errorf("invalid priority %q", string(v))
		}
		return p, nil
	default:
		return 0, fmt.Errorf("priority must be a number or a tier name, got %s", lv.Type())
	}
}

// hc.unregister_hook(id) -> bool
func (a *hostAPI) unregisterHook(L *lua.LState) int {
	id := L.CheckInt(1)
	handle, ok := a.host.hook(id)
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}

	removed := false
	if site, found := a.m.hooks.Lookup(handle.Site()); found {
		removed = site.UnregisterHook(handle)
	}
	a.host.untrackHook(id)
	L.Push(lua.LBool(removed))
	return 1
}

// hc.set_hook_state(id, enabled) -> bool
func (a *hostAPI) setHookState(L *lua.LState) int {
	id := L.CheckInt(1)
	enabled := L.ToBool(2)

	handle, ok := a.host.hook(id)
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	st := hookchain.StateDisabled
	if enabled {
		st = hookchain.StateEnabled
	}
	L.Push(lua.LBool(handle.SetState(st)))
	return 1
}

// hc.create_forward(name, exec, type...) -> id
//
// The forward belongs to the plugin and is destroyed when it unloads. Every
// loaded plugin with a matching function is bound to it right away.
func (a *hostAPI) createForward(L *lua.LState) int {
	name := L.CheckString(1)
	exec, ok := forward.ParseExecType(strings.ToLower(L.CheckString(2)))
	if !ok {
		L.ArgError(2, "invalid exec type")
		return 0
	}

	types := make([]forward.ParamType, 0, L.GetTop()-2)
	for i := 3; i <= L.GetTop(); i++ {
		t, ok := forward.ParseParamType(strings.ToLower(L.CheckString(i)))
		if !ok {
			L.ArgError(i, "invalid parameter type")
			return 0
		}
		types = append(types, t)
	}

	f, err := a.m.forwards.CreateForward(name, a.host.ID(), exec, types...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	a.m.BindForward(f)

	L.Push(lua.LNumber(f.ID()))
	return 1
}

// hc.exec_forward(name, arg...) -> result
//
// By-reference parameters are passed as tables, {value = x} for cells,
// floats and string-ex values and a sequence for arrays. Targets' edits are
// written back into those tables.
func (a *hostAPI) execForward(L *lua.LState) int {
	name := L.CheckString(1)
	f, ok := a.m.forwards.FindForward(name)
	if !ok {
		L.RaiseError("%s: %s", forward.ErrForwardNotFound, name)
		return 0
	}

	f.ResetParams()
	var writeBack []func()
	for i, t := range f.Types() {
		idx := i + 2
		if err := pushLuaArg(L, f, t, idx, &writeBack); err != nil {
			f.ResetParams()
			L.ArgError(idx, err.Error())
			return 0
		}
	}

	res, err := f.ExecFunc()
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	for _, fn := range writeBack {
		fn()
	}

	L.Push(lua.LNumber(res))
	return 1
}

// pushLuaArg pushes the Lua argument at idx as parameter kind t. For table
// arguments it records a function that copies the result back.
func pushLuaArg(L *lua.LState, f *forward.Forward, t forward.ParamType, idx int, writeBack *[]func()) error {
	lv := L.Get(idx)
	switch t {
	case forward.ParamCell, forward.ParamFloat:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("number expected, got %s", lv.Type())
		}
		if t == forward.ParamCell {
			return f.PushCell(int32(n))
		}
		return f.PushFloat(float32(n))
	case forward.ParamString:
		switch v := lv.(type) {
		case lua.LString:
			return f.PushString(string(v))
		case lua.LNumber:
			return f.PushString(v.String())
		}
		return fmt.Errorf("string expected, got %s", lv.Type())
	case forward.ParamCellByRef, forward.ParamFloatByRef, forward.ParamStringEx:
		return pushRef(f, t, lv, writeBack)
	case forward.ParamArray:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return fmt.Errorf("array expected, got %s", lv.Type())
		}
		cells := make([]int32, tbl.Len())
		for i := range cells {
			n, _ := tbl.RawGetInt(i + 1).(lua.LNumber)
			cells[i] = int32(n)
		}
		*writeBack = append(*writeBack, func() {
			for i, c := range cells {
				tbl.RawSetInt(i+1, lua.LNumber(c))
			}
		})
		return f.PushArray(cells, true)
	default:
		return fmt.Errorf("unsupported parameter type %s", t)
	}
}

// pushRef handles cell&, float& and stringex. A plain value is passed by
// value; a {value = x} table is passed by reference and updated afterwards.
func pushRef(f *forward.Forward, t forward.ParamType, lv lua.LValue, writeBack *[]func()) error {
	tbl, byRef := lv.(*lua.LTable)
	if byRef {
		lv = tbl.RawGetString("value")
	}

	switch t {
	case forward.ParamCellByRef:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("number expected, got %s", lv.Type())
		}
		cell := int32(n)
		if byRef {
			*writeBack = append(*writeBack, func() { tbl.RawSetString("value", lua.LNumber(cell)) })
		}
		return f.PushCellRef(&cell, byRef)
	case forward.ParamFloatByRef:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("number expected, got %s", lv.Type())
		}
		fl := float32(n)
		if byRef {
			*writeBack = append(*writeBack, func() { tbl.RawSetString("value", lua.LNumber(fl)) })
		}
		return f.PushFloatRef(&fl, byRef)
	default:
		s, ok := lv.(lua.LString)
		if !ok {
			return fmt.Errorf("string expected, got %s", lv.Type())
		}
		str := string(s)
		flags := forward.StringBinary
		if byRef {
			flags |= forward.StringCopyBack
			*writeBack = append(*writeBack, func() { tbl.RawSetString("value", lua.LString(str)) })
		}
		return f.PushStringEx(&str, flags)
	}
}

// hc.sites() -> {name...}
func (a *hostAPI) sites(L *lua.LState) int {
	names := a.m.hooks.Names()
	t := L.CreateTable(len(names), 0)
	for i, name := range names {
		t.RawSetInt(i+1, lua.LString(name))
	}
	L.Push(t)
	return 1
}

// luaHook adapts a Lua function to a dynamic interceptor. Script errors are
// logged and the chain continues as if the hook were absent.
func (m *Manager) luaHook(host *Host, fn *lua.LFunction) hookchain.DynamicFunc {
	return func(site string, args any) hookchain.Verdict {
		state := host.LuaState()
		if state == nil || state.IsClosed() {
			return hookchain.Verdict{Action: hookchain.ActionContinue}
		}

		bridge := host.Bridge()
		tbl, _ := bridge.ToLuaValue(args).(*lua.LTable)
		var luaArgs lua.LValue = lua.LNil
		if tbl != nil {
			luaArgs = tbl
		}

		ret, err := state.CallFunction(fn, 1, luaArgs, lua.LString(site))
		if err != nil {
			m.logger.Error().
				Err(err).
				Str("plugin", host.Name()).
				Str("site", site).
				Msg("plugin hook failed")
			return hookchain.Verdict{Action: hookchain.ActionContinue}
		}

		var rv lua.LValue = lua.LNil
		if len(ret) > 0 {
			rv = ret[0]
		}
		v := HookVerdict(rv)
		if tbl != nil {
			if updated, ok := applyArgs(bridge, tbl, args); ok {
				v.Args = updated
			}
		}
		return v
	}
}

// HookVerdict converts a Lua hook's return value to a Verdict.
func HookVerdict(lv lua.LValue) hookchain.Verdict {
	switch v := lv.(type) {
	case lua.LBool:
		return hookchain.Verdict{Action: hookchain.ActionSupercede, Value: bool(v)}
	case lua.LNumber:
		switch n := int(v); {
		case n == ResultOriginal:
			return hookchain.Verdict{Action: hookchain.ActionOriginal}
		case forward.Result(n).Blocks():
			return hookchain.Verdict{Action: hookchain.ActionSupercede}
		}
	}
	return hookchain.Verdict{Action: hookchain.ActionContinue}
}

// applyArgs copies args and applies the scalar fields of tbl to the copy.
// It reports false for argument values that are not structs or when a
// field has the wrong Lua type.
func applyArgs(bridge *plua.Bridge, tbl *lua.LTable, args any) (any, bool) {
	rv := reflect.ValueOf(args)
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, false
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	if err := bridge.ApplyTable(tbl, ptr.Interface()); err != nil {
		return nil, false
	}
	return ptr.Elem().Interface(), true
}
