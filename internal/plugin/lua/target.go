package lua

import (
	"github.com/dshills/hookcore/internal/forward"
	lua "github.com/yuin/gopher-lua"
)

// refField is the key holding a by-reference value in its wrapper table.
const refField = "value"

// Target binds a Lua function to forwards.
//
// Cells and floats are passed as numbers and strings as strings. By-reference
// cells, floats and string-ex values are passed as a table {value = x}, and
// arrays as a sequence table. After the call the tables are read back so that
// the forward can apply copy-back.
type Target struct {
	state *State
	owner string
	name  string
	fn    *lua.LFunction
}

// NewTarget creates a forward target calling fn in state.
func NewTarget(state *State, owner, name string, fn *lua.LFunction) *Target {
	return &Target{state: state, owner: owner, name: name, fn: fn}
}

// Owner implements forward.Target.
func (t *Target) Owner() string { return t.owner }

// Name implements forward.Target.
func (t *Target) Name() string { return t.name }

// Accepts implements forward.Target. A Lua function accepts a parameter list
// if it is variadic or declares exactly that many parameters.
func (t *Target) Accepts(types []forward.ParamType) bool {
	if t.fn.IsG || t.fn.Proto == nil {
		return true
	}
	if t.fn.Proto.IsVarArg != 0 {
		return true
	}
	return int(t.fn.Proto.NumParameters) == len(types)
}

// Invoke implements forward.Target.
func (t *Target) Invoke(args []forward.Value) (forward.Result, error) {
	largs := make([]lua.LValue, len(args))
	for i, v := range args {
		largs[i] = valueToLua(t.state.L, v)
	}

	ret, err := t.state.CallFunction(t.fn, 1, largs...)
	if err != nil {
		return forward.ResultIgnored, err
	}

	for i := range args {
		if tbl, ok := largs[i].(*lua.LTable); ok {
			readBack(&args[i], tbl)
		}
	}

	if len(ret) == 0 {
		return forward.ResultIgnored, nil
	}
	return ResultFromLua(ret[0]), nil
}

// ResultFromLua converts a Lua return value to a plugin result: nil is
// ignored, true is handled, false is continue and numbers map directly.
func ResultFromLua(lv lua.LValue) forward.Result {
	switch v := lv.(type) {
	case lua.LNumber:
		return forward.Result(int32(v))
	case lua.LBool:
		if v {
			return forward.ResultHandled
		}
		return forward.ResultContinue
	default:
		return forward.ResultIgnored
	}
}

func valueToLua(L *lua.LState, v forward.Value) lua.LValue {
	switch v.Type {
	case forward.ParamCell:
		return lua.LNumber(v.Cell)
	case forward.ParamFloat:
		return lua.LNumber(v.Float)
	case forward.ParamString:
		return lua.LString(v.Str)
	case forward.ParamCellByRef:
		return refTable(L, lua.LNumber(v.Cell))
	case forward.ParamFloatByRef:
		return refTable(L, lua.LNumber(v.Float))
	case forward.ParamStringEx:
		return refTable(L, lua.LString(v.Str))
	case forward.ParamArray:
		t := L.CreateTable(len(v.Array), 0)
		for i, c := range v.Array {
			t.RawSetInt(i+1, lua.LNumber(c))
		}
		return t
	default:
		return lua.LNil
	}
}

func refTable(L *lua.LState, lv lua.LValue) *lua.LTable {
	t := L.CreateTable(0, 1)
	t.RawSetString(refField, lv)
	return t
}

// readBack copies edits made by the Lua function into v. Values of the wrong
// Lua type are ignored. Arrays keep their length.
func readBack(v *forward.Value, t *lua.LTable) {
	switch v.Type {
	case forward.ParamCellByRef:
		if n, ok := t.RawGetString(refField).(lua.LNumber); ok {
			v.Cell = int32(n)
		}
	case forward.ParamFloatByRef:
		if n, ok := t.RawGetString(refField).(lua.LNumber); ok {
			v.Float = float32(n)
		}
	case forward.ParamStringEx:
		switch s := t.RawGetString(refField).(type) {
		case lua.LString:
			v.Str = string(s)
		case lua.LNumber:
			v.Str = s.String()
		}
	case forward.ParamArray:
		for i := range v.Array {
			if n, ok := t.RawGetInt(i + 1).(lua.LNumber); ok {
				v.Array[i] = int32(n)
			}
		}
	}
}
