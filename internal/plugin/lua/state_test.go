package lua

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestStateDoString(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.DoString(`x = 1 + 1`))
	assert.Equal(t, glua.LNumber(2), state.GetGlobal("x"))

	err := state.DoString(`invalid lua code !!!`)
	assert.Error(t, err)

	err = state.DoString(`error("boom")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, state.Depth())
}

func TestStateDoFile(t *testing.T) {
	state := newTestState(t)

	path := filepath.Join(t.TempDir(), "main.lua")
	require.NoError(t, os.WriteFile(path, []byte(`loaded = "yes"`), 0o644))

	require.NoError(t, state.DoFile(path))
	assert.Equal(t, glua.LString("yes"), state.GetGlobal("loaded"))

	assert.Error(t, state.DoFile(filepath.Join(t.TempDir(), "missing.lua")))
}

func TestStateCall(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function pair(a, b) return a + b, a * b end
		function nothing() end
		notfn = 3
	`))

	ret, err := state.Call("pair", glua.LNumber(3), glua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, []glua.LValue{glua.LNumber(7), glua.LNumber(12)}, ret)

	ret, err = state.Call("nothing")
	require.NoError(t, err)
	assert.NotNil(t, ret)
	assert.Empty(t, ret)

	_, err = state.Call("missing")
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = state.Call("notfn")
	assert.ErrorIs(t, err, ErrNotFunction)
}

func TestStateFunction(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`function f(a, b, c) end; v = 1`))

	fn, ok := state.Function("f")
	require.True(t, ok)
	assert.Equal(t, uint8(3), fn.Proto.NumParameters)

	_, ok = state.Function("v")
	assert.False(t, ok)
	_, ok = state.Function("missing")
	assert.False(t, ok)
}

func TestStateNestedCalls(t *testing.T) {
	state := newTestState(t)

	var depths []int
	state.SetGlobal("reenter", state.L.NewFunction(func(L *glua.LState) int {
		depths = append(depths, state.Depth())
		ret, err := state.Call("inner", L.CheckAny(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		L.Push(ret[0])
		return 1
	}))
	require.NoError(t, state.DoString(`
		function inner(n) return n * 10 end
		function outer(n) return reenter(n) + 1 end
	`))

	ret, err := state.Call("outer", glua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, glua.LNumber(41), ret[0])
	assert.Equal(t, []int{1}, depths)
	assert.Equal(t, 0, state.Depth())
}

func TestStateExecutionTimeout(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(50*time.Millisecond))
	require.NoError(t, state.DoString(`function spin() while true do end end`))

	_, err := state.Call("spin")
	assert.ErrorIs(t, err, ErrExecutionTimeout)

	// The state stays usable after a timeout.
	require.NoError(t, state.DoString(`after = true`))
	assert.Equal(t, glua.LTrue, state.GetGlobal("after"))
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	require.NoError(t, err)

	require.NoError(t, state.Close())
	assert.True(t, state.IsClosed())
	require.NoError(t, state.Close())

	assert.ErrorIs(t, state.DoString(`x = 1`), ErrStateClosed)
	_, err = state.Call("f")
	assert.ErrorIs(t, err, ErrStateClosed)
	assert.Equal(t, glua.LNil, state.GetGlobal("x"))
}

func TestRegisterModule(t *testing.T) {
	state := newTestState(t)
	state.RegisterModule("demo", map[string]glua.LGFunction{
		"twice": func(L *glua.LState) int {
			L.Push(glua.LNumber(L.CheckNumber(1) * 2))
			return 1
		},
	})

	require.NoError(t, state.DoString(`
		local d = require("demo")
		a = d.twice(4)
		b = demo.twice(5)
	`))
	assert.Equal(t, glua.LNumber(8), state.GetGlobal("a"))
	assert.Equal(t, glua.LNumber(10), state.GetGlobal("b"))
}
