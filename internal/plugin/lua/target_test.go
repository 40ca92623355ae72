package lua

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookcore/internal/forward"
)

func luaTarget(t *testing.T, state *State, name string) *Target {
	t.Helper()
	fn, ok := state.Function(name)
	require.True(t, ok, "function %s", name)
	return NewTarget(state, "plugin", name, fn)
}

func TestTargetAccepts(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function two(a, b) end
		function any(...) end
	`))

	two := luaTarget(t, state, "two")
	assert.True(t, two.Accepts([]forward.ParamType{forward.ParamCell, forward.ParamString}))
	assert.False(t, two.Accepts([]forward.ParamType{forward.ParamCell}))

	variadic := luaTarget(t, state, "any")
	assert.True(t, variadic.Accepts(nil))
	assert.True(t, variadic.Accepts([]forward.ParamType{forward.ParamCell, forward.ParamCell, forward.ParamCell}))

	native := NewTarget(state, "plugin", "native", state.L.NewFunction(func(*glua.LState) int { return 0 }))
	assert.True(t, native.Accepts([]forward.ParamType{forward.ParamFloat}))
}

func TestResultFromLua(t *testing.T) {
	tests := []struct {
		in   glua.LValue
		want forward.Result
	}{
		{glua.LNil, forward.ResultIgnored},
		{glua.LTrue, forward.ResultHandled},
		{glua.LFalse, forward.ResultContinue},
		{glua.LNumber(4), forward.ResultStop},
		{glua.LNumber(17), forward.Result(17)},
		{glua.LString("x"), forward.ResultIgnored},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResultFromLua(tt.in), "input %v", tt.in)
	}
}

func TestTargetCopyBackThroughForward(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function on_damage(victim, attacker, damage, bits)
			seen = {victim, attacker, damage.value, bits}
			damage.value = damage.value / 2
			return 3
		end

		function on_say(id, text, counters)
			text.value = "[" .. id .. "] " .. text.value
			counters[1] = counters[1] + 1
			counters[3] = 99
			return false
		end
	`))

	m := forward.NewManager(zerolog.Nop())

	damage, err := m.CreateForward("player_damage", "core", forward.ExecHighest,
		forward.ParamCell, forward.ParamCell, forward.ParamFloatByRef, forward.ParamCell)
	require.NoError(t, err)
	require.NoError(t, damage.Bind(luaTarget(t, state, "on_damage")))

	amount := float32(40)
	require.NoError(t, damage.PushCell(2))
	require.NoError(t, damage.PushCell(5))
	require.NoError(t, damage.PushFloatRef(&amount, true))
	require.NoError(t, damage.PushCell(8))
	res, err := damage.ExecFunc()
	require.NoError(t, err)
	assert.Equal(t, forward.ResultHandled, res)
	assert.Equal(t, float32(20), amount)

	seen, ok := state.GetGlobal("seen").(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LNumber(40), seen.RawGetInt(3))

	say, err := m.CreateForward("say", "core", forward.ExecStop,
		forward.ParamCell, forward.ParamStringEx, forward.ParamArray)
	require.NoError(t, err)
	require.NoError(t, say.Bind(luaTarget(t, state, "on_say")))

	text := "hello"
	counters := []int32{1, 2}
	require.NoError(t, say.PushCell(7))
	require.NoError(t, say.PushStringEx(&text, forward.StringCopyBack))
	require.NoError(t, say.PushArray(counters, true))
	res, err = say.ExecFunc()
	require.NoError(t, err)
	assert.Equal(t, forward.ResultContinue, res)
	assert.Equal(t, "[7] hello", text)
	assert.Equal(t, []int32{2, 2}, counters)
}

func TestTargetErrorIsIgnored(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function broken() error("plugin bug") end
		function fine() return 1 end
	`))

	m := forward.NewManager(zerolog.Nop())
	f, err := m.CreateForward("evt", "core", forward.ExecHighest)
	require.NoError(t, err)
	require.NoError(t, f.Bind(luaTarget(t, state, "broken")))
	require.NoError(t, f.Bind(luaTarget(t, state, "fine")))

	res, err := f.ExecFunc()
	require.NoError(t, err)
	assert.Equal(t, forward.ResultContinue, res)
	assert.Equal(t, uint64(1), f.Stats().Failures)
}

func TestTargetDirectInvoke(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function edit(n, s) n.value = 12; s.value = 42 end
	`))

	args := []forward.Value{
		{Type: forward.ParamCellByRef, Cell: 1},
		{Type: forward.ParamStringEx, Str: "x"},
	}
	res, err := luaTarget(t, state, "edit").Invoke(args)
	require.NoError(t, err)
	assert.Equal(t, forward.ResultIgnored, res)
	assert.Equal(t, int32(12), args[0].Cell)
	assert.Equal(t, "42", args[1].Str)
}
