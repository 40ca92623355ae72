package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hookchain"
	"github.com/dshills/hookcore/internal/hooks"
)

func global(h *Host, name string) lua.LValue {
	return h.LuaState().GetGlobal(name)
}

func TestAPIConstants(t *testing.T) {
	env := newTestEnv(t)
	host := env.load(t, "consts", `
stop = hc.STOP
original = hc.ORIGINAL
high = hc.PRIORITY_HIGH
me = hc.plugin.name
sites = hc.sites()
same = require("hc") == hc
`)

	assert.Equal(t, lua.LNumber(forward.ResultStop), global(host, "stop"))
	assert.Equal(t, lua.LNumber(ResultOriginal), global(host, "original"))
	assert.Equal(t, lua.LNumber(hookchain.PriorityHigh), global(host, "high"))
	assert.Equal(t, lua.LString("consts"), global(host, "me"))
	assert.Equal(t, lua.LTrue, global(host, "same"))

	sites, ok := global(host, "sites").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, len(env.facade.Names()), sites.Len())
}

func TestAPIHookModifiesArgs(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "armor", `
hc.register_hook("PlayerTakeDamage", function(args, site)
	seen_site = site
	seen_health = args.victim.vars.health
	args.damage = args.damage - 15
end)
`)

	assert.True(t, env.damage(40))
	assert.Equal(t, []float32{25}, env.applied)

	host, _ := env.mgr.Get("armor")
	assert.Equal(t, lua.LString(hooks.SitePlayerTakeDamage), global(host, "seen_site"))
	assert.Equal(t, lua.LNumber(100), global(host, "seen_health"))
}

func TestAPIHookReturnValues(t *testing.T) {
	tests := []struct {
		name    string
		ret     string
		want    bool
		applied []float32
	}{
		{"nil continues", "nil", true, []float32{10}},
		{"continue", "hc.CONTINUE", true, []float32{10}},
		{"false supercedes", "false", false, nil},
		{"true supercedes", "true", true, nil},
		{"handled supercedes with zero", "hc.HANDLED", false, nil},
		{"stop supercedes with zero", "hc.STOP", false, nil},
		{"original", "hc.ORIGINAL", true, []float32{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			var lowCalled bool
			env.facade.Game.PlayerTakeDamage.RegisterHook(func(chain *hookchain.Hook[hooks.TakeDamageArgs, bool], a hooks.TakeDamageArgs) bool {
				lowCalled = true
				return chain.CallNext(a)
			}, hookchain.PriorityLow)

			env.load(t, "ret", `hc.register_hook("PlayerTakeDamage", function() return `+tt.ret+` end, "high")`)

			assert.Equal(t, tt.want, env.damage(10))
			assert.Equal(t, tt.applied, env.applied)
			if tt.ret == "nil" || tt.ret == "hc.CONTINUE" {
				assert.True(t, lowCalled)
			} else {
				assert.False(t, lowCalled)
			}
		})
	}
}

func TestAPIHookErrorContinuesChain(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "faulty", `
hc.register_hook("PlayerTakeDamage", function(args)
	args.damage = 0
	error("bad hook")
end)
`)

	assert.True(t, env.damage(10))
	assert.Equal(t, []float32{10}, env.applied, "arguments edited before the error are discarded")
}

func TestAPIHookBadArgTypeIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "typo", `
hc.register_hook("PlayerTakeDamage", function(args) args.damage = "lots" end)
`)

	assert.True(t, env.damage(10))
	assert.Equal(t, []float32{10}, env.applied)
}

func TestAPIUnknownSite(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "lost", `hc.register_hook("NoSuchSite", function() end)`)

	_, err := env.mgr.Load(context.Background(), "lost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown hook site")
}

func TestAPIInvalidPriority(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "prio", `hc.register_hook("PlayerSpawn", function() end, "urgent")`)

	_, err := env.mgr.Load(context.Background(), "prio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestAPIHookStateAndUnregister(t *testing.T) {
	env := newTestEnv(t)
	host := env.load(t, "toggle", `
id = hc.register_hook("PlayerTakeDamage", function(args) args.damage = 1 end)
function disable() return hc.set_hook_state(id, false) end
function enable() return hc.set_hook_state(id, true) end
function remove() return hc.unregister_hook(id) end
`)

	call := func(fn string) any {
		out, err := host.Call(fn)
		require.NoError(t, err)
		return out[0]
	}

	env.damage(10)
	assert.Equal(t, true, call("disable"))
	env.damage(10)
	assert.Equal(t, true, call("enable"))
	env.damage(10)
	assert.Equal(t, true, call("remove"))
	env.damage(10)

	assert.Equal(t, []float32{1, 10, 1, 10}, env.applied)
	assert.Equal(t, false, call("remove"), "a removed hook cannot be removed twice")
	assert.Equal(t, false, call("enable"))
	assert.Empty(t, host.Hooks())
}

func TestAPIHookOnVoidSite(t *testing.T) {
	env := newTestEnv(t)
	host := env.load(t, "frames", `
frames = 0
hc.register_hook("StartFrame", function(args) frames = frames + args.frame end)
`)

	env.facade.Engine.StartFrame.Call(hooks.FrameArgs{Frame: 2})
	env.facade.Engine.StartFrame.Call(hooks.FrameArgs{Frame: 3})
	assert.Equal(t, lua.LNumber(5), global(host, "frames"))
}

func TestAPICreateForwardErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"bad exec", `hc.create_forward("x", "sometimes", "cell")`, "invalid exec type"},
		{"bad type", `hc.create_forward("x", "stop", "pointer")`, "invalid parameter type"},
		{"duplicate", `hc.create_forward("notify", "stop")`, "already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.write(t, "create", tt.code)

			_, err := env.mgr.Load(context.Background(), "create")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAPIExecForwardByReference(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "handler", `
function adjust(health, scale, text, cells)
	health.value = health.value - 10
	scale.value = scale.value * 2
	text.value = text.value .. "!"
	cells[1] = cells[1] + 1
	return hc.CHANGED
end
`)
	host := env.load(t, "caller", `
hc.create_forward("adjust", "highest", "cell&", "float&", "stringex", "array")

function run()
	local health, scale, text, cells = {value = 100}, {value = 1.5}, {value = "hey"}, {1, 2}
	local res = hc.exec_forward("adjust", health, scale, text, cells)
	return res, health.value, scale.value, text.value, cells[1], cells[2]
end

function run_by_value()
	local text = "plain"
	local res = hc.exec_forward("adjust", {value = 1}, {value = 1}, text, {0})
	return text
end
`)

	out, err := host.Call("run")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(90), int64(3), "hey!", int64(2), int64(2)}, out)

	out, err = host.Call("run_by_value")
	require.NoError(t, err)
	assert.Equal(t, []any{"plain"}, out)
}

func TestAPIExecForwardErrors(t *testing.T) {
	env := newTestEnv(t)
	host := env.load(t, "errs", `
hc.create_forward("typed", "ignore", "cell", "string")
function unknown() return hc.exec_forward("nope") end
function wrong() return hc.exec_forward("typed", "one", "two") end
function right() return hc.exec_forward("typed", 1, 2) end
`)

	_, err := host.Call("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forward not found")

	_, err = host.Call("wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number expected")

	out, err := host.Call("right")
	require.NoError(t, err, "a failed push does not poison the next execution")
	assert.Equal(t, []any{int64(0)}, out)
}

func TestAPIReentrantForwardFromHook(t *testing.T) {
	env := newTestEnv(t)
	host := env.load(t, "nested", `
depth = 0
hc.register_hook("PlayerTakeDamage", function(args)
	depth = depth + 1
	hc.exec_forward("notify", "hook " .. depth)
	depth = depth - 1
end)
`)

	env.damage(1)
	env.damage(2)
	assert.Equal(t, []string{"hook 1", "hook 1"}, env.notified)
	assert.Equal(t, lua.LNumber(0), global(host, "depth"))
	assert.Equal(t, 0, host.LuaState().Depth())
}

func TestHookVerdict(t *testing.T) {
	tests := []struct {
		in     lua.LValue
		action hookchain.Action
		value  any
	}{
		{lua.LNil, hookchain.ActionContinue, nil},
		{lua.LNumber(forward.ResultIgnored), hookchain.ActionContinue, nil},
		{lua.LNumber(forward.ResultChanged), hookchain.ActionContinue, nil},
		{lua.LNumber(forward.ResultHandled), hookchain.ActionSupercede, nil},
		{lua.LNumber(forward.ResultStop), hookchain.ActionSupercede, nil},
		{lua.LNumber(ResultOriginal), hookchain.ActionOriginal, nil},
		{lua.LTrue, hookchain.ActionSupercede, true},
		{lua.LFalse, hookchain.ActionSupercede, false},
		{lua.LString("stop"), hookchain.ActionContinue, nil},
	}

	for _, tt := range tests {
		v := HookVerdict(tt.in)
		assert.Equal(t, tt.action, v.Action, "HookVerdict(%s)", tt.in)
		assert.Equal(t, tt.value, v.Value, "HookVerdict(%s)", tt.in)
	}
}

func TestAPIHookSeesEntityUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "reader", `
hc.register_hook("PlayerSpawn", function(args)
	hc.exec_forward("notify", args.player.vars.netname)
end)
`)

	player := &entity.Edict{Index: 1, Vars: entity.EntVars{NetName: "alice"}}
	env.facade.Game.PlayerSpawn.Call(hooks.PlayerArgs{Player: player})
	player.Vars.NetName = "bob"
	env.facade.Game.PlayerSpawn.Call(hooks.PlayerArgs{Player: player})

	assert.Equal(t, []string{"alice", "bob"}, env.notified)
}
