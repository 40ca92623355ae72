package extension

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hookchain"
	"github.com/dshills/hookcore/internal/hooks"
)

func newTestManager(t *testing.T, opts ...ManagerOption) (*Manager, *hooks.Facade, *forward.Manager) {
	t.Helper()
	facade := hooks.New(hooks.EngineOriginals{}, hooks.GameOriginals{
		PlayerTakeDamage: func(a hooks.TakeDamageArgs) bool {
			a.Victim.Vars.Health -= a.Damage
			return true
		},
	}, zerolog.Nop())
	fwd := forward.NewManager(zerolog.Nop())
	return NewManager(facade, fwd, zerolog.Nop(), opts...), facade, fwd
}

// godMode blocks all damage and counts spawns through a forward.
type godMode struct {
	spawns   int
	unloaded bool
	leak     bool
}

func (g *godMode) Name() string { return "godmode" }

func (g *godMode) Init(ctx *Context) error {
	ctx.Game.PlayerTakeDamage.RegisterHookOwned(ctx.Owner, func(chain *hookchain.Hook[hooks.TakeDamageArgs, bool], a hooks.TakeDamageArgs) bool {
		return false
	}, hookchain.PriorityHigh)

	return ctx.Bind("player_spawn", "count", func([]forward.Value) forward.Result {
		g.spawns++
		return forward.ResultContinue
	})
}

func (g *godMode) Unload(ctx *Context) error {
	g.unloaded = true
	if !g.leak {
		ctx.Hooks.UnregisterOwner(ctx.Owner)
	}
	return nil
}

func TestLoadAndUnload(t *testing.T) {
	m, facade, fwd := newTestManager(t)
	spawn, err := fwd.CreateForward("player_spawn", "host", forward.ExecIgnore, forward.ParamCell)
	require.NoError(t, err)

	ext := &godMode{}
	require.NoError(t, m.Load(ext))
	assert.Equal(t, []string{"godmode"}, m.Names())

	owner, ok := m.Owner("godmode")
	require.True(t, ok)
	assert.Equal(t, 1, facade.CountOwned(owner))

	victim := &entity.Edict{Vars: entity.EntVars{Health: 100}}
	assert.False(t, facade.Game.PlayerTakeDamage.Call(hooks.TakeDamageArgs{Victim: victim, Damage: 50}))
	assert.Equal(t, float32(100), victim.Vars.Health)

	require.NoError(t, spawn.PushCell(1))
	_, err = spawn.ExecFunc()
	require.NoError(t, err)
	assert.Equal(t, 1, ext.spawns)

	require.NoError(t, m.Unload("godmode"))
	assert.True(t, ext.unloaded)
	assert.Equal(t, 0, facade.Len())
	assert.Equal(t, 0, spawn.TargetCount(), "forward targets are released with the extension")
	assert.Equal(t, 0, m.Count())

	assert.True(t, facade.Game.PlayerTakeDamage.Call(hooks.TakeDamageArgs{Victim: victim, Damage: 50}))
	assert.Equal(t, float32(50), victim.Vars.Health)
}

func TestUnloadReleasesLeaks(t *testing.T) {
	m, facade, fwd := newTestManager(t)
	_, err := fwd.CreateForward("player_spawn", "host", forward.ExecIgnore, forward.ParamCell)
	require.NoError(t, err)

	require.NoError(t, m.Load(&godMode{leak: true}))
	require.Equal(t, 1, facade.Len())

	require.NoError(t, m.Unload("godmode"))
	assert.Equal(t, 0, facade.Len())
}

func TestInitFailureRollsBack(t *testing.T) {
	m, facade, fwd := newTestManager(t)
	spawn, err := fwd.CreateForward("player_spawn", "host", forward.ExecIgnore, forward.ParamCell)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.Load(Func{
		ExtName: "partial",
		InitFunc: func(ctx *Context) error {
			ctx.Engine.StartFrame.RegisterHookOwned(ctx.Owner, nil, hookchain.PriorityDefault)
			if _, err := ctx.Forwards.CreateForward("partial_event", ctx.Owner, forward.ExecStop); err != nil {
				return err
			}
			if err := ctx.Bind("player_spawn", "spawn", nil); err != nil {
				return err
			}
			return boom
		},
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 0, facade.Len())
	assert.Equal(t, 0, spawn.TargetCount())
	_, found := fwd.FindForward("partial_event")
	assert.False(t, found)
	assert.Equal(t, 0, m.Count())
}

func TestInitPanicRollsBack(t *testing.T) {
	m, facade, _ := newTestManager(t)

	err := m.Load(Func{
		ExtName: "panicky",
		InitFunc: func(ctx *Context) error {
			ctx.Game.RoundEnd.RegisterHookOwned(ctx.Owner, nil, hookchain.PriorityDefault)
			panic("bad init")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad init")
	assert.Equal(t, 0, facade.Len())
}

func TestLoadErrors(t *testing.T) {
	m, _, _ := newTestManager(t, WithDisabled("off"))

	assert.ErrorIs(t, m.Load(Func{}), ErrEmptyName)
	assert.ErrorIs(t, m.Load(Func{ExtName: "off"}), ErrDisabled)

	require.NoError(t, m.Load(Func{ExtName: "once"}))
	assert.ErrorIs(t, m.Load(Func{ExtName: "once"}), ErrAlreadyLoaded)

	assert.ErrorIs(t, m.Unload("never"), ErrNotLoaded)
}

func TestUnloadErrorStillReleases(t *testing.T) {
	m, facade, _ := newTestManager(t)
	require.NoError(t, m.Load(Func{
		ExtName: "stubborn",
		InitFunc: func(ctx *Context) error {
			ctx.Engine.DropClient.RegisterHookOwned(ctx.Owner, nil, hookchain.PriorityDefault)
			return nil
		},
		UnloadFunc: func(*Context) error { return errors.New("cannot") },
	}))

	err := m.Unload("stubborn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot")
	assert.Equal(t, 0, facade.Len())
	assert.Equal(t, 0, m.Count())
}

func TestUnloadAllReverseOrder(t *testing.T) {
	m, _, _ := newTestManager(t)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.Load(Func{
			ExtName: name,
			UnloadFunc: func(*Context) error {
				order = append(order, name)
				return nil
			},
		}))
	}

	require.NoError(t, m.UnloadAll())
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.Empty(t, m.Names())
}

func TestOwnersAreDistinctPerInstance(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.Load(Func{ExtName: "x"}))
	first, _ := m.Owner("x")
	require.NoError(t, m.Unload("x"))
	require.NoError(t, m.Load(Func{ExtName: "x"}))
	second, _ := m.Owner("x")

	assert.NotEqual(t, first, second)
	assert.Contains(t, first, "x#")
}
