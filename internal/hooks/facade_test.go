package hooks

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/hookchain"
)

func newTestFacade(applied *[]float32) *Facade {
	return New(EngineOriginals{}, GameOriginals{
		PlayerTakeDamage: func(a TakeDamageArgs) bool {
			*applied = append(*applied, a.Damage)
			a.Victim.Vars.Health -= a.Damage
			return true
		},
	}, zerolog.Nop())
}

func TestFacadeNames(t *testing.T) {
	f := New(EngineOriginals{}, GameOriginals{}, zerolog.Nop())

	assert.Equal(t, []string{
		SiteClientConnect, SiteDropClient, SiteActivateServer,
		SiteCvarDirectSet, SiteStartFrame, SiteTraceLine,
		SitePlayerSpawn, SitePlayerTakeDamage, SitePlayerKilled,
		SiteRoundEnd, SiteCanRespawn,
	}, f.Names())
	assert.Len(t, f.Sites(), 11)

	site, ok := f.Lookup("playertakedamage")
	require.True(t, ok)
	assert.Equal(t, SitePlayerTakeDamage, site.Name())

	_, ok = f.Lookup("NoSuchSite")
	assert.False(t, ok)
}

func TestNilOriginalsAreNoops(t *testing.T) {
	f := New(EngineOriginals{}, GameOriginals{}, zerolog.Nop())

	assert.False(t, f.Engine.ClientConnect.Call(ClientConnectArgs{Name: "x"}))
	assert.NotPanics(t, func() { f.Engine.StartFrame.Call(FrameArgs{Frame: 1}) })
	assert.False(t, f.Game.CanRespawn.Call(PlayerArgs{}))
}

func TestTypedInterceptor(t *testing.T) {
	var applied []float32
	f := newTestFacade(&applied)

	f.Game.PlayerTakeDamage.RegisterHookOwned("ext", func(chain *hookchain.Hook[TakeDamageArgs, bool], a TakeDamageArgs) bool {
		if a.Attacker != nil && a.Attacker.Vars.Team == a.Victim.Vars.Team {
			return false
		}
		a.Damage /= 2
		return chain.CallNext(a)
	}, hookchain.PriorityDefault)

	victim := &entity.Edict{Index: 1, Vars: entity.EntVars{Health: 100, Team: 1}}
	enemy := &entity.Edict{Index: 2, Vars: entity.EntVars{Team: 2}}
	friend := &entity.Edict{Index: 3, Vars: entity.EntVars{Team: 1}}

	assert.True(t, f.Game.PlayerTakeDamage.Call(TakeDamageArgs{Victim: victim, Attacker: enemy, Damage: 30}))
	assert.False(t, f.Game.PlayerTakeDamage.Call(TakeDamageArgs{Victim: victim, Attacker: friend, Damage: 30}))
	assert.Equal(t, []float32{15}, applied)
	assert.Equal(t, float32(85), victim.Vars.Health)
}

func TestDynamicInterceptorByName(t *testing.T) {
	var applied []float32
	f := newTestFacade(&applied)

	site, ok := f.Lookup(SitePlayerTakeDamage)
	require.True(t, ok)

	site.RegisterDynamic("plugin", func(name string, args any) hookchain.Verdict {
		a := args.(TakeDamageArgs)
		a.Damage = 1
		return hookchain.Verdict{Action: hookchain.ActionContinue, Args: a}
	}, hookchain.PriorityLow)

	victim := &entity.Edict{Vars: entity.EntVars{Health: 10}}
	assert.True(t, f.Game.PlayerTakeDamage.Call(TakeDamageArgs{Victim: victim, Damage: 50}))
	assert.Equal(t, []float32{1}, applied)
}

func TestFacadeUnregisterOwner(t *testing.T) {
	f := New(EngineOriginals{}, GameOriginals{}, zerolog.Nop())

	f.Engine.StartFrame.RegisterHookOwned("a", nil, hookchain.PriorityDefault)
	f.Engine.TraceLine.RegisterHookOwned("a", nil, hookchain.PriorityDefault)
	f.Game.RoundEnd.RegisterHookOwned("a", nil, hookchain.PriorityHigh)
	f.Game.RoundEnd.RegisterHookOwned("b", nil, hookchain.PriorityHigh)

	assert.Equal(t, 4, f.Len())
	assert.Equal(t, 3, f.CountOwned("a"))

	assert.Equal(t, 3, f.UnregisterOwner("a"))
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 0, f.CountOwned("a"))
	assert.Equal(t, 1, f.CountOwned("b"))
}
