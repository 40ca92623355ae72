package hooks

import "github.com/dshills/hookcore/internal/hookchain"

// Game call site names.
const (
	SitePlayerSpawn      = "PlayerSpawn"
	SitePlayerTakeDamage = "PlayerTakeDamage"
	SitePlayerKilled     = "PlayerKilled"
	SiteRoundEnd         = "RoundEnd"
	SiteCanRespawn       = "CanRespawn"
)

// GameOriginals are the game logic's implementations of its call sites.
type GameOriginals struct {
	PlayerSpawn      func(PlayerArgs)
	PlayerTakeDamage func(TakeDamageArgs) bool
	PlayerKilled     func(KilledArgs)
	RoundEnd         func(RoundEndArgs) bool
	CanRespawn       func(PlayerArgs) bool
}

// GameHooks holds one registry per game call site.
type GameHooks struct {
	PlayerSpawn      *hookchain.Registry[PlayerArgs, hookchain.Void]
	PlayerTakeDamage *hookchain.Registry[TakeDamageArgs, bool]
	PlayerKilled     *hookchain.Registry[KilledArgs, hookchain.Void]
	RoundEnd         *hookchain.Registry[RoundEndArgs, bool]
	CanRespawn       *hookchain.Registry[PlayerArgs, bool]
}

// NewGameHooks builds the game registries around orig.
func NewGameHooks(orig GameOriginals, opts ...hookchain.RegistryOption) *GameHooks {
	return &GameHooks{
		PlayerSpawn:      hookchain.NewRegistry(SitePlayerSpawn, void(orig.PlayerSpawn), opts...),
		PlayerTakeDamage: hookchain.NewRegistry(SitePlayerTakeDamage, orig.PlayerTakeDamage, opts...),
		PlayerKilled:     hookchain.NewRegistry(SitePlayerKilled, void(orig.PlayerKilled), opts...),
		RoundEnd:         hookchain.NewRegistry(SiteRoundEnd, orig.RoundEnd, opts...),
		CanRespawn:       hookchain.NewRegistry(SiteCanRespawn, orig.CanRespawn, opts...),
	}
}

func (g *GameHooks) sites() []hookchain.Site {
	return []hookchain.Site{
		g.PlayerSpawn,
		g.PlayerTakeDamage,
		g.PlayerKilled,
		g.RoundEnd,
		g.CanRespawn,
	}
}
