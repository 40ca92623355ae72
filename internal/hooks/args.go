package hooks

import "github.com/dshills/hookcore/internal/entity"

// ClientConnectArgs are the arguments of the ClientConnect site. Returning
// false rejects the client; RejectReason receives the message shown to it.
type ClientConnectArgs struct {
	Client       *entity.Client `json:"client"`
	Name         string         `json:"name"`
	Address      string         `json:"address"`
	RejectReason *string        `json:"-"`
}

// DropClientArgs are the arguments of the DropClient site.
type DropClientArgs struct {
	Client *entity.Client `json:"client"`
	Crash  bool           `json:"crash"`
	Reason string         `json:"reason"`
}

// ActivateServerArgs are the arguments of the ActivateServer site.
type ActivateServerArgs struct {
	EdictCount int `json:"edict_count"`
	MaxClients int `json:"max_clients"`
}

// CvarSetArgs are the arguments of the CvarDirectSet site.
type CvarSetArgs struct {
	Cvar  *entity.Cvar `json:"cvar"`
	Value string       `json:"value"`
}

// FrameArgs are the arguments of the StartFrame site.
type FrameArgs struct {
	Frame uint64  `json:"frame"`
	Time  float64 `json:"time"`
}

// TraceLineArgs are the arguments of the TraceLine site. The result is
// written to Trace.
type TraceLineArgs struct {
	Start      entity.Vector       `json:"start"`
	End        entity.Vector       `json:"end"`
	NoMonsters bool                `json:"no_monsters"`
	Ignore     *entity.Edict       `json:"ignore"`
	Trace      *entity.TraceResult `json:"-"`
}

// PlayerArgs are the arguments of sites that only concern one player.
type PlayerArgs struct {
	Player *entity.Edict `json:"player"`
}

// TakeDamageArgs are the arguments of the PlayerTakeDamage site. Returning
// false cancels the damage.
type TakeDamageArgs struct {
	Victim     *entity.Edict `json:"victim"`
	Attacker   *entity.Edict `json:"attacker"`
	Damage     float32       `json:"damage"`
	DamageBits int32         `json:"damage_bits"`
}

// KilledArgs are the arguments of the PlayerKilled site.
type KilledArgs struct {
	Victim *entity.Edict `json:"victim"`
	Killer *entity.Edict `json:"killer"`
	Gib    int32         `json:"gib"`
}

// RoundEndArgs are the arguments of the RoundEnd site. Returning false keeps
// the round running.
type RoundEndArgs struct {
	Winner int32   `json:"winner"`
	Reason int32   `json:"reason"`
	Delay  float32 `json:"delay"`
}
