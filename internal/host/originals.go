package host

import (
	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/hooks"
)

// playerRadius is the distance from a player origin at which a trace
// counts as a hit.
const playerRadius = 16

func (s *Server) engineOriginals() hooks.EngineOriginals {
	return hooks.EngineOriginals{
		ClientConnect:  s.clientConnect,
		DropClient:     s.dropClient,
		ActivateServer: s.activateServer,
		CvarDirectSet:  s.cvarDirectSet,
		StartFrame:     s.startFrame,
		TraceLine:      s.traceLine,
	}
}

func (s *Server) gameOriginals() hooks.GameOriginals {
	return hooks.GameOriginals{
		PlayerSpawn:      s.playerSpawn,
		PlayerTakeDamage: s.playerTakeDamage,
		PlayerKilled:     s.playerKilled,
		RoundEnd:         s.roundEnd,
		CanRespawn:       s.canRespawn,
	}
}

func (s *Server) clientConnect(args hooks.ClientConnectArgs) bool {
	c := args.Client
	if c == nil || c.Connected {
		return false
	}

	reason := args.RejectReason
	if reason == nil {
		reason = new(string)
	}
	if res := s.fireClientConnect(c.ID, args.Name, args.Address, reason); res.Blocks() {
		s.logger.Info().Int("client", c.ID).Str("name", args.Name).Str("reason", *reason).Msg("client rejected")
		return false
	}

	s.nextUserID++
	c.Name = args.Name
	c.Address = args.Address
	c.UserID = s.nextUserID
	c.Connected = true
	c.Edict = s.world.PlayerEdict(c.ID)
	c.Edict.Free = false
	c.Edict.Serial++
	c.Edict.Vars = entity.EntVars{Classname: "player", NetName: args.Name}

	s.logger.Info().Int("client", c.ID).Str("name", c.Name).Str("address", c.Address).Msg("client connected")
	return true
}

func (s *Server) dropClient(args hooks.DropClientArgs) {
	c := args.Client
	if c == nil || !c.Connected {
		return
	}

	s.fireClientDisconnect(c.ID, args.Crash)

	s.world.Free(c.Edict)
	s.logger.Info().Int("client", c.ID).Str("name", c.Name).Str("reason", args.Reason).Msg("client dropped")
	*c = entity.Client{ID: c.ID}
}

func (s *Server) activateServer(args hooks.ActivateServerArgs) {
	s.active = true
	s.logger.Info().Int("edicts", args.EdictCount).Int("max_clients", args.MaxClients).Msg("server activated")
}

func (s *Server) cvarDirectSet(args hooks.CvarSetArgs) {
	if args.Cvar == nil {
		return
	}
	args.Cvar.Set(args.Value)
}

func (s *Server) startFrame(args hooks.FrameArgs) {
	s.fireServerFrame(args.Frame, args.Time)
}

// traceLine reports the nearest alive player whose origin lies within
// playerRadius of the segment.
func (s *Server) traceLine(args hooks.TraceLineArgs) {
	tr := args.Trace
	if tr == nil {
		return
	}
	*tr = entity.TraceResult{Fraction: 1, EndPos: args.End}

	dir := args.End.Sub(args.Start)
	lenSq := dir.Dot(dir)
	if lenSq == 0 {
		return
	}

	for i := range s.clients[1:] {
		c := &s.clients[i+1]
		e := c.Edict
		if !c.Connected || !e.IsAlive() || e == args.Ignore {
			continue
		}

		t := e.Vars.Origin.Sub(args.Start).Dot(dir) / lenSq
		if t < 0 || t > 1 || t >= tr.Fraction {
			continue
		}
		closest := args.Start.Add(dir.Scale(t))
		if e.Vars.Origin.Sub(closest).Length() > playerRadius {
			continue
		}
		tr.Fraction = t
		tr.EndPos = closest
		tr.Hit = e
	}
}

func (s *Server) playerSpawn(args hooks.PlayerArgs) {
	c := s.clientFor(args.Player)
	if c == nil {
		return
	}

	e := c.Edict
	e.Vars.Health = 100
	e.Vars.MaxHealth = 100
	e.Vars.DeadFlag = 0
	c.Spawned = true

	s.firePlayerSpawn(c.ID)
}

func (s *Server) playerTakeDamage(args hooks.TakeDamageArgs) bool {
	victim := args.Victim
	if !victim.IsAlive() {
		return false
	}

	damage := args.Damage
	if res := s.firePlayerDamage(victim.Index, edictIndex(args.Attacker), &damage, args.DamageBits); res.Blocks() {
		return false
	}
	// A nested call from a forward target may have killed the victim.
	if !victim.IsAlive() {
		return false
	}

	victim.Vars.Health -= damage
	if victim.Vars.Health <= 0 {
		s.hooks.Game.PlayerKilled.Call(hooks.KilledArgs{Victim: victim, Killer: args.Attacker})
	}
	return true
}

func (s *Server) playerKilled(args hooks.KilledArgs) {
	v := args.Victim
	if v == nil {
		return
	}
	v.Vars.Health = 0
	v.Vars.DeadFlag = 1
	if k := args.Killer; k != nil && k != v && k.Index > 0 {
		k.Vars.Frags++
	}
	if c := s.clientFor(v); c != nil {
		c.Spawned = false
	}
	s.logger.Debug().Int("victim", v.Index).Int("killer", edictIndex(args.Killer)).Msg("player killed")
}

func (s *Server) roundEnd(args hooks.RoundEndArgs) bool {
	if res := s.fireRoundEnd(args.Winner, args.Reason); res.Blocks() {
		return false
	}
	s.rounds++
	s.logger.Info().Int32("winner", args.Winner).Int32("reason", args.Reason).Int("round", s.rounds).Msg("round ended")
	return true
}

func (s *Server) canRespawn(args hooks.PlayerArgs) bool {
	c := s.clientFor(args.Player)
	return c != nil && !c.Edict.IsAlive()
}

// clientFor returns the connected client owning e.
func (s *Server) clientFor(e *entity.Edict) *entity.Client {
	if e == nil || e.Index < 1 || e.Index >= len(s.clients) {
		return nil
	}
	c := &s.clients[e.Index]
	if !c.Connected {
		return nil
	}
	return c
}

func edictIndex(e *entity.Edict) int {
	if e == nil {
		return 0
	}
	return e.Index
}
