package host

import (
	"errors"

	"github.com/dshills/hookcore/internal/forward"
)

// Game event forwards created by the server.
const (
	ForwardClientConnect    = "client_connect"
	ForwardClientDisconnect = "client_disconnect"
	ForwardPlayerSpawn      = "player_spawn"
	ForwardPlayerDamage     = "player_damage"
	ForwardRoundEnd         = "round_end"
	ForwardServerFrame      = "server_frame"
	ForwardSay              = "say"
)

// Owner is the owner identity of everything the server itself registers.
const Owner = "host"

type forwardDef struct {
	name  string
	exec  forward.ExecType
	types []forward.ParamType
}

var gameForwardDefs = []forwardDef{
	// id, name, address, reject reason
	{ForwardClientConnect, forward.ExecStop, []forward.ParamType{
		forward.ParamCell, forward.ParamString, forward.ParamString, forward.ParamStringEx,
	}},
	// id, crash
	{ForwardClientDisconnect, forward.ExecIgnore, []forward.ParamType{
		forward.ParamCell, forward.ParamCell,
	}},
	{ForwardPlayerSpawn, forward.ExecIgnore, []forward.ParamType{forward.ParamCell}},
	// victim, attacker, damage, damage bits
	{ForwardPlayerDamage, forward.ExecHighest, []forward.ParamType{
		forward.ParamCell, forward.ParamCell, forward.ParamFloatByRef, forward.ParamCell,
	}},
	// winner, reason
	{ForwardRoundEnd, forward.ExecStop | forward.ExecHighest, []forward.ParamType{
		forward.ParamCell, forward.ParamCell,
	}},
	// frame, time
	{ForwardServerFrame, forward.ExecIgnore, []forward.ParamType{
		forward.ParamCell, forward.ParamFloat,
	}},
	// id, text
	{ForwardSay, forward.ExecStop, []forward.ParamType{
		forward.ParamCell, forward.ParamStringEx,
	}},
}

// gameForwards holds the forwards fired by the host originals.
type gameForwards struct {
	clientConnect    *forward.Forward
	clientDisconnect *forward.Forward
	playerSpawn      *forward.Forward
	playerDamage     *forward.Forward
	roundEnd         *forward.Forward
	serverFrame      *forward.Forward
	say              *forward.Forward
}

func createGameForwards(m *forward.Manager) (*gameForwards, error) {
	created := make(map[string]*forward.Forward, len(gameForwardDefs))
	for _, def := range gameForwardDefs {
		f, err := m.CreateForward(def.name, Owner, def.exec, def.types...)
		if err != nil {
			return nil, err
		}
		created[def.name] = f
	}
	return &gameForwards{
		clientConnect:    created[ForwardClientConnect],
		clientDisconnect: created[ForwardClientDisconnect],
		playerSpawn:      created[ForwardPlayerSpawn],
		playerDamage:     created[ForwardPlayerDamage],
		roundEnd:         created[ForwardRoundEnd],
		serverFrame:      created[ForwardServerFrame],
		say:              created[ForwardSay],
	}, nil
}

// fire executes f after the pushes that produced pushErr. Failures are
// logged and count as no opinion.
func (s *Server) fire(f *forward.Forward, pushErr error) forward.Result {
	if pushErr != nil {
		f.ResetParams()
		s.logger.Error().Err(pushErr).Str("forward", f.Name()).Msg("forward push failed")
		return forward.ResultIgnored
	}
	res, err := f.ExecFunc()
	if err != nil {
		s.logger.Error().Err(err).Str("forward", f.Name()).Msg("forward failed")
		return forward.ResultIgnored
	}
	return res
}

func (s *Server) fireClientConnect(id int, name, address string, reason *string) forward.Result {
	f := s.fwd.clientConnect
	return s.fire(f, errors.Join(
		f.PushCell(int32(id)),
		f.PushString(name),
		f.PushString(address),
		f.PushStringEx(reason, forward.StringCopyBack),
	))
}

func (s *Server) fireClientDisconnect(id int, crash bool) forward.Result {
	f := s.fwd.clientDisconnect
	return s.fire(f, errors.Join(
		f.PushCell(int32(id)),
		f.PushCell(boolCell(crash)),
	))
}

func (s *Server) firePlayerSpawn(id int) forward.Result {
	f := s.fwd.playerSpawn
	return s.fire(f, f.PushCell(int32(id)))
}

func (s *Server) firePlayerDamage(victim, attacker int, damage *float32, bits int32) forward.Result {
	f := s.fwd.playerDamage
	return s.fire(f, errors.Join(
		f.PushCell(int32(victim)),
		f.PushCell(int32(attacker)),
		f.PushFloatRef(damage, true),
		f.PushCell(bits),
	))
}

func (s *Server) fireRoundEnd(winner, reason int32) forward.Result {
	f := s.fwd.roundEnd
	return s.fire(f, errors.Join(
		f.PushCell(winner),
		f.PushCell(reason),
	))
}

func (s *Server) fireServerFrame(frame uint64, t float64) forward.Result {
	f := s.fwd.serverFrame
	return s.fire(f, errors.Join(
		f.PushCell(int32(frame)),
		f.PushFloat(float32(t)),
	))
}

func (s *Server) fireSay(id int, text *string) forward.Result {
	f := s.fwd.say
	return s.fire(f, errors.Join(
		f.PushCell(int32(id)),
		f.PushStringEx(text, forward.StringCopyBack|forward.StringUTF8),
	))
}

func boolCell(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
