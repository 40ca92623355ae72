package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/hookcore/internal/config"
	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/extension"
	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hooks"
	"github.com/dshills/hookcore/internal/plugin"
)

// reloadQueueSize bounds the number of pending reload requests.
const reloadQueueSize = 64

// Server is the simulated host process. Its methods are the native entry
// points of the engine: each routes through the hook chain of its call site
// before reaching the original implementation.
//
// All methods except RequestReload must be called from the goroutine that
// runs the frame loop.
type Server struct {
	cfg *config.Config

	world   *entity.World
	clients []entity.Client
	cvars   map[string]*entity.Cvar

	hooks      *hooks.Facade
	forwards   *forward.Manager
	fwd        *gameForwards
	plugins    *plugin.Manager
	extensions *extension.Manager
	builtins   []extension.Extension

	watcher *Watcher
	reloads chan string

	ctx        context.Context
	interval   time.Duration
	frame      uint64
	time       float64
	rounds     int
	nextUserID int
	active     bool
	running    atomic.Bool

	logger zerolog.Logger
}

// New builds a server from cfg. Plugins and extensions are loaded by Start.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}

	s := &Server{
		cfg:      cfg,
		world:    entity.NewWorld(cfg.Server.MaxEdicts, cfg.Server.MaxClients),
		clients:  make([]entity.Client, cfg.Server.MaxClients+1),
		cvars:    make(map[string]*entity.Cvar),
		reloads:  make(chan string, reloadQueueSize),
		ctx:      context.Background(),
		interval: cfg.Server.FrameInterval(),
		logger:   logger.With().Str("component", "host").Logger(),
	}
	for i := range s.clients {
		s.clients[i].ID = i
	}

	s.hooks = hooks.New(s.engineOriginals(), s.gameOriginals(), logger)
	s.forwards = forward.NewManager(logger)

	fwd, err := createGameForwards(s.forwards)
	if err != nil {
		return nil, &InitError{Component: "forwards", Err: err}
	}
	s.fwd = fwd

	s.plugins = plugin.NewManager(plugin.ManagerConfig{
		PluginPaths:      cfg.Plugins.Paths,
		AutoActivate:     cfg.Plugins.AutoActivate,
		Disabled:         cfg.Plugins.Disabled,
		ExecutionTimeout: cfg.Plugins.ExecutionTimeout.Std(),
	}, s.hooks, s.forwards, logger)

	s.extensions = extension.NewManager(s.hooks, s.forwards, logger,
		extension.WithDisabled(cfg.Extensions.Disabled...))
	s.builtins = []extension.Extension{NewCvarGuard(), NewAudit(DefaultAuditSize)}

	s.registerDefaultCvars()
	return s, nil
}

func (s *Server) registerDefaultCvars() {
	s.RegisterCvar("hostname", "hookhost", entity.CvarServer)
	s.RegisterCvar("sv_gravity", "800", entity.CvarServer)
	s.RegisterCvar("mp_timelimit", "20", entity.CvarServer)
	s.RegisterCvar("rcon_password", "", entity.CvarProtected)
}

// Start loads the built-in and given extensions, loads every plugin,
// activates the server and starts the plugin watcher if configured. Plugin
// load failures are logged and do not fail Start.
func (s *Server) Start(ctx context.Context, exts ...extension.Extension) error {
	s.ctx = ctx

	for _, ext := range append(slices.Clone(s.builtins), exts...) {
		if err := s.extensions.Load(ext); err != nil {
			if errors.Is(err, extension.ErrDisabled) {
				s.logger.Debug().Str("extension", ext.Name()).Msg("extension disabled")
				continue
			}
			return &InitError{Component: "extension " + ext.Name(), Err: err}
		}
	}

	if err := s.plugins.LoadAll(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("some plugins failed to load")
	}

	s.hooks.Engine.ActivateServer.Call(hooks.ActivateServerArgs{
		EdictCount: s.world.Used(),
		MaxClients: s.world.MaxClients(),
	})

	if s.cfg.Plugins.Watch {
		w, err := NewWatcher(s.cfg.Plugins.Paths, s.RequestReload, s.logger)
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		s.watcher = w
	}
	return nil
}

// Shutdown stops the watcher, disconnects every client and unloads plugins
// and extensions in reverse load order.
func (s *Server) Shutdown() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
		s.watcher = nil
	}

	for i := len(s.clients) - 1; i > 0; i-- {
		if s.clients[i].Connected {
			s.hooks.Engine.DropClient.Call(hooks.DropClientArgs{Client: &s.clients[i], Reason: "server shutting down"})
		}
	}

	errs = append(errs, s.plugins.UnloadAll(), s.extensions.UnloadAll())
	s.active = false
	s.logger.Info().Uint64("frames", s.frame).Msg("server stopped")
	return errors.Join(errs...)
}

// Run executes frames at the configured frame rate until ctx is done or
// frames frames have run. frames <= 0 runs until ctx is done. A zero frame
// rate runs frames back to back.
func (s *Server) Run(ctx context.Context, frames int) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for n := 0; frames <= 0 || n < frames; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		s.Frame()
	}
	return nil
}

// Frame runs one server tick: the StartFrame chain, then any queued plugin
// reloads.
func (s *Server) Frame() {
	s.frame++
	step := s.interval
	if step <= 0 {
		step = time.Second / 20
	}
	s.time = float64(s.frame) * step.Seconds()

	s.hooks.Engine.StartFrame.Call(hooks.FrameArgs{Frame: s.frame, Time: s.time})
	s.drainReloads()
}

// RequestReload queues a plugin reload for the next frame. It is safe to
// call from any goroutine; requests beyond the queue size are dropped.
func (s *Server) RequestReload(name string) {
	select {
	case s.reloads <- name:
	default:
		s.logger.Warn().Str("plugin", name).Msg("reload queue full, request dropped")
	}
}

// drainReloads reloads each queued plugin once, in request order.
func (s *Server) drainReloads() {
	var names []string
drain:
	for {
		select {
		case name := <-s.reloads:
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		default:
			break drain
		}
	}

	for _, name := range names {
		err := s.plugins.Reload(s.ctx, name)
		switch {
		case err == nil:
		case errors.Is(err, plugin.ErrPluginNotFound):
			s.logger.Info().Str("plugin", name).Msg("plugin removed")
		case errors.Is(err, plugin.ErrPluginDisabled):
		default:
			s.logger.Error().Err(err).Str("plugin", name).Msg("plugin reload failed")
		}
	}
}

// Connect runs ClientConnect for the first free slot.
func (s *Server) Connect(name, address string) (*entity.Client, error) {
	var slot *entity.Client
	for i := 1; i < len(s.clients); i++ {
		if !s.clients[i].Connected {
			slot = &s.clients[i]
			break
		}
	}
	if slot == nil {
		return nil, ErrServerFull
	}

	var reason string
	ok := s.hooks.Engine.ClientConnect.Call(hooks.ClientConnectArgs{
		Client:       slot,
		Name:         name,
		Address:      address,
		RejectReason: &reason,
	})
	if !ok {
		if reason == "" {
			return nil, ErrRejected
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	return slot, nil
}

// Disconnect runs DropClient for client id.
func (s *Server) Disconnect(id int, reason string) error {
	c, err := s.connected(id)
	if err != nil {
		return err
	}
	s.hooks.Engine.DropClient.Call(hooks.DropClientArgs{Client: c, Reason: reason})
	return nil
}

// Spawn runs PlayerSpawn for client id.
func (s *Server) Spawn(id int) error {
	c, err := s.connected(id)
	if err != nil {
		return err
	}
	s.hooks.Game.PlayerSpawn.Call(hooks.PlayerArgs{Player: c.Edict})
	return nil
}

// Damage runs PlayerTakeDamage against client victim. attacker 0 is the
// world. It reports whether the damage was applied.
func (s *Server) Damage(victim, attacker int, damage float32, bits int32) (bool, error) {
	v, err := s.connected(victim)
	if err != nil {
		return false, err
	}
	if !v.Edict.IsAlive() {
		return false, fmt.Errorf("%w: %d", ErrNotSpawned, victim)
	}

	var a *entity.Edict
	if attacker != 0 {
		ac, err := s.connected(attacker)
		if err != nil {
			return false, err
		}
		a = ac.Edict
	}

	return s.hooks.Game.PlayerTakeDamage.Call(hooks.TakeDamageArgs{
		Victim:     v.Edict,
		Attacker:   a,
		Damage:     damage,
		DamageBits: bits,
	}), nil
}

// CanRespawn runs CanRespawn for client id.
func (s *Server) CanRespawn(id int) (bool, error) {
	c, err := s.connected(id)
	if err != nil {
		return false, err
	}
	return s.hooks.Game.CanRespawn.Call(hooks.PlayerArgs{Player: c.Edict}), nil
}

// EndRound runs RoundEnd and reports whether the round ended.
func (s *Server) EndRound(winner, reason int32, delay float32) bool {
	return s.hooks.Game.RoundEnd.Call(hooks.RoundEndArgs{Winner: winner, Reason: reason, Delay: delay})
}

// TraceLine runs TraceLine from start to end, ignoring ignore.
func (s *Server) TraceLine(start, end entity.Vector, ignore *entity.Edict) entity.TraceResult {
	var tr entity.TraceResult
	s.hooks.Engine.TraceLine.Call(hooks.TraceLineArgs{Start: start, End: end, Ignore: ignore, Trace: &tr})
	return tr
}

// Say fires the say forward for client id. It returns the text after
// plugins rewrote it and whether a plugin blocked the message.
func (s *Server) Say(id int, text string) (string, bool, error) {
	if _, err := s.connected(id); err != nil {
		return "", false, err
	}
	res := s.fireSay(id, &text)
	return text, res.Blocks(), nil
}

// RegisterCvar registers a cvar, or returns the existing one.
func (s *Server) RegisterCvar(name, value string, flags entity.CvarFlags) *entity.Cvar {
	if c, ok := s.cvars[name]; ok {
		return c
	}
	c := &entity.Cvar{Name: name, Flags: flags}
	c.Set(value)
	s.cvars[name] = c
	return c
}

// Cvar returns a registered cvar.
func (s *Server) Cvar(name string) (*entity.Cvar, bool) {
	c, ok := s.cvars[name]
	return c, ok
}

// SetCvar runs CvarDirectSet for a registered cvar.
func (s *Server) SetCvar(name, value string) error {
	c, ok := s.cvars[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchCvar, name)
	}
	s.hooks.Engine.CvarDirectSet.Call(hooks.CvarSetArgs{Cvar: c, Value: value})
	return nil
}

func (s *Server) connected(id int) (*entity.Client, error) {
	if id < 1 || id >= len(s.clients) || !s.clients[id].Connected {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchClient, id)
	}
	return &s.clients[id], nil
}

// Client returns the slot for id, connected or not.
func (s *Server) Client(id int) (*entity.Client, bool) {
	if id < 1 || id >= len(s.clients) {
		return nil, false
	}
	return &s.clients[id], true
}

// Clients returns the connected clients in slot order.
func (s *Server) Clients() []*entity.Client {
	var out []*entity.Client
	for i := 1; i < len(s.clients); i++ {
		if s.clients[i].Connected {
			out = append(out, &s.clients[i])
		}
	}
	return out
}

// Hooks returns the hook registries.
func (s *Server) Hooks() *hooks.Facade { return s.hooks }

// Forwards returns the forward manager.
func (s *Server) Forwards() *forward.Manager { return s.forwards }

// Plugins returns the plugin manager.
func (s *Server) Plugins() *plugin.Manager { return s.plugins }

// Extensions returns the extension manager.
func (s *Server) Extensions() *extension.Manager { return s.extensions }

// World returns the edict table.
func (s *Server) World() *entity.World { return s.world }

// FrameCount returns the number of frames run.
func (s *Server) FrameCount() uint64 { return s.frame }

// Rounds returns the number of rounds ended.
func (s *Server) Rounds() int { return s.rounds }

// Active returns true between ActivateServer and Shutdown.
func (s *Server) Active() bool { return s.active }

// IsRunning returns true while Run is executing.
func (s *Server) IsRunning() bool { return s.running.Load() }

// Audit returns the built-in audit extension.
func (s *Server) Audit() *Audit {
	for _, ext := range s.builtins {
		if a, ok := ext.(*Audit); ok {
			return a
		}
	}
	return nil
}
