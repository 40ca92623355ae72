package hooks

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/hookcore/internal/hookchain"
)

// Facade gives access to every hook registry of the host, typed through
// Engine and Game or by name through Lookup.
type Facade struct {
	Engine *EngineHooks
	Game   *GameHooks

	sites  []hookchain.Site
	byName map[string]hookchain.Site
}

// New builds the engine and game registries around the host originals.
func New(engine EngineOriginals, game GameOriginals, logger zerolog.Logger) *Facade {
	opt := hookchain.WithLogger(logger.With().Str("component", "hooks").Logger())
	f := &Facade{
		Engine: NewEngineHooks(engine, opt),
		Game:   NewGameHooks(game, opt),
		byName: make(map[string]hookchain.Site),
	}
	f.sites = append(f.Engine.sites(), f.Game.sites()...)
	for _, s := range f.sites {
		f.byName[strings.ToLower(s.Name())] = s
	}
	return f
}

// Lookup returns the site with the given name, ignoring case.
func (f *Facade) Lookup(name string) (hookchain.Site, bool) {
	s, ok := f.byName[strings.ToLower(name)]
	return s, ok
}

// Sites returns every site, engine sites first.
func (f *Facade) Sites() []hookchain.Site {
	return append([]hookchain.Site(nil), f.sites...)
}

// Names returns the name of every site, engine sites first.
func (f *Facade) Names() []string {
	names := make([]string, len(f.sites))
	for i, s := range f.sites {
		names[i] = s.Name()
	}
	return names
}

// UnregisterOwner removes every interceptor owned by owner from every site
// and returns how many were removed.
func (f *Facade) UnregisterOwner(owner string) int {
	n := 0
	for _, s := range f.sites {
		n += s.UnregisterOwner(owner)
	}
	return n
}

// CountOwned returns how many interceptors owner has registered.
func (f *Facade) CountOwned(owner string) int {
	n := 0
	for _, s := range f.sites {
		for _, e := range s.Entries() {
			if e.Owner == owner {
				n++
			}
		}
	}
	return n
}

// Len returns the number of registered interceptors across all sites.
func (f *Facade) Len() int {
	n := 0
	for _, s := range f.sites {
		n += s.Len()
	}
	return n
}
