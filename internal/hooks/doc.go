// Package hooks is the catalogue of interceptable host call sites.
//
// EngineHooks covers entry points of the engine (client connection, cvar
// writes, frames, traces) and GameHooks those of the game logic (spawn,
// damage, death, round end). Each field is a typed hookchain.Registry built
// around the host's original implementation.
//
// Facade groups both catalogues and indexes every site by name, which is
// how scripted plugins and the CLI reach them:
//
//	f := hooks.New(engineOriginals, gameOriginals, logger)
//	f.Game.PlayerTakeDamage.RegisterHookOwned(owner, halveDamage, hookchain.PriorityHigh)
//
//	site, ok := f.Lookup("PlayerTakeDamage")
package hooks
