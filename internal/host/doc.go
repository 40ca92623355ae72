// Package host simulates the process that extensions and plugins attach
// to: an engine with a client table, an edict table and cvars, and game
// logic with spawning, damage and rounds.
//
// Every native entry point of Server (Connect, Damage, SetCvar, ...)
// dispatches through the hook chain of its call site. The original
// implementations at the end of each chain fire the game-event forwards,
// so plugin callbacks may run nested inside hook bodies and vice versa:
//
//	server.Damage(victim, attacker, 25, 0)
//	  -> PlayerTakeDamage chain (extension and Lua interceptors)
//	     -> original: player_damage forward (damage by reference)
//	        -> PlayerKilled chain when health reaches zero
//
// Server is single threaded. The plugin Watcher runs on its own goroutine
// and only queues reload requests, which Frame drains.
package host
