package host

import (
	"errors"
	"fmt"
)

// Server errors.
var (
	// ErrAlreadyRunning indicates Run was called on a running server.
	ErrAlreadyRunning = errors.New("server already running")

	// ErrServerFull indicates every client slot is taken.
	ErrServerFull = errors.New("server is full")

	// ErrRejected indicates ClientConnect refused a client.
	ErrRejected = errors.New("connection rejected")

	// ErrNoSuchClient indicates a client id that is not connected.
	ErrNoSuchClient = errors.New("no such client")

	// ErrNotSpawned indicates an operation on a player that is not alive.
	ErrNotSpawned = errors.New("player not spawned")

	// ErrNoSuchCvar indicates an unregistered cvar name.
	ErrNoSuchCvar = errors.New("no such cvar")
)

// InitError represents a failure to initialize a server component.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
