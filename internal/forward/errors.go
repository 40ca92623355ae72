package forward

import "errors"

// Forward usage errors.
var (
	// ErrForwardExists is returned when creating a forward whose name is taken.
	ErrForwardExists = errors.New("forward already exists")

	// ErrEmptyName is returned when creating a forward without a name.
	ErrEmptyName = errors.New("forward name is empty")

	// ErrForwardNotFound is returned when a named forward does not exist.
	ErrForwardNotFound = errors.New("forward not found")

	// ErrForwardReleased is returned when using a forward after its owner
	// released it.
	ErrForwardReleased = errors.New("forward released")

	// ErrTooManyParams is returned when pushing beyond the declared arity.
	ErrTooManyParams = errors.New("too many parameters pushed")

	// ErrParamMismatch is returned when a push does not match the declared slot.
	ErrParamMismatch = errors.New("parameter kind does not match declaration")

	// ErrNilBinding is returned when a by-reference push has no storage or
	// a nil param is pushed.
	ErrNilBinding = errors.New("nil by-reference binding")

	// ErrParamCount is returned when executing with fewer pushes than declared.
	ErrParamCount = errors.New("parameter count does not match declaration")

	// ErrSignatureMismatch is returned when a target cannot accept the
	// forward's parameter list.
	ErrSignatureMismatch = errors.New("target signature does not match forward")

	// ErrAlreadyBound is returned when a target with the same owner and
	// function is bound twice.
	ErrAlreadyBound = errors.New("target already bound")
)
