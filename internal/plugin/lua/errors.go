package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a top-level call runs past the
	// state's execution timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrFunctionNotFound is returned when calling a global that is not set.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNotFunction is returned when calling a global that is not a function.
	ErrNotFunction = errors.New("lua value is not a function")
)
