package hookchain

import "strconv"

// Priority orders interceptors on a call site. Higher values run first.
type Priority int

// Named priority tiers, first-called to last-called.
const (
	PriorityUninterruptable Priority = 256
	PriorityHigh            Priority = 192
	PriorityDefault         Priority = 128
	PriorityMedium          Priority = 64
	PriorityLow             Priority = 0
)

// String returns the tier name, or the numeric value for custom priorities.
func (p Priority) String() string {
	switch p {
	case PriorityUninterruptable:
		return "uninterruptable"
	case PriorityHigh:
		return "high"
	case PriorityDefault:
		return "default"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParsePriority converts a tier name or an integer string to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "uninterruptable":
		return PriorityUninterruptable, true
	case "high":
		return PriorityHigh, true
	case "default", "":
		return PriorityDefault, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return PriorityDefault, false
	}
	return Priority(n), true
}

// State is the dispatch state of a registered interceptor.
type State int

// Interceptor states.
const (
	// StateEnabled - the interceptor takes part in dispatch.
	StateEnabled State = iota

	// StateDisabled - the interceptor keeps its slot but is skipped.
	StateDisabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
