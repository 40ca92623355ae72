package forward

import "slices"

// Target is one callable bound to a forward: a scripted-plugin function or
// a native callback.
type Target interface {
	// Owner returns the identity of the plugin or extension that owns the
	// target. Unbinding by owner removes every target it owns.
	Owner() string

	// Name returns the function name, used in logs and listings.
	Name() string

	// Accepts reports whether the target can be called with the list.
	Accepts(types []ParamType) bool

	// Invoke calls the target. args is a private copy; edits to
	// by-reference entries are picked up for copy-back.
	Invoke(args []Value) (Result, error)
}

// NativeFunc is a Go callback bound as a forward target.
type NativeFunc func(args []Value) Result

// NativeTarget adapts a Go function to Target.
type NativeTarget struct {
	OwnerID  string
	FuncName string

	// Types restricts the forwards the target can bind to. Nil accepts
	// any parameter list.
	Types []ParamType

	Fn NativeFunc
}

// NewNativeTarget creates a native target accepting any parameter list.
func NewNativeTarget(owner, name string, fn NativeFunc) *NativeTarget {
	return &NativeTarget{OwnerID: owner, FuncName: name, Fn: fn}
}

// Owner implements Target.
func (t *NativeTarget) Owner() string { return t.OwnerID }

// Name implements Target.
func (t *NativeTarget) Name() string { return t.FuncName }

// Accepts implements Target.
func (t *NativeTarget) Accepts(types []ParamType) bool {
	if t.Types == nil {
		return true
	}
	return slices.Equal(t.Types, types)
}

// Invoke implements Target.
func (t *NativeTarget) Invoke(args []Value) (Result, error) {
	if t.Fn == nil {
		return ResultIgnored, nil
	}
	return t.Fn(args), nil
}
