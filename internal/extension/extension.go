// Package extension hosts natively compiled extensions: Go packages linked
// into the host binary that intercept call sites and handle forwards
// through an explicitly constructed Context.
package extension

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hooks"
)

// Extension is a natively compiled module.
//
// Init registers hooks and forward targets, tagging every registration
// with ctx.Owner. Anything still tagged with the owner after Unload
// returns is removed by the Manager.
type Extension interface {
	Name() string
	Init(ctx *Context) error
	Unload(ctx *Context) error
}

// Context is everything an extension may reach. A Context is created per
// loaded extension instance.
type Context struct {
	Engine   *hooks.EngineHooks
	Game     *hooks.GameHooks
	Hooks    *hooks.Facade
	Forwards *forward.Manager
	Logger   zerolog.Logger

	// Owner tags the extension's hooks, forward targets and forwards.
	Owner string
}

// NativeTarget returns a forward target owned by the extension.
func (c *Context) NativeTarget(name string, fn forward.NativeFunc) *forward.NativeTarget {
	return forward.NewNativeTarget(c.Owner, name, fn)
}

// Bind binds fn to the named forward under the extension's owner tag.
func (c *Context) Bind(forwardName, fnName string, fn forward.NativeFunc) error {
	f, ok := c.Forwards.FindForward(forwardName)
	if !ok {
		return fmt.Errorf("%w: %s", forward.ErrForwardNotFound, forwardName)
	}
	return f.Bind(c.NativeTarget(fnName, fn))
}

// Func adapts plain functions to Extension.
type Func struct {
	ExtName    string
	InitFunc   func(ctx *Context) error
	UnloadFunc func(ctx *Context) error
}

// Name implements Extension.
func (f Func) Name() string { return f.ExtName }

// Init implements Extension.
func (f Func) Init(ctx *Context) error {
	if f.InitFunc == nil {
		return nil
	}
	return f.InitFunc(ctx)
}

// Unload implements Extension.
func (f Func) Unload(ctx *Context) error {
	if f.UnloadFunc == nil {
		return nil
	}
	return f.UnloadFunc(ctx)
}
