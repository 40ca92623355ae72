package hooks

import "github.com/dshills/hookcore/internal/hookchain"

// Engine call site names.
const (
	SiteClientConnect  = "ClientConnect"
	SiteDropClient     = "DropClient"
	SiteActivateServer = "ActivateServer"
	SiteCvarDirectSet  = "CvarDirectSet"
	SiteStartFrame     = "StartFrame"
	SiteTraceLine      = "TraceLine"
)

// EngineOriginals are the engine's implementations of its call sites. Nil
// fields behave as no-ops returning the zero value.
type EngineOriginals struct {
	ClientConnect  func(ClientConnectArgs) bool
	DropClient     func(DropClientArgs)
	ActivateServer func(ActivateServerArgs)
	CvarDirectSet  func(CvarSetArgs)
	StartFrame     func(FrameArgs)
	TraceLine      func(TraceLineArgs)
}

// EngineHooks holds one registry per engine call site.
type EngineHooks struct {
	ClientConnect  *hookchain.Registry[ClientConnectArgs, bool]
	DropClient     *hookchain.Registry[DropClientArgs, hookchain.Void]
	ActivateServer *hookchain.Registry[ActivateServerArgs, hookchain.Void]
	CvarDirectSet  *hookchain.Registry[CvarSetArgs, hookchain.Void]
	StartFrame     *hookchain.Registry[FrameArgs, hookchain.Void]
	TraceLine      *hookchain.Registry[TraceLineArgs, hookchain.Void]
}

// NewEngineHooks builds the engine registries around orig.
func NewEngineHooks(orig EngineOriginals, opts ...hookchain.RegistryOption) *EngineHooks {
	return &EngineHooks{
		ClientConnect:  hookchain.NewRegistry(SiteClientConnect, orig.ClientConnect, opts...),
		DropClient:     hookchain.NewRegistry(SiteDropClient, void(orig.DropClient), opts...),
		ActivateServer: hookchain.NewRegistry(SiteActivateServer, void(orig.ActivateServer), opts...),
		CvarDirectSet:  hookchain.NewRegistry(SiteCvarDirectSet, void(orig.CvarDirectSet), opts...),
		StartFrame:     hookchain.NewRegistry(SiteStartFrame, void(orig.StartFrame), opts...),
		TraceLine:      hookchain.NewRegistry(SiteTraceLine, void(orig.TraceLine), opts...),
	}
}

// sites lists the registries in catalogue order.
func (e *EngineHooks) sites() []hookchain.Site {
	return []hookchain.Site{
		e.ClientConnect,
		e.DropClient,
		e.ActivateServer,
		e.CvarDirectSet,
		e.StartFrame,
		e.TraceLine,
	}
}

// void adapts a host function without a result to a registry original.
func void[A any](fn func(A)) func(A) hookchain.Void {
	if fn == nil {
		return nil
	}
	return func(args A) hookchain.Void {
		fn(args)
		return hookchain.Void{}
	}
}
