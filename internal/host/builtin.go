package host

import (
	"fmt"
	"time"

	"github.com/dshills/hookcore/internal/entity"
	"github.com/dshills/hookcore/internal/extension"
	"github.com/dshills/hookcore/internal/forward"
	"github.com/dshills/hookcore/internal/hookchain"
	"github.com/dshills/hookcore/internal/hooks"
)

// CvarGuard refuses changes to protected cvars once the server is active.
type CvarGuard struct {
	locked  bool
	refused int
}

// NewCvarGuard creates the cvarguard extension.
func NewCvarGuard() *CvarGuard {
	return &CvarGuard{}
}

// Name implements extension.Extension.
func (g *CvarGuard) Name() string { return "cvarguard" }

// Init implements extension.Extension.
func (g *CvarGuard) Init(ctx *extension.Context) error {
	logger := ctx.Logger

	ctx.Engine.ActivateServer.RegisterHookOwned(ctx.Owner,
		func(chain *hookchain.Hook[hooks.ActivateServerArgs, hookchain.Void], args hooks.ActivateServerArgs) hookchain.Void {
			ret := chain.CallNext(args)
			g.locked = true
			return ret
		}, hookchain.PriorityUninterruptable)

	ctx.Engine.CvarDirectSet.RegisterHookOwned(ctx.Owner,
		func(chain *hookchain.Hook[hooks.CvarSetArgs, hookchain.Void], args hooks.CvarSetArgs) hookchain.Void {
			if g.locked && args.Cvar != nil && args.Cvar.Flags&entity.CvarProtected != 0 {
				g.refused++
				logger.Warn().Str("cvar", args.Cvar.Name).Msg("refused change to protected cvar")
				return hookchain.Void{}
			}
			return chain.CallNext(args)
		}, hookchain.PriorityUninterruptable)

	return nil
}

// Unload implements extension.Extension.
func (g *CvarGuard) Unload(*extension.Context) error {
	g.locked = false
	return nil
}

// Locked returns true once the server has been activated.
func (g *CvarGuard) Locked() bool { return g.locked }

// Refused returns how many changes were refused.
func (g *CvarGuard) Refused() int { return g.refused }

// DefaultAuditSize is the number of entries the audit log keeps.
const DefaultAuditSize = 256

// AuditEntry is one recorded event.
type AuditEntry struct {
	Time   time.Time
	Kind   string
	Client int
	Detail string
}

// Audit records connections, disconnections, round ends and chat in a
// fixed-size ring.
type Audit struct {
	entries []AuditEntry
	next    int
	full    bool
}

// NewAudit creates the audit extension keeping the last size entries.
func NewAudit(size int) *Audit {
	if size <= 0 {
		size = DefaultAuditSize
	}
	return &Audit{entries: make([]AuditEntry, size)}
}

// Name implements extension.Extension.
func (a *Audit) Name() string { return "audit" }

// Init implements extension.Extension.
func (a *Audit) Init(ctx *extension.Context) error {
	ctx.Engine.ClientConnect.RegisterHookOwned(ctx.Owner,
		func(chain *hookchain.Hook[hooks.ClientConnectArgs, bool], args hooks.ClientConnectArgs) bool {
			ok := chain.CallNext(args)
			detail := args.Name + " " + args.Address
			if !ok {
				detail += " rejected"
				if args.RejectReason != nil && *args.RejectReason != "" {
					detail += ": " + *args.RejectReason
				}
			}
			a.record("connect", clientID(args.Client), detail)
			return ok
		}, hookchain.PriorityUninterruptable)

	ctx.Engine.DropClient.RegisterHookOwned(ctx.Owner,
		func(chain *hookchain.Hook[hooks.DropClientArgs, hookchain.Void], args hooks.DropClientArgs) hookchain.Void {
			a.record("drop", clientID(args.Client), args.Reason)
			return chain.CallNext(args)
		}, hookchain.PriorityUninterruptable)

	ctx.Game.RoundEnd.RegisterHookOwned(ctx.Owner,
		func(chain *hookchain.Hook[hooks.RoundEndArgs, bool], args hooks.RoundEndArgs) bool {
			ended := chain.CallNext(args)
			a.record("round_end", 0, fmt.Sprintf("winner=%d reason=%d ended=%t", args.Winner, args.Reason, ended))
			return ended
		}, hookchain.PriorityUninterruptable)

	return ctx.Bind(ForwardSay, "audit_say", func(args []forward.Value) forward.Result {
		a.record("say", int(args[0].Cell), args[1].Str)
		return forward.ResultIgnored
	})
}

// Unload implements extension.Extension.
func (a *Audit) Unload(*extension.Context) error {
	return nil
}

func (a *Audit) record(kind string, client int, detail string) {
	a.entries[a.next] = AuditEntry{Time: time.Now(), Kind: kind, Client: client, Detail: detail}
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

// Entries returns the recorded entries, oldest first.
func (a *Audit) Entries() []AuditEntry {
	if !a.full {
		return append([]AuditEntry(nil), a.entries[:a.next]...)
	}
	out := make([]AuditEntry, 0, len(a.entries))
	out = append(out, a.entries[a.next:]...)
	return append(out, a.entries[:a.next]...)
}

// Len returns the number of recorded entries.
func (a *Audit) Len() int {
	if a.full {
		return len(a.entries)
	}
	return a.next
}

func clientID(c *entity.Client) int {
	if c == nil {
		return 0
	}
	return c.ID
}
