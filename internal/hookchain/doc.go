// Package hookchain provides priority-ordered interception chains for host
// entry points.
//
// A Registry exists once per call site. It is parameterized by the argument
// struct type A and the return type R of the intercepted operation, and it
// owns the host's original implementation:
//
//	reg := hookchain.NewRegistry("PlayerTakeDamage", originalTakeDamage)
//
//	h := reg.RegisterHook(func(chain *hookchain.Hook[TakeDamageArgs, bool], args TakeDamageArgs) bool {
//	    if args.Damage > 100 {
//	        args.Damage = 100
//	    }
//	    return chain.CallNext(args)
//	}, hookchain.PriorityHigh)
//
//	// The host shim enters the chain.
//	applied := reg.Call(TakeDamageArgs{Damage: 250})
//
// # Priority
//
// Interceptors run from the highest priority to the lowest. The five named
// tiers are, from first to last:
//
//	PriorityUninterruptable = 256
//	PriorityHigh            = 192
//	PriorityDefault         = 128
//	PriorityMedium          = 64
//	PriorityLow             = 0
//
// Any integer is accepted. Equal priorities run in registration order.
//
// # Chain Protocol
//
// Each dispatch gets its own Hook cursor. CallNext advances to the next
// enabled interceptor, or to the original implementation once the chain is
// exhausted. CallOriginal reaches the original implementation directly from
// any position. An interceptor that calls neither short-circuits the call.
//
// # Handles
//
// RegisterHook returns a Handle, a weak (slot, generation) reference into
// the registry's arena. A handle never keeps an entry alive: once the entry
// is unregistered, or the registry is cleared, every operation on the handle
// reports false and does nothing.
//
// # Dispatch Isolation
//
// The set of enabled interceptors is captured when a dispatch starts.
// Registrations and enable/disable changes made while a dispatch is running
// affect only later dispatches. Entries unregistered mid-dispatch are
// skipped if the cursor has not reached them yet.
//
// # Thread Safety
//
// None. The host drives every dispatch from one logical thread; nested
// (re-entrant) dispatches are supported because each owns its cursor.
package hookchain
