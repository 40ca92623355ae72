package hookchain

import (
	"github.com/rs/zerolog"
)

// Void is the return type of call sites whose host function returns nothing.
type Void = struct{}

// HookFunc is an interceptor for a call site with arguments A returning R.
// It receives the dispatch cursor and decides whether to continue the chain.
type HookFunc[A, R any] func(chain *Hook[A, R], args A) R

// EntryInfo describes one registered interceptor, for introspection.
type EntryInfo struct {
	Position int
	Priority Priority
	State    State
	Owner    string
	Handle   Handle
}

// Site is the type-erased view of a Registry used by name-keyed catalogues.
type Site interface {
	// Name returns the call site name.
	Name() string

	// Len returns the number of registered interceptors.
	Len() int

	// Entries returns registered interceptors in dispatch order.
	Entries() []EntryInfo

	// UnregisterHook removes an interceptor. Stale handles are a no-op.
	UnregisterHook(h Handle) bool

	// UnregisterOwner removes every interceptor tagged with owner.
	UnregisterOwner(owner string) int

	// RegisterDynamic registers an interceptor that sees the arguments as
	// an untyped value and answers with a Verdict.
	RegisterDynamic(owner string, fn DynamicFunc, p Priority) Handle
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used to report recovered interceptor panics.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// Registry holds the interceptor chain for one call site and the host's
// original implementation. It is the only mutator of interceptor order.
type Registry[A, R any] struct {
	name     string
	original func(A) R
	arena    arena
	fns      []HookFunc[A, R]
	active   int
	logger   zerolog.Logger
}

// NewRegistry creates a registry for the named call site. A nil original
// behaves as a host function returning the zero value of R.
func NewRegistry[A, R any](name string, original func(A) R, opts ...RegistryOption) *Registry[A, R] {
	o := registryOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if original == nil {
		original = func(A) R {
			var zero R
			return zero
		}
	}

	return &Registry[A, R]{
		name:     name,
		original: original,
		logger:   o.logger.With().Str("site", name).Logger(),
	}
}

// Name returns the call site name.
func (r *Registry[A, R]) Name() string {
	return r.name
}

// RegisterHook adds an interceptor at the given priority and returns a weak
// handle to it. Registration never fails; the same function may be
// registered more than once as distinct entries.
func (r *Registry[A, R]) RegisterHook(fn HookFunc[A, R], p Priority) Handle {
	return r.RegisterHookOwned("", fn, p)
}

// RegisterHookOwned is RegisterHook with an owner tag, so that everything an
// extension or plugin registered can be removed with UnregisterOwner.
func (r *Registry[A, R]) RegisterHookOwned(owner string, fn HookFunc[A, R], p Priority) Handle {
	if fn == nil {
		fn = func(chain *Hook[A, R], args A) R { return chain.CallNext(args) }
	}

	ref := r.arena.alloc(p, owner)
	for int(ref.index) >= len(r.fns) {
		r.fns = append(r.fns, nil)
	}
	r.fns[ref.index] = fn

	r.logger.Debug().
		Str("owner", owner).
		Stringer("priority", p).
		Int("count", len(r.arena.order)).
		Msg("hook registered")

	return Handle{arena: &r.arena, site: r.name, ref: ref}
}

// UnregisterHook removes the entry referenced by h. Unregistering a stale
// handle, or a handle from another registry, is a no-op that returns false.
// It is safe to call from inside a running interceptor, including for the
// interceptor's own handle.
func (r *Registry[A, R]) UnregisterHook(h Handle) bool {
	if h.arena != &r.arena {
		return false
	}
	if !r.arena.release(h.ref) {
		return false
	}
	r.fns[h.ref.index] = nil
	return true
}

// UnregisterOwner removes every entry tagged with owner and returns how many
// were removed.
func (r *Registry[A, R]) UnregisterOwner(owner string) int {
	if owner == "" {
		return 0
	}
	count := 0
	for _, ref := range r.arena.ownedBy(owner) {
		if r.arena.release(ref) {
			r.fns[ref.index] = nil
			count++
		}
	}
	if count > 0 {
		r.logger.Debug().Str("owner", owner).Int("removed", count).Msg("owner hooks removed")
	}
	return count
}

// Clear removes every entry. Outstanding handles become stale.
func (r *Registry[A, R]) Clear() {
	for _, ref := range r.arena.live() {
		r.arena.release(ref)
		r.fns[ref.index] = nil
	}
}

// Len returns the number of registered entries, enabled or not.
func (r *Registry[A, R]) Len() int {
	return len(r.arena.order)
}

// Entries returns the registered entries in dispatch order.
func (r *Registry[A, R]) Entries() []EntryInfo {
	refs := r.arena.live()
	infos := make([]EntryInfo, len(refs))
	for i, ref := range refs {
		s := &r.arena.slots[ref.index]
		infos[i] = EntryInfo{
			Position: i,
			Priority: s.priority,
			State:    s.state,
			Owner:    s.owner,
			Handle:   Handle{arena: &r.arena, site: r.name, ref: ref},
		}
	}
	return infos
}

// Dispatching returns the number of dispatches currently in progress on this
// site, counting nested ones.
func (r *Registry[A, R]) Dispatching() int {
	return r.active
}

// Call starts a dispatch: the highest-priority enabled interceptor runs
// first, and the original implementation runs when the chain is exhausted.
// Host shims use Call as the replacement for a direct call.
func (r *Registry[A, R]) Call(args A) R {
	h := &Hook[A, R]{
		reg:     r,
		entries: r.arena.enabled(),
		depth:   r.active,
	}
	r.active++
	defer func() { r.active-- }()

	return h.CallNext(args)
}

// CallOriginal invokes the host implementation without any interceptor.
func (r *Registry[A, R]) CallOriginal(args A) R {
	return r.original(args)
}

// fn returns the live callback for ref, or nil if the entry was removed.
func (r *Registry[A, R]) fn(ref ref) HookFunc[A, R] {
	if r.arena.get(ref) == nil {
		return nil
	}
	return r.fns[ref.index]
}
