package hookchain

import "fmt"

// Hook is the cursor of one dispatch. Each interceptor receives the cursor of
// the dispatch it is part of; nested dispatches get cursors of their own.
type Hook[A, R any] struct {
	reg     *Registry[A, R]
	entries []ref
	pos     int
	depth   int

	// Bookkeeping used when recovering interceptor panics. nextFrom is the
	// cursor position of the last CallNext that returned, and nextRet its
	// result.
	inOriginal  bool
	reached     bool
	originalRet R
	nextFrom    int
	nextRet     R
}

// Name returns the call site name.
func (h *Hook[A, R]) Name() string {
	return h.reg.name
}

// Depth returns how many dispatches of the same site enclose this one.
func (h *Hook[A, R]) Depth() int {
	return h.depth
}

// Remaining returns the number of snapshot entries the cursor has not
// visited yet. Entries removed since the dispatch started are included.
func (h *Hook[A, R]) Remaining() int {
	return len(h.entries) - h.pos
}

// CallNext runs the next enabled interceptor, or the original implementation
// when none is left. Entries unregistered since the dispatch began are
// skipped.
func (h *Hook[A, R]) CallNext(args A) R {
	from := h.pos
	ret := h.next(args)
	h.nextFrom = from
	h.nextRet = ret
	return ret
}

func (h *Hook[A, R]) next(args A) R {
	for h.pos < len(h.entries) {
		ref := h.entries[h.pos]
		h.pos++

		fn := h.reg.fn(ref)
		if fn == nil {
			continue
		}
		return h.invoke(fn, args)
	}
	return h.CallOriginal(args)
}

// CallOriginal invokes the host implementation directly, bypassing every
// remaining interceptor.
func (h *Hook[A, R]) CallOriginal(args A) R {
	h.inOriginal = true
	ret := h.reg.original(args)
	h.inOriginal = false

	h.reached = true
	h.originalRet = ret
	return ret
}

// invoke runs one interceptor. When the interceptor panics after its own
// CallNext returned, the result of that CallNext is returned, so a lower
// interceptor that declined to continue still decides the outcome. An
// interceptor that panics after calling CallOriginal returns the original's
// result. Otherwise the panic is treated as a call to CallNext. Panics
// raised by the original implementation propagate unchanged.
func (h *Hook[A, R]) invoke(fn HookFunc[A, R], args A) (ret R) {
	after := h.pos
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if h.inOriginal {
			panic(rec)
		}

		h.reg.logger.Error().
			Str("panic", fmt.Sprint(rec)).
			Int("position", h.pos-1).
			Msg("interceptor panicked")

		switch {
		case h.nextFrom == after:
			ret = h.nextRet
		case h.reached:
			ret = h.originalRet
		default:
			ret = h.CallNext(args)
		}
	}()

	return fn(h, args)
}
