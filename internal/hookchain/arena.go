package hookchain

import "sort"

// slot is one arena cell. A slot is live while it holds a registered entry;
// freeing it bumps the generation so outstanding handles go stale.
type slot struct {
	gen      uint32
	live     bool
	priority Priority
	state    State
	seq      uint64
	owner    string
}

// ref identifies a live slot at a given generation.
type ref struct {
	index uint32
	gen   uint32
}

// arena owns the entries of one registry and keeps them ordered by
// priority (descending) then registration sequence (ascending).
type arena struct {
	slots []slot
	free  []uint32
	order []uint32
	seq   uint64

	// snapshot caches the enabled entries in dispatch order. It is
	// rebuilt lazily after any mutation and never modified in place, so
	// in-flight dispatches can keep iterating an older one.
	snapshot []ref
	dirty    bool
}

func (a *arena) alloc(p Priority, owner string) ref {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}

	a.seq++
	s := &a.slots[idx]
	s.live = true
	s.priority = p
	s.state = StateEnabled
	s.seq = a.seq
	s.owner = owner

	// Insert after every entry with priority >= p, which keeps
	// first-registered-first-called within a tier.
	pos := sort.Search(len(a.order), func(i int) bool {
		return a.slots[a.order[i]].priority < p
	})
	a.order = append(a.order, 0)
	copy(a.order[pos+1:], a.order[pos:])
	a.order[pos] = idx

	a.dirty = true
	return ref{index: idx, gen: s.gen}
}

func (a *arena) get(r ref) *slot {
	if int(r.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[r.index]
	if !s.live || s.gen != r.gen {
		return nil
	}
	return s
}

func (a *arena) release(r ref) bool {
	s := a.get(r)
	if s == nil {
		return false
	}
	for i, idx := range a.order {
		if idx == r.index {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	s.live = false
	s.gen++
	s.owner = ""
	a.free = append(a.free, r.index)
	a.dirty = true
	return true
}

func (a *arena) setState(r ref, st State) bool {
	s := a.get(r)
	if s == nil {
		return false
	}
	if s.state != st {
		s.state = st
		a.dirty = true
	}
	return true
}

// enabled returns the dispatch snapshot for a new dispatch.
func (a *arena) enabled() []ref {
	if !a.dirty && a.snapshot != nil {
		return a.snapshot
	}
	snap := make([]ref, 0, len(a.order))
	for _, idx := range a.order {
		s := &a.slots[idx]
		if s.state == StateEnabled {
			snap = append(snap, ref{index: idx, gen: s.gen})
		}
	}
	a.snapshot = snap
	a.dirty = false
	return snap
}

// ownedBy returns refs for every live entry tagged with owner.
func (a *arena) ownedBy(owner string) []ref {
	var refs []ref
	for _, idx := range a.order {
		s := &a.slots[idx]
		if s.owner == owner {
			refs = append(refs, ref{index: idx, gen: s.gen})
		}
	}
	return refs
}

// live returns refs for every live entry in dispatch order.
func (a *arena) live() []ref {
	refs := make([]ref, len(a.order))
	for i, idx := range a.order {
		refs[i] = ref{index: idx, gen: a.slots[idx].gen}
	}
	return refs
}
