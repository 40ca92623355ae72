package forward

import (
	"fmt"
)

// binding is a target attached to a forward. removed is set when the target
// is unbound so that executions already holding the binding skip it.
// Suspended bindings keep their position but are not called.
type binding struct {
	target    Target
	removed   bool
	suspended bool
	calls     uint64
	errors    uint64
}

func (b *binding) skipped() bool { return b.removed || b.suspended }

// Forward is a named, fixed-arity event bound to an ordered list of targets.
// Forwards are created by a Manager, which is also the only executor.
type Forward struct {
	mgr    *Manager
	id     int
	name   string
	owner  string
	exec   ExecType
	types  []ParamType
	single bool

	targets []*binding

	params   []Param
	pushErr  error
	released bool

	executions uint64
}

// Name returns the forward name. Single-target forwards have generated names.
func (f *Forward) Name() string { return f.name }

// ID returns the forward's numeric identifier within its manager.
func (f *Forward) ID() int { return f.id }

// Owner returns the identity of the module that created the forward.
func (f *Forward) Owner() string { return f.owner }

// ExecType returns the execution policy.
func (f *Forward) ExecType() ExecType { return f.exec }

// Types returns a copy of the declared parameter list.
func (f *Forward) Types() []ParamType {
	return append([]ParamType(nil), f.types...)
}

// Arity returns the number of declared parameters.
func (f *Forward) Arity() int { return len(f.types) }

// Released returns true once the forward has been destroyed by its owner.
func (f *Forward) Released() bool { return f.released }

// Pushed returns the number of parameters pushed for the pending call.
func (f *Forward) Pushed() int { return len(f.params) }

// Bind appends a target. Targets run in the order they were bound.
func (f *Forward) Bind(t Target) error {
	if f.released {
		return ErrForwardReleased
	}
	if f.single && len(f.targets) > 0 {
		return fmt.Errorf("%w: single-target forward %q", ErrAlreadyBound, f.name)
	}
	if !t.Accepts(f.types) {
		return fmt.Errorf("%w: %s%s cannot take %s", ErrSignatureMismatch, f.name, Signature(f.types), t.Name())
	}
	for _, b := range f.targets {
		if b.target.Owner() == t.Owner() && b.target.Name() == t.Name() {
			return fmt.Errorf("%w: %s in %s", ErrAlreadyBound, t.Name(), t.Owner())
		}
	}
	f.targets = append(f.targets, &binding{target: t})
	return nil
}

// Unbind removes every target owned by owner and returns how many were
// removed. Executions in progress skip removed targets they have not
// reached yet.
func (f *Forward) Unbind(owner string) int {
	kept := f.targets[:0:0]
	removed := 0
	for _, b := range f.targets {
		if b.target.Owner() == owner {
			b.removed = true
			removed++
			continue
		}
		kept = append(kept, b)
	}
	f.targets = kept
	return removed
}

// Suspend stops calling owner's targets without moving them and returns
// how many were suspended.
func (f *Forward) Suspend(owner string) int {
	return f.setSuspended(owner, true)
}

// Resume reactivates owner's suspended targets at their original positions.
func (f *Forward) Resume(owner string) int {
	return f.setSuspended(owner, false)
}

func (f *Forward) setSuspended(owner string, suspended bool) int {
	n := 0
	for _, b := range f.targets {
		if b.target.Owner() == owner && b.suspended != suspended {
			b.suspended = suspended
			n++
		}
	}
	return n
}

// TargetCount returns the number of bound targets that are not suspended.
func (f *Forward) TargetCount() int {
	n := 0
	for _, b := range f.targets {
		if !b.suspended {
			n++
		}
	}
	return n
}

// Targets returns "owner:function" for each target that is not suspended,
// in call order.
func (f *Forward) Targets() []string {
	out := make([]string, 0, len(f.targets))
	for _, b := range f.targets {
		if !b.suspended {
			out = append(out, b.target.Owner()+":"+b.target.Name())
		}
	}
	return out
}

// next returns the declared type of the next slot, after checking arity.
func (f *Forward) next() (ParamType, error) {
	if f.released {
		return 0, ErrForwardReleased
	}
	if f.pushErr != nil {
		return 0, f.pushErr
	}
	if len(f.params) >= len(f.types) {
		return 0, f.fail(fmt.Errorf("%w: %s takes %d", ErrTooManyParams, f.name, len(f.types)))
	}
	return f.types[len(f.params)], nil
}

func (f *Forward) push(want ParamType, p Param) error {
	slotType, err := f.next()
	if err != nil {
		return err
	}
	if slotType != want {
		return f.fail(fmt.Errorf("%w: %s parameter %d is %s, got %s",
			ErrParamMismatch, f.name, len(f.params)+1, slotType, want))
	}
	f.params = append(f.params, p)
	return nil
}

// fail records the first push error; the pending call is poisoned until
// ResetParams or the next ExecFunc.
func (f *Forward) fail(err error) error {
	if f.pushErr == nil {
		f.pushErr = err
	}
	return err
}

// PushCell appends a cell parameter.
func (f *Forward) PushCell(v int32) error {
	return f.push(ParamCell, &CellParam{V: v})
}

// PushFloat appends a float parameter.
func (f *Forward) PushFloat(v float32) error {
	return f.push(ParamFloat, &FloatParam{V: v})
}

// PushCellRef appends a by-reference cell bound to dst.
func (f *Forward) PushCellRef(dst *int32, copyBack bool) error {
	if dst == nil {
		return f.nilBinding(ParamCellByRef)
	}
	return f.push(ParamCellByRef, &CellRefParam{Dst: dst, Back: copyBack})
}

// PushFloatRef appends a by-reference float bound to dst.
func (f *Forward) PushFloatRef(dst *float32, copyBack bool) error {
	if dst == nil {
		return f.nilBinding(ParamFloatByRef)
	}
	return f.push(ParamFloatByRef, &FloatRefParam{Dst: dst, Back: copyBack})
}

// PushArray appends a fixed-length array bound to dst.
func (f *Forward) PushArray(dst []int32, copyBack bool) error {
	return f.push(ParamArray, &ArrayParam{Dst: dst, Back: copyBack})
}

// PushString appends an immutable string.
func (f *Forward) PushString(s string) error {
	return f.push(ParamString, &StringParam{V: s})
}

// PushStringEx appends a string bound to dst with marshaling flags.
func (f *Forward) PushStringEx(dst *string, flags StringFlags) error {
	if dst == nil {
		return f.nilBinding(ParamStringEx)
	}
	p := &StringExParam{Dst: dst, Flags: flags}
	if flags&StringCopy != 0 {
		p.snapshot = p.filter(*dst)
	}
	return f.push(ParamStringEx, p)
}

// Push appends an already constructed Param. A nil param, or a
// by-reference param without storage, fails with ErrNilBinding.
func (f *Forward) Push(p Param) error {
	if p == nil {
		if _, err := f.next(); err != nil {
			return err
		}
		return f.fail(fmt.Errorf("%w: %s parameter %d", ErrNilBinding, f.name, len(f.params)+1))
	}
	if !p.bound() {
		return f.nilBinding(p.Type())
	}
	if sp, ok := p.(*StringExParam); ok {
		return f.PushStringEx(sp.Dst, sp.Flags)
	}
	return f.push(p.Type(), p)
}

func (f *Forward) nilBinding(t ParamType) error {
	if _, err := f.next(); err != nil {
		return err
	}
	return f.fail(fmt.Errorf("%w: %s parameter %d (%s)", ErrNilBinding, f.name, len(f.params)+1, t))
}

// ResetParams discards pushed parameters and any push error so the forward
// can be reused for the next event.
func (f *Forward) ResetParams() {
	f.params = f.params[:0]
	f.pushErr = nil
}

// ExecFunc executes the forward with the pushed parameters and resets the
// buffer. It returns an error, without running any target, if the pushes
// did not satisfy the declaration.
func (f *Forward) ExecFunc() (Result, error) {
	return f.mgr.execute(f)
}

// takeParams validates and detaches the pending parameters.
func (f *Forward) takeParams() ([]Param, error) {
	if f.released {
		f.ResetParams()
		return nil, ErrForwardReleased
	}
	if err := f.pushErr; err != nil {
		f.ResetParams()
		return nil, err
	}
	if len(f.params) != len(f.types) {
		n := len(f.params)
		f.ResetParams()
		return nil, fmt.Errorf("%w: %s takes %d, %d pushed", ErrParamCount, f.name, len(f.types), n)
	}

	params := make([]Param, len(f.params))
	copy(params, f.params)
	f.ResetParams()
	return params, nil
}

// Stats describes a forward for listings.
type Stats struct {
	Name       string
	Owner      string
	Exec       ExecType
	Signature  string
	Targets    int
	Executions uint64
	Failures   uint64
}

// Stats returns a snapshot of the forward's counters.
func (f *Forward) Stats() Stats {
	var failures uint64
	for _, b := range f.targets {
		failures += b.errors
	}
	return Stats{
		Name:       f.name,
		Owner:      f.owner,
		Exec:       f.exec,
		Signature:  Signature(f.types),
		Targets:    f.TargetCount(),
		Executions: f.executions,
		Failures:   failures,
	}
}
