package forward

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// Manager creates, looks up and executes forwards. Named forwards are
// unique per manager.
type Manager struct {
	named  map[string]*Forward
	all    []*Forward
	nextID int
	depth  int
	logger zerolog.Logger
}

// NewManager creates an empty forward manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		named:  make(map[string]*Forward),
		logger: logger.With().Str("component", "forward").Logger(),
	}
}

// CreateForward declares a named forward. It fails with ErrForwardExists if
// the name is taken.
func (m *Manager) CreateForward(name, owner string, exec ExecType, types ...ParamType) (*Forward, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, exists := m.named[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrForwardExists, name)
	}

	f := m.newForward(name, owner, exec, types)
	m.named[name] = f

	m.logger.Debug().
		Str("forward", name).
		Str("owner", owner).
		Stringer("exec", exec).
		Str("signature", Signature(types)).
		Msg("forward created")
	return f, nil
}

// CreateSingleForward creates an anonymous forward bound to exactly one
// target. It is the adapter form used for callbacks registered at runtime.
func (m *Manager) CreateSingleForward(owner string, target Target, types ...ParamType) (*Forward, error) {
	f := m.newForward("", owner, ExecIgnore, types)
	f.name = fmt.Sprintf("#%d:%s", f.id, target.Name())
	f.single = true
	if err := f.Bind(target); err != nil {
		m.drop(f)
		return nil, err
	}
	return f, nil
}

func (m *Manager) newForward(name, owner string, exec ExecType, types []ParamType) *Forward {
	m.nextID++
	f := &Forward{
		mgr:   m,
		id:    m.nextID,
		name:  name,
		owner: owner,
		exec:  exec,
		types: append([]ParamType(nil), types...),
	}
	m.all = append(m.all, f)
	return f
}

// FindForward returns the named forward.
func (m *Manager) FindForward(name string) (*Forward, bool) {
	f, ok := m.named[name]
	return f, ok
}

// Forwards returns every live forward in creation order.
func (m *Manager) Forwards() []*Forward {
	return slices.Clone(m.all)
}

// Named returns every live named forward in creation order.
func (m *Manager) Named() []*Forward {
	out := make([]*Forward, 0, len(m.named))
	for _, f := range m.all {
		if !f.single {
			out = append(out, f)
		}
	}
	return out
}

// Destroy releases a forward. Its name becomes available again.
func (m *Manager) Destroy(f *Forward) {
	if f == nil || f.mgr != m || f.released {
		return
	}
	m.drop(f)
}

func (m *Manager) drop(f *Forward) {
	f.released = true
	for _, b := range f.targets {
		b.removed = true
	}
	f.targets = nil
	f.ResetParams()

	if !f.single && m.named[f.name] == f {
		delete(m.named, f.name)
	}
	m.all = slices.DeleteFunc(m.all, func(x *Forward) bool { return x == f })
}

// ReleaseOwner unbinds every target owned by owner from every forward and
// destroys the forwards owner created. It returns the number of targets
// unbound and forwards destroyed.
func (m *Manager) ReleaseOwner(owner string) (unbound, destroyed int) {
	if owner == "" {
		return 0, 0
	}
	for _, f := range slices.Clone(m.all) {
		if f.owner == owner {
			m.drop(f)
			destroyed++
			continue
		}
		unbound += f.Unbind(owner)
	}
	if unbound > 0 || destroyed > 0 {
		m.logger.Debug().
			Str("owner", owner).
			Int("unbound", unbound).
			Int("destroyed", destroyed).
			Msg("owner released")
	}
	return unbound, destroyed
}

// Depth returns how many forward executions are in progress, counting
// nested ones.
func (m *Manager) Depth() int {
	return m.depth
}

// Exec pushes nothing and executes the named forward. It is a convenience
// for zero-arity events.
func (m *Manager) Exec(name string) (Result, error) {
	f, ok := m.named[name]
	if !ok {
		return ResultIgnored, fmt.Errorf("%w: %s", ErrForwardNotFound, name)
	}
	return f.ExecFunc()
}

// execute runs one forward execution. It is the only code path that calls
// targets.
func (m *Manager) execute(f *Forward) (Result, error) {
	if f.mgr != m {
		return ResultIgnored, errors.New("forward belongs to another manager")
	}

	params, err := f.takeParams()
	if err != nil {
		m.logger.Warn().Err(err).Str("forward", f.name).Msg("forward not executed")
		return ResultIgnored, err
	}

	working := make([]Value, len(params))
	for i, p := range params {
		working[i] = p.load()
	}

	targets := slices.Clone(f.targets)
	agg := aggregator{exec: f.exec}

	m.depth++
	defer func() { m.depth-- }()
	f.executions++

	for _, b := range targets {
		if b.skipped() {
			continue
		}

		args := make([]Value, len(working))
		for i := range working {
			args[i] = working[i].clone()
		}

		res := m.invoke(f, b, args)

		for i, p := range params {
			if p.CopyBack() {
				working[i] = args[i]
			}
		}

		if agg.add(res) {
			break
		}
	}

	for i, p := range params {
		if p.CopyBack() {
			p.store(working[i])
		}
	}

	return agg.result, nil
}

// invoke calls one target, converting errors and panics to ResultIgnored.
func (m *Manager) invoke(f *Forward, b *binding, args []Value) (res Result) {
	b.calls++
	defer func() {
		if rec := recover(); rec != nil {
			b.errors++
			m.logger.Error().
				Str("forward", f.name).
				Str("owner", b.target.Owner()).
				Str("function", b.target.Name()).
				Str("panic", fmt.Sprint(rec)).
				Msg("forward target panicked")
			res = ResultIgnored
		}
	}()

	res, err := b.target.Invoke(args)
	if err != nil {
		b.errors++
		m.logger.Error().
			Err(err).
			Str("forward", f.name).
			Str("owner", b.target.Owner()).
			Str("function", b.target.Name()).
			Msg("forward target failed")
		return ResultIgnored
	}
	return res
}
