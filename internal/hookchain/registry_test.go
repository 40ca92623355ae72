package hookchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type damageArgs struct {
	Damage int
}

// recorder returns an interceptor that appends tag to *trace and continues.
func recorder(trace *[]string, tag string) HookFunc[damageArgs, int] {
	return func(chain *Hook[damageArgs, int], args damageArgs) int {
		*trace = append(*trace, tag)
		return chain.CallNext(args)
	}
}

func newDamageRegistry(trace *[]string) *Registry[damageArgs, int] {
	return NewRegistry("TakeDamage", func(args damageArgs) int {
		if trace != nil {
			*trace = append(*trace, "original")
		}
		return args.Damage
	})
}

func TestRegistryPriorityOrder(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	reg.RegisterHook(recorder(&trace, "low"), PriorityLow)
	reg.RegisterHook(recorder(&trace, "uninterruptable"), PriorityUninterruptable)
	reg.RegisterHook(recorder(&trace, "default"), PriorityDefault)
	reg.RegisterHook(recorder(&trace, "high"), PriorityHigh)
	reg.RegisterHook(recorder(&trace, "medium"), PriorityMedium)

	got := reg.Call(damageArgs{Damage: 7})

	assert.Equal(t, 7, got)
	assert.Equal(t, []string{"uninterruptable", "high", "default", "medium", "low", "original"}, trace)
}

func TestRegistryTiesKeepRegistrationOrder(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	reg.RegisterHook(recorder(&trace, "a"), PriorityDefault)
	reg.RegisterHook(recorder(&trace, "b"), PriorityDefault)
	reg.RegisterHook(recorder(&trace, "first"), PriorityHigh)
	reg.RegisterHook(recorder(&trace, "c"), PriorityDefault)

	reg.Call(damageArgs{})
	assert.Equal(t, []string{"first", "a", "b", "c", "original"}, trace)

	// Repeated dispatches visit the same order.
	trace = nil
	reg.Call(damageArgs{})
	assert.Equal(t, []string{"first", "a", "b", "c", "original"}, trace)
}

func TestRegistryDuplicateCallbacks(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)
	fn := recorder(&trace, "dup")

	h1 := reg.RegisterHook(fn, PriorityDefault)
	h2 := reg.RegisterHook(fn, PriorityDefault)
	require.NotEqual(t, h1, h2)

	reg.Call(damageArgs{})
	assert.Equal(t, []string{"dup", "dup", "original"}, trace)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryModifyArguments(t *testing.T) {
	reg := newDamageRegistry(nil)
	reg.RegisterHook(func(chain *Hook[damageArgs, int], args damageArgs) int {
		args.Damage *= 2
		return chain.CallNext(args)
	}, PriorityHigh)
	reg.RegisterHook(func(chain *Hook[damageArgs, int], args damageArgs) int {
		args.Damage++
		return chain.CallNext(args)
	}, PriorityLow)

	assert.Equal(t, 21, reg.Call(damageArgs{Damage: 10}))
}

func TestRegistryShortCircuit(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	reg.RegisterHook(func(chain *Hook[damageArgs, int], args damageArgs) int {
		trace = append(trace, "block")
		return 0
	}, PriorityHigh)
	reg.RegisterHook(recorder(&trace, "unreached"), PriorityLow)

	assert.Equal(t, 0, reg.Call(damageArgs{Damage: 50}))
	assert.Equal(t, []string{"block"}, trace)
}

func TestCallOriginalBypassesChain(t *testing.T) {
	tests := []struct {
		name     string
		position int
	}{
		{name: "first", position: 0},
		{name: "middle", position: 1},
		{name: "last", position: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trace []string
			reg := newDamageRegistry(&trace)

			for i := 0; i < 3; i++ {
				tag := []string{"h0", "h1", "h2"}[i]
				if i == tt.position {
					reg.RegisterHook(func(chain *Hook[damageArgs, int], args damageArgs) int {
						trace = append(trace, tag)
						return chain.CallOriginal(args)
					}, PriorityDefault)
					continue
				}
				reg.RegisterHook(recorder(&trace, tag), PriorityDefault)
			}

			got := reg.Call(damageArgs{Damage: 3})
			assert.Equal(t, 3, got)
			assert.Equal(t, reg.CallOriginal(damageArgs{Damage: 3}), got)

			want := []string{"h0", "h1", "h2"}[:tt.position+1]
			want = append(want, "original", "original")
			assert.Equal(t, want, trace)
		})
	}
}

func TestDisableSkipsWithoutRemoving(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	reg.RegisterHook(recorder(&trace, "a"), PriorityHigh)
	hb := reg.RegisterHook(recorder(&trace, "b"), PriorityDefault)
	reg.RegisterHook(recorder(&trace, "c"), PriorityLow)

	require.True(t, hb.Disable())
	state, ok := hb.State()
	require.True(t, ok)
	assert.Equal(t, StateDisabled, state)
	assert.Equal(t, 3, reg.Len())

	reg.Call(damageArgs{})
	assert.Equal(t, []string{"a", "c", "original"}, trace)

	require.True(t, hb.Enable())
	trace = nil
	reg.Call(damageArgs{})
	assert.Equal(t, []string{"a", "b", "c", "original"}, trace)
}

func TestUnregisterStaleHandleIsNoop(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	ha := reg.RegisterHook(recorder(&trace, "a"), PriorityDefault)
	reg.RegisterHook(recorder(&trace, "b"), PriorityDefault)

	require.True(t, reg.UnregisterHook(ha))
	assert.False(t, ha.Valid())
	assert.False(t, reg.UnregisterHook(ha))
	assert.False(t, ha.SetState(StateDisabled))
	_, ok := ha.Priority()
	assert.False(t, ok)

	// A new entry reusing the slot is not reachable through the old handle.
	hc := reg.RegisterHook(recorder(&trace, "c"), PriorityDefault)
	assert.False(t, reg.UnregisterHook(ha))
	assert.True(t, hc.Valid())

	reg.Call(damageArgs{})
	assert.Equal(t, []string{"b", "c", "original"}, trace)
}

func TestUnregisterForeignHandle(t *testing.T) {
	a := newDamageRegistry(nil)
	b := newDamageRegistry(nil)

	h := a.RegisterHook(nil, PriorityDefault)
	assert.False(t, b.UnregisterHook(h))
	assert.True(t, h.Valid())
	assert.False(t, b.UnregisterHook(Handle{}))
}

func TestUnregisterOwner(t *testing.T) {
	var trace []string
	reg := newDamageRegistry(&trace)

	reg.RegisterHookOwned("ext-a", recorder(&trace, "a1"), PriorityHigh)
	reg.RegisterHookOwned("ext-b", recorder(&trace, "b1"), PriorityDefault)
	reg.RegisterHookOwned("ext-a", recorder(&trace, "a2"), PriorityLow)

	assert.Equal(t, 2, reg.UnregisterOwner("ext-a"))
	assert.Equal(t, 0, reg.UnregisterOwner("ext-a"))
	assert.Equal(t, 0, reg.UnregisterOwner(""))

	reg.Call(damageArgs{})
	assert.Equal(t, []string{"b1", "original"}, trace)
}

func TestEntries(t *testing.T) {
	reg := newDamageRegistry(nil)
	reg.RegisterHookOwned("x", nil, PriorityLow)
	h := reg.RegisterHookOwned("y", nil, PriorityHigh)
	h.Disable()

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "y", entries[0].Owner)
	assert.Equal(t, PriorityHigh, entries[0].Priority)
	assert.Equal(t, StateDisabled, entries[0].State)
	assert.Equal(t, "x", entries[1].Owner)
	assert.Equal(t, 1, entries[1].Position)
}

func TestClearInvalidatesHandles(t *testing.T) {
	reg := newDamageRegistry(nil)
	h1 := reg.RegisterHook(nil, PriorityDefault)
	h2 := reg.RegisterHook(nil, PriorityLow)

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, h1.Valid())
	assert.False(t, h2.Valid())
	assert.Equal(t, 9, reg.Call(damageArgs{Damage: 9}))
}

func TestNilOriginalReturnsZero(t *testing.T) {
	reg := NewRegistry[damageArgs, bool]("CanRespawn", nil)
	assert.False(t, reg.Call(damageArgs{}))
}
