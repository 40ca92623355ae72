package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditRing(t *testing.T) {
	a := NewAudit(2)
	assert.Empty(t, a.Entries())

	a.record("connect", 1, "a")
	a.record("connect", 2, "b")
	a.record("connect", 3, "c")

	entries := a.Entries()
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, entries[0].Client)
	assert.Equal(t, 3, entries[1].Client)
}

func TestAuditDefaultSize(t *testing.T) {
	a := NewAudit(0)
	assert.Len(t, a.entries, DefaultAuditSize)
}

func TestCvarGuardUnlocksOnUnload(t *testing.T) {
	s, _ := newTestServer(t)
	start(t, s)

	guard := s.builtins[0].(*CvarGuard)
	assert.True(t, guard.Locked())

	assert.NoError(t, s.Extensions().Unload("cvarguard"))
	assert.False(t, guard.Locked())

	assert.NoError(t, s.SetCvar("rcon_password", "open"))
	rcon, _ := s.Cvar("rcon_password")
	assert.Equal(t, "open", rcon.String)
}
