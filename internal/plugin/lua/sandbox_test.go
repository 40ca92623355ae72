package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestSandboxRemovesLoaders(t *testing.T) {
	state := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, glua.LNil, state.GetGlobal(name))
		})
	}
	for _, name := range []string{"io", "os", "debug"} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, glua.LNil, state.GetGlobal(name))
		})
	}
}

func TestSandboxRequire(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.DoString(`s = require("string").upper("ok")`))
	assert.Equal(t, glua.LString("OK"), state.GetGlobal("s"))

	err := state.DoString(`require("io")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")

	err = state.DoString(`require("socket")`)
	assert.Error(t, err)
}

func TestSandboxClockCapability(t *testing.T) {
	state := newTestState(t)
	sb := state.Sandbox()

	assert.Error(t, sb.CheckCapability(CapabilityClock))
	sb.Grant(CapabilityClock)
	assert.NoError(t, sb.CheckCapability(CapabilityClock))

	require.NoError(t, state.DoString(`
		t = type(os.time())
		ex = os.execute
		local o = require("os")
		same = o == os
	`))
	assert.Equal(t, glua.LString("number"), state.GetGlobal("t"))
	assert.Equal(t, glua.LNil, state.GetGlobal("ex"))
	assert.Equal(t, glua.LTrue, state.GetGlobal("same"))
}

func TestSandboxCapabilities(t *testing.T) {
	state := newTestState(t)
	sb := state.Sandbox()

	sb.Grant(CapabilityUnsafe)
	sb.Grant(CapabilityIO)
	assert.Equal(t, []Capability{CapabilityIO, CapabilityUnsafe}, sb.Capabilities())
	assert.True(t, sb.HasCapability(CapabilityUnsafe))
	assert.NotEqual(t, glua.LNil, state.GetGlobal("debug"))

	var capErr *CapabilityError
	require.ErrorAs(t, sb.CheckCapability(CapabilityClock), &capErr)
	assert.Equal(t, CapabilityClock, capErr.Capability)
	assert.Equal(t, "capability not granted: clock", capErr.Error())
}

func TestParseCapability(t *testing.T) {
	c, ok := ParseCapability("io")
	assert.True(t, ok)
	assert.Equal(t, CapabilityIO, c)

	_, ok = ParseCapability("network")
	assert.False(t, ok)
}
