package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_Lifecycle(t *testing.T) {
	m := New("session-1")
	assert.Equal(t, "session-1", m.GetSessionID())
	assert.Equal(t, PhaseIdle, m.GetPhase())

	assert.True(t, m.BeginLoad("subsonic"))
	assert.Equal(t, PhaseLoading, m.GetPhase())
	assert.Equal(t, "subsonic", m.GetSource())

	// Overlapping load: ready only after both end.
	assert.True(t, m.BeginLoad("demo"))
	m.EndLoad()
	assert.Equal(t, PhaseLoading, m.GetPhase())
	m.EndLoad()
	assert.Equal(t, PhaseReady, m.GetPhase())
	assert.Equal(t, "demo", m.GetSource())

	assert.True(t, m.Close())
	assert.False(t, m.Close())
	assert.False(t, m.BeginLoad("subsonic"))
	m.EndLoad()
	assert.Equal(t, PhaseClosed, m.GetPhase())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loading", PhaseLoading.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "closed", PhaseClosed.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
