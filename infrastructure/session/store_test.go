package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StoresAreIsolatedPerSession(t *testing.T) {
	// Arrange
	m := NewManager(time.Hour)
	a, b := m.NewID(), m.NewID()
	require.NotEqual(t, a, b)

	// Act
	m.Store(a).Put("switch", "1")

	// Assert
	v, ok := m.Store(a).Get("switch")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = m.Store(b).Get("switch")
	assert.False(t, ok)
	assert.Equal(t, 2, m.Count())
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(time.Hour)
	s := m.Store(m.NewID())
	s.Put("speed", "10000")

	s.Remove("speed")

	_, ok := s.Get("speed")
	assert.False(t, ok)
}

func TestManager_SessionsExpire(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	id := m.NewID()
	m.Store(id).Put("infra", "2")

	time.Sleep(50 * time.Millisecond)

	_, ok := m.Store(id).Get("infra")
	assert.False(t, ok)
}

func TestManager_Valid(t *testing.T) {
	m := NewManager(time.Hour)

	assert.True(t, m.Valid(m.NewID()))
	assert.False(t, m.Valid("../../etc"))
	assert.False(t, m.Valid(""))
}
