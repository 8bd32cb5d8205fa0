// internal/serialport/registry_test.go
package serialport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_SameHandle(t *testing.T) {
	r := newTestRegistry(newFakeOS("COM1", "COM2"))

	a := r.GetOrCreate("COM1")
	b := r.GetOrCreate("COM1")
	c := r.GetOrCreate("COM2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestReleaseAll(t *testing.T) {
	r := newTestRegistry(newFakeOS("COM1", "COM2"))

	a := r.GetOrCreate("COM1")
	b := r.GetOrCreate("COM2")
	require.True(t, a.Acquire())
	require.True(t, b.Acquire())

	r.ReleaseAll()

	assert.False(t, a.InUse())
	assert.False(t, b.InUse())
	assert.Zero(t, r.Len())

	// a fresh lookup yields a fresh, acquirable handle
	n := r.GetOrCreate("COM1")
	assert.NotSame(t, a, n)
	assert.True(t, n.Acquire())
}

func TestReleaseAll_Empty(t *testing.T) {
	r := newTestRegistry(newFakeOS())
	assert.NotPanics(t, r.ReleaseAll)
}

func TestListPorts(t *testing.T) {
	r := newTestRegistry(newFakeOS("/dev/ttyUSB0", "/dev/ttyUSB1"))

	ports, err := r.ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, ports)
}
