package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemBackendReadWrite(t *testing.T) {
	data := make([]byte, 64)
	backend := NewMemBackend(data)

	n, err := backend.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = backend.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestMemBackendOutOfBounds(t *testing.T) {
	backend := NewMemBackend(make([]byte, 16))

	_, err := backend.ReadAt(make([]byte, 4), 15)
	assert.Error(t, err)

	_, err = backend.WriteAt(make([]byte, 4), -1)
	assert.Error(t, err)
}

func TestWindowReadRespectsLength(t *testing.T) {
	data := []byte("abcdefghij")
	backend := NewMemBackend(data)
	win := NewWindow(backend, 2, 4) // "cdef"

	buf := make([]byte, 10)
	n, err := win.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "cdef", string(buf[:n]))
	assert.True(t, win.Empty())

	n, err = win.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWindowSkipClamps(t *testing.T) {
	backend := NewMemBackend(make([]byte, 16))
	win := NewWindow(backend, 0, 8)

	skipped := win.Skip(20)
	assert.Equal(t, int64(8), skipped)
	assert.True(t, win.Empty())
}
