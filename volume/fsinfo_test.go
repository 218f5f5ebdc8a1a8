package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSInfoEncodeDecodeRoundTrip(t *testing.T) {
	info := &FSInfo{FreeCount: 1000, NextFree: 42}
	sector := info.Encode()

	decoded, err := LoadFSInfo(sector)
	require.NoError(t, err)
	assert.Equal(t, info.FreeCount, decoded.FreeCount)
	assert.Equal(t, info.NextFree, decoded.NextFree)
}

func TestFSInfoRejectsBadSignature(t *testing.T) {
	info := &FSInfo{FreeCount: 1, NextFree: 2}
	sector := info.Encode()
	sector[0] = 0x00

	_, err := LoadFSInfo(sector)
	assert.Error(t, err)
}
