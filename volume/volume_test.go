package volume

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbox/fatfs/block"
)

// buildTinyFAT12Image builds a minimal, internally consistent FAT12 image:
// 512 B/sector, 1 sector/cluster, 1 reserved sector, 1 FAT, 16 root
// entries, 40 total sectors -> 37 data clusters (well under the FAT12
// ceiling of 4085, per spec section 3).
func buildTinyFAT12Image(t *testing.T) []byte {
	t.Helper()
	img := make([]byte, 40*512)

	binary.LittleEndian.PutUint16(img[11:13], 512)
	img[13] = 1
	binary.LittleEndian.PutUint16(img[14:16], 1)
	img[16] = 1
	binary.LittleEndian.PutUint16(img[17:19], 16)
	binary.LittleEndian.PutUint16(img[19:21], 40)
	img[21] = 0xF0
	binary.LittleEndian.PutUint16(img[22:24], 1)
	img[38] = 0x29
	img[510] = 0x55
	img[511] = 0xAA

	return img
}

func TestOpenTinyFAT12Volume(t *testing.T) {
	img := buildTinyFAT12Image(t)
	backend := block.NewMemBackend(img)

	vol, err := Open(backend)
	require.NoError(t, err)
	assert.Equal(t, uint32(37), vol.Geometry.CountOfClusters)
	assert.Equal(t, uint32(37), vol.Table.FreeCount())
}

func TestChainWriterAllocatesAndExtendsChain(t *testing.T) {
	img := buildTinyFAT12Image(t)
	backend := block.NewMemBackend(img)

	vol, err := Open(backend)
	require.NoError(t, err)

	first, err := vol.Table.Allocate()
	require.NoError(t, err)

	payload := make([]byte, 512*3+100) // spans 4 clusters
	for i := range payload {
		payload[i] = byte(i)
	}

	w := vol.NewChainWriter(first)
	n, err := w.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	require.NoError(t, vol.Flush())

	chain, err := vol.Table.Chain(first)
	require.NoError(t, err)
	assert.Len(t, chain, 4)

	r := vol.NewChainReader(first)
	readBack := make([]byte, len(payload))
	_, err = io.ReadFull(r, readBack)
	require.NoError(t, err)
	assert.Equal(t, payload, readBack)
}

func TestChainReaderSkip(t *testing.T) {
	img := buildTinyFAT12Image(t)
	backend := block.NewMemBackend(img)

	vol, err := Open(backend)
	require.NoError(t, err)

	first, err := vol.Table.Allocate()
	require.NoError(t, err)

	payload := make([]byte, 512*2)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	w := vol.NewChainWriter(first)
	_, err = w.Write(payload)
	require.NoError(t, err)

	r := vol.NewChainReader(first)
	skipped, err := r.Skip(600)
	require.NoError(t, err)
	assert.Equal(t, int64(600), skipped)

	buf := make([]byte, 4)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, payload[600:604], buf)
}
