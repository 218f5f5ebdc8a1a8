package fat

import (
	"testing"

	"github.com/boljen/go-bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbox/fatfs/bpb"
	fatErrors "github.com/mdbox/fatfs/errors"
)

func newTestTable(variant bpb.Variant, rawLen int, count uint32) *Table {
	bm := bitmap.New(int(count + 2))
	return &Table{
		variant:  variant,
		raw:      make([]byte, rawLen),
		count:    count,
		freeHint: 2,
		free:     &bm,
	}
}

// TestFAT12PackRoundTrip exercises the exact worked example from the FAT12
// spec: clusters [2]=0x123, [3]=0x456 pack to bytes 0x23, 0x61, 0x45.
func TestFAT12PackRoundTrip(t *testing.T) {
	tbl := newTestTable(bpb.FAT12, 16, 10)

	tbl.encode12(2, 0x123)
	tbl.encode12(3, 0x456)

	assert.Equal(t, byte(0x23), tbl.raw[3])
	assert.Equal(t, byte(0x61), tbl.raw[4])
	assert.Equal(t, byte(0x45), tbl.raw[5])

	assert.Equal(t, uint32(0x123), tbl.decode12(2))
	assert.Equal(t, uint32(0x456), tbl.decode12(3))
}

func TestFAT16NextClusterClassification(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)

	require.NoError(t, tbl.SetNext(2, 3))
	next, err := tbl.GetNext(2)
	require.NoError(t, err)
	assert.Equal(t, Cluster(3), next)

	require.NoError(t, tbl.SetEOF(3))
	next, err = tbl.GetNext(3)
	require.NoError(t, err)
	assert.Equal(t, Cluster(0), next)
}

func TestFAT16EOFMidBand(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)
	// 0xFFFE lies inside the reserved/EOF band, spec requires it be
	// treated as end-of-chain like 0xFFFF.
	require.NoError(t, tbl.SetEntry(4, 0xFFFE))
	next, err := tbl.GetNext(4)
	require.NoError(t, err)
	assert.Equal(t, Cluster(0), next)
}

func TestGetNextFreeCluster(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)
	_, err := tbl.GetNext(5)
	assert.ErrorIs(t, err, fatErrors.ErrFreeCluster)
}

func TestGetNextReservedCluster(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)
	require.NoError(t, tbl.SetEntry(5, 1))
	_, err := tbl.GetNext(5)
	assert.ErrorIs(t, err, fatErrors.ErrReservedCluster)
}

// TestGetNextRawBeyondVolumeMaxIsReserved exercises a raw value that sits
// above this volume's own max cluster (count=10 -> max=11) but below the
// FAT16 variant's generic reserved/EOF band (0xFFF8): it must classify as
// EntryReserved, not be accepted as a valid next-cluster pointer merely
// because it would fit in a larger FAT16 volume.
func TestGetNextRawBeyondVolumeMaxIsReserved(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10) // clusters 2..11
	require.NoError(t, tbl.SetEntry(5, 50))
	_, err := tbl.GetNext(5)
	assert.ErrorIs(t, err, fatErrors.ErrReservedCluster)
}

func TestGetNextDefectiveCluster(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)
	require.NoError(t, tbl.SetEntry(5, 0xFFF7))
	_, err := tbl.GetNext(5)
	assert.ErrorIs(t, err, fatErrors.ErrDefectiveCluster)
}

func TestAllocateSkipsUsedClusters(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 6) // clusters 2..7
	require.NoError(t, tbl.SetEOF(2))

	c, err := tbl.Allocate()
	require.NoError(t, err)
	assert.Equal(t, Cluster(3), c)
}

func TestAllocateNoSpace(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 2) // clusters 2..3
	for c := uint32(2); c < 4; c++ {
		require.NoError(t, tbl.SetEOF(c))
	}

	_, err := tbl.Allocate()
	assert.ErrorIs(t, err, fatErrors.ErrNoSpace)
}

func TestChainWalk(t *testing.T) {
	tbl := newTestTable(bpb.FAT16, 32, 10)
	require.NoError(t, tbl.SetNext(2, 3))
	require.NoError(t, tbl.SetNext(3, 4))
	require.NoError(t, tbl.SetEOF(4))

	clusters, err := tbl.Chain(2)
	require.NoError(t, err)
	assert.Equal(t, []Cluster{2, 3, 4}, clusters)
}
