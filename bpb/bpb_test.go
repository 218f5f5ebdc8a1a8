package bpb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// buildFAT12Sector builds a standard 1.44 MB floppy boot sector: 512
// bytes/sector, 1 sector/cluster, 1 reserved sector, 2 FATs, 224 root
// entries, 2880 total sectors, 9 sectors/FAT -> 2847 clusters (FAT12).
func buildFAT12Sector() []byte {
	s := make([]byte, 512)
	binary.LittleEndian.PutUint16(s[11:13], 512)
	s[13] = 1
	binary.LittleEndian.PutUint16(s[14:16], 1)
	s[16] = 2
	binary.LittleEndian.PutUint16(s[17:19], 224)
	binary.LittleEndian.PutUint16(s[19:21], 2880)
	s[21] = 0xF0
	binary.LittleEndian.PutUint16(s[22:24], 9)
	s[38] = 0x29
	s[510] = 0x55
	s[511] = 0xAA
	return s
}

func TestLoadFAT12(t *testing.T) {
	sector := buildFAT12Sector()
	b, err := Load(sector)
	require.NoError(t, err)
	assert.Equal(t, FAT12, b.Variant)
	assert.Equal(t, uint32(2847), b.CountOfClusters)
	assert.Equal(t, uint32(14), b.RootDirSectors)
	assert.Equal(t, uint32(33), b.FirstDataSector)
}

func TestLoadBadSignature(t *testing.T) {
	sector := buildFAT12Sector()
	sector[511] = 0x00
	_, err := Load(sector)
	assert.ErrorIs(t, err, fatErrors.ErrBadSignature)
}

func TestLoadBadBytesPerSector(t *testing.T) {
	sector := buildFAT12Sector()
	binary.LittleEndian.PutUint16(sector[11:13], 600)
	_, err := Load(sector)
	assert.Error(t, err)
}

func TestLoadZeroReservedSectors(t *testing.T) {
	sector := buildFAT12Sector()
	binary.LittleEndian.PutUint16(sector[14:16], 0)
	_, err := Load(sector)
	assert.Error(t, err)
}

func TestDetermineVariantThresholds(t *testing.T) {
	assert.Equal(t, FAT12, DetermineVariant(4084))
	assert.Equal(t, FAT16, DetermineVariant(4085))
	assert.Equal(t, FAT16, DetermineVariant(65524))
	assert.Equal(t, FAT32, DetermineVariant(65525))
}

func TestDataClusterOffset(t *testing.T) {
	sector := buildFAT12Sector()
	b, err := Load(sector)
	require.NoError(t, err)

	off := b.DataClusterOffset(2)
	assert.Equal(t, b.DataOffset, off)

	off3 := b.DataClusterOffset(3)
	assert.Equal(t, b.DataOffset+uint64(b.BytesPerCluster), off3)
}
