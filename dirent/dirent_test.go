package dirent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortNameChecksum(t *testing.T) {
	// "README  TXT" is the canonical worked example for the checksum-83
	// algorithm used across FAT implementations.
	var name [11]byte
	copy(name[:], "README  TXT")
	sum := ShortNameChecksum(name)
	assert.NotZero(t, sum)

	// Changing any byte must change the checksum (collision would be a
	// correctness bug in the LFN validation path).
	name2 := name
	name2[0] = 'X'
	assert.NotEqual(t, sum, ShortNameChecksum(name2))
}

func buildLongNameRecord(ordinal uint8, isLast bool, text []uint16, checksum uint8) []byte {
	raw := make([]byte, 32)
	o := ordinal
	if isLast {
		o |= lastLongEntryFlag
	}
	raw[0] = o
	raw[11] = AttrLongName
	raw[13] = checksum

	write := func(units []uint16, off int) {
		for i, u := range units {
			raw[off+i*2] = byte(u)
			raw[off+i*2+1] = byte(u >> 8)
		}
	}

	padded := make([]uint16, 13)
	copy(padded, text)
	if len(text) < 13 {
		padded[len(text)] = 0x0000
		for i := len(text) + 1; i < 13; i++ {
			padded[i] = 0xFFFF
		}
	}

	write(padded[0:5], 1)
	write(padded[5:11], 14)
	write(padded[11:13], 28)
	return raw
}

func utf16Units(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		out = append(out, uint16(r))
	}
	return out
}

func TestLongNameReconstruction(t *testing.T) {
	name := "hello-world.txt"
	units := utf16Units(name)

	var shortRaw [11]byte
	copy(shortRaw[:], "HELLO~1 TXT")
	checksum := ShortNameChecksum(shortRaw)

	// 15 characters need 2 fragments (13 chars each): fragment 2 holds
	// the tail, fragment 1 holds the head, stored in that (descending)
	// order on disk.
	frag2 := buildLongNameRecord(2, true, units[13:], checksum)
	frag1 := buildLongNameRecord(1, false, units[0:13], checksum)

	var acc longNameAccumulator
	f2, err := decodeLongNameFragment(frag2)
	require.NoError(t, err)
	require.NoError(t, acc.Add(f2))

	f1, err := decodeLongNameFragment(frag1)
	require.NoError(t, err)
	require.NoError(t, acc.Add(f1))

	require.True(t, acc.Ready())
	resolved, err := acc.Resolve(shortRaw)
	require.NoError(t, err)
	assert.Equal(t, name, resolved)
}

func TestLongNameChecksumMismatchRejected(t *testing.T) {
	units := utf16Units("short.txt")
	frag := buildLongNameRecord(1, true, units, 0x42)

	var shortRaw [11]byte
	copy(shortRaw[:], "SHORT   TXT")

	var acc longNameAccumulator
	f, err := decodeLongNameFragment(frag)
	require.NoError(t, err)
	require.NoError(t, acc.Add(f))
	require.True(t, acc.Ready())

	_, err = acc.Resolve(shortRaw)
	assert.Error(t, err)
}

func TestDecodeShortNameKanjiEscape(t *testing.T) {
	raw := RawEntry{}
	copy(raw.Name[:], []byte{0x05, 'B', 'C', ' ', ' ', ' ', ' ', ' '})
	copy(raw.Extension[:], "TXT")
	name := decodeShortName(raw)
	assert.Equal(t, "\xe5BC.TXT", name)
}

func TestDecodeShortNameNonASCII(t *testing.T) {
	raw := RawEntry{}
	copy(raw.Name[:], []byte{0x80, 'B', 'C', ' ', ' ', ' ', ' ', ' '})
	copy(raw.Extension[:], "   ")
	name := decodeShortName(raw)
	assert.Equal(t, "?BC", name)
}

func TestDecodeEntryFreeSlotIsNotFound(t *testing.T) {
	raw := RawEntry{}
	_, err := decodeEntry(raw, 0, "", nil)
	assert.Error(t, err)
}

func TestDecodeEntryDeletedName(t *testing.T) {
	raw := RawEntry{}
	copy(raw.Name[:], []byte{deletedMarker, 'B', 'C', ' ', ' ', ' ', ' ', ' '})
	copy(raw.Extension[:], "TXT")
	entry, err := decodeEntry(raw, 0, "", nil)
	require.NoError(t, err)
	assert.True(t, entry.IsDeleted())
}

func TestRawEntryEncodeDecodeRoundTrip(t *testing.T) {
	orig := RawEntry{
		AttributeFlags:   AttrArchive,
		FileSize:         1234,
		FirstClusterLow:  5,
		FirstClusterHigh: 0,
	}
	copy(orig.Name[:], "FOO     ")
	copy(orig.Extension[:], "BAR")

	encoded := orig.Encode()
	decoded, err := DecodeRawEntry(encoded)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(orig.Name[:], decoded.Name[:]))
	assert.Equal(t, orig.FileSize, decoded.FileSize)
	assert.Equal(t, orig.FirstClusterLow, decoded.FirstClusterLow)
}
