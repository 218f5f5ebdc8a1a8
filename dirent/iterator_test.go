package dirent

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader is a minimal Reader (io.Reader + Offset) backed by an
// in-memory byte slice, used to drive the iterator without a block.Window.
type fakeReader struct {
	data []byte
	pos  int64
}

func (f *fakeReader) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *fakeReader) Offset() int64 { return f.pos }

func buildShortRecord(name, ext string, attr uint8) []byte {
	raw := make([]byte, RecordSize)
	copy(raw[0:8], name)
	copy(raw[8:11], ext)
	raw[11] = attr
	return raw
}

// TestIteratorSkipsDeletedSlot matches spec section 4.6's boundary
// scenario exactly: three slots [deleted, valid, sentinel] must emit
// exactly one entry, the live one.
func TestIteratorSkipsDeletedSlot(t *testing.T) {
	deleted := buildShortRecord("FOO     ", "BAR", AttrArchive)
	deleted[0] = deletedMarker

	live := buildShortRecord("BAZ     ", "TXT", AttrArchive)

	sentinel := make([]byte, RecordSize) // all zero: freeMarker terminator

	data := append(append(deleted, live...), sentinel...)
	r := &fakeReader{data: data}

	it := NewIterator(r, nil)
	entries, err := it.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BAZ.TXT", entries[0].ShortName())
	assert.False(t, entries[0].IsDeleted())
}

func TestIteratorStopsAtFreeSlot(t *testing.T) {
	live := buildShortRecord("ONE     ", "TXT", AttrArchive)
	sentinel := make([]byte, RecordSize)
	trailingGarbage := buildShortRecord("TWO     ", "TXT", AttrArchive)

	data := append(append(live, sentinel...), trailingGarbage...)
	r := &fakeReader{data: data}

	it := NewIterator(r, nil)
	entries, err := it.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ONE.TXT", entries[0].ShortName())
}
