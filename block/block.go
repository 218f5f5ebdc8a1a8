// Package block implements the lowest layer of the FAT engine: a
// positioned-read/positioned-write byte store backing a volume (spec
// section 4.1). It is the sole point of I/O; every higher layer reaches
// the disk only through a Backend.
package block

import (
	"fmt"
	"io"
	"os"

	"github.com/xaionaro-go/bytesextra"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// Backend is a random-access byte store with positioned read and positioned
// write of arbitrary byte ranges. Implementations must fail with
// errors.ErrOutOfBounds when an access would exceed the backing length.
type Backend interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes len(p) bytes starting at offset off.
	WriteAt(p []byte, off int64) (int, error)
	// Len returns the total size of the backing store, in bytes.
	Len() int64
}

// checkBounds returns errors.ErrOutOfBounds wrapped with a descriptive
// message if [off, off+length) doesn't fit inside [0, size).
func checkBounds(off int64, length int, size int64) error {
	if off < 0 || length < 0 {
		return fatErrors.ErrOutOfBounds.WithMessage(
			fmt.Sprintf("negative offset %d or length %d", off, length))
	}
	if off+int64(length) > size {
		return fatErrors.ErrOutOfBounds.WithMessage(
			fmt.Sprintf("range [%d, %d) exceeds backing length %d", off, off+int64(length), size))
	}
	return nil
}

// FileBackend is a Backend backed by an *os.File, grounded on the teacher's
// drivers/common.BlockStream but operating at byte, not block, granularity
// since the spec requires arbitrary byte-range access.
type FileBackend struct {
	f    *os.File
	size int64
}

// OpenFileBackend opens path for reading and writing and wraps it as a
// Backend.
func OpenFileBackend(path string) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fatErrors.ErrIO.WrapError(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fatErrors.ErrIO.WrapError(err)
	}
	return &FileBackend{f: f, size: info.Size()}, nil
}

func (b *FileBackend) ReadAt(p []byte, off int64) (int, error) {
	if err := checkBounds(off, len(p), b.size); err != nil {
		return 0, err
	}
	return b.f.ReadAt(p, off)
}

func (b *FileBackend) WriteAt(p []byte, off int64) (int, error) {
	if err := checkBounds(off, len(p), b.size); err != nil {
		return 0, err
	}
	return b.f.WriteAt(p, off)
}

func (b *FileBackend) Len() int64 { return b.size }

// Close releases the underlying file handle.
func (b *FileBackend) Close() error { return b.f.Close() }

// MemBackend is a Backend over an in-memory byte slice, grounded on the
// teacher's testing/images.go helper which wraps a []byte with
// bytesextra.NewReadWriteSeeker for use as disk-image fixtures in tests.
type MemBackend struct {
	rws  io.ReadWriteSeeker
	size int64
}

// NewMemBackend wraps data (not copied) as a Backend.
func NewMemBackend(data []byte) *MemBackend {
	return &MemBackend{
		rws:  bytesextra.NewReadWriteSeeker(data),
		size: int64(len(data)),
	}
}

func (b *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	if err := checkBounds(off, len(p), b.size); err != nil {
		return 0, err
	}
	if _, err := b.rws.Seek(off, io.SeekStart); err != nil {
		return 0, fatErrors.ErrIO.WrapError(err)
	}
	return io.ReadFull(b.rws, p)
}

func (b *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	if err := checkBounds(off, len(p), b.size); err != nil {
		return 0, err
	}
	if _, err := b.rws.Seek(off, io.SeekStart); err != nil {
		return 0, fatErrors.ErrIO.WrapError(err)
	}
	return b.rws.Write(p)
}

func (b *MemBackend) Len() int64 { return b.size }

// Window is a transient byte-range view into a Backend: an offset and a
// remaining length, with a current read/write position. Windows carry no
// buffer of their own (spec section 9, "Cluster-window lifetime"); streams
// re-materialize them at cluster boundaries.
type Window struct {
	backend Backend
	base    int64
	length  int64
	pos     int64
}

// NewWindow creates a Window over backend starting at offset base and
// spanning length bytes.
func NewWindow(backend Backend, base int64, length int64) Window {
	return Window{backend: backend, base: base, length: length}
}

// Len returns the number of unread/unwritten bytes remaining in the window.
func (w *Window) Len() int64 {
	remaining := w.length - w.pos
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Empty reports whether the window has been fully consumed.
func (w *Window) Empty() bool { return w.Len() == 0 }

// Offset returns the absolute backend offset the window currently points
// at.
func (w *Window) Offset() int64 { return w.base + w.pos }

// Read copies from the window into p, advancing its position. It never
// crosses into the next cluster; callers that need more must ask the owning
// stream to re-home to a new window.
func (w *Window) Read(p []byte) (int, error) {
	n := int64(len(p))
	if remaining := w.Len(); n > remaining {
		n = remaining
	}
	if n <= 0 {
		return 0, nil
	}
	read, err := w.backend.ReadAt(p[:n], w.Offset())
	w.pos += int64(read)
	if err != nil {
		return read, fatErrors.ErrIO.WrapError(err)
	}
	return read, nil
}

// Write copies from p into the window, advancing its position. It never
// crosses into the next cluster.
func (w *Window) Write(p []byte) (int, error) {
	n := int64(len(p))
	if remaining := w.Len(); n > remaining {
		n = remaining
	}
	if n <= 0 {
		return 0, nil
	}
	written, err := w.backend.WriteAt(p[:n], w.Offset())
	w.pos += int64(written)
	if err != nil {
		return written, fatErrors.ErrIO.WrapError(err)
	}
	return written, nil
}

// Skip advances the window's position by n bytes without transferring
// data, clamped to the window's remaining length. It returns the number of
// bytes actually skipped.
func (w *Window) Skip(n int64) int64 {
	remaining := w.Len()
	if n > remaining {
		n = remaining
	}
	if n < 0 {
		n = 0
	}
	w.pos += n
	return n
}
