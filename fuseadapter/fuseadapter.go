// Package fuseadapter exposes a read-only volume.Volume as a FUSE
// filesystem (spec section 6.4, a collaborator interface). The teacher
// repo has no FUSE layer at all, so this package is enrichment from the
// rest of the pack, grounded on ostafen-digler/internal/fuse/fuse.go's
// Dir/File node shape.
package fuseadapter

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/mdbox/fatfs/bpb"
	"github.com/mdbox/fatfs/dirent"
	"github.com/mdbox/fatfs/logger"
	"github.com/mdbox/fatfs/volume"
)

// FS implements fs.FS over a single read-only volume.Volume.
type FS struct {
	vol *volume.Volume
	log *logger.Logger
}

// New wraps vol for mounting. If log is nil, directory corruption
// encountered while browsing is silently skipped.
func New(vol *volume.Volume, log *logger.Logger) *FS {
	return &FS{vol: vol, log: log}
}

func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f, isRoot: true}, nil
}

// Dir is a directory node: either the volume's root or an ordinary
// subdirectory addressed by its first cluster.
type Dir struct {
	fs           *FS
	isRoot       bool
	firstCluster uint32
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *Dir) entries() ([]dirent.DirEntry, error) {
	reader, err := d.reader()
	if err != nil {
		return nil, err
	}
	it := dirent.NewIterator(reader, loggerAdapter{d.fs.log})
	return it.All()
}

func (d *Dir) reader() (dirent.Reader, error) {
	if d.isRoot && d.fs.vol.Geometry.Variant != bpb.FAT32 {
		win, err := d.fs.vol.RootDirWindow()
		if err != nil {
			return nil, err
		}
		return &win, nil
	}
	cluster := d.firstCluster
	if d.isRoot {
		cluster = d.fs.vol.Geometry.Ext32.RootCluster
	}
	return d.fs.vol.NewChainReader(cluster), nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	entries, err := d.entries()
	if err != nil {
		return nil, fuse.ENOENT
	}
	for _, e := range entries {
		if e.IsDeleted() || e.IsVolumeLabel() || e.IsDot() || e.IsDotDot() {
			continue
		}
		if e.Name() != name {
			continue
		}
		if e.IsDir() {
			return &Dir{fs: d.fs, firstCluster: e.FirstCluster}, nil
		}
		return &File{fs: d.fs, firstCluster: e.FirstCluster, size: uint64(e.Size)}, nil
	}
	return nil, fuse.ENOENT
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.entries()
	if err != nil {
		return nil, err
	}

	var out []fuse.Dirent
	for _, e := range entries {
		if e.IsDeleted() || e.IsVolumeLabel() || e.IsDot() || e.IsDotDot() {
			continue
		}
		typ := fuse.DT_File
		if e.IsDir() {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: e.Name(), Type: typ})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i].Inode = uint64(i + 1)
	}
	return out, nil
}

// File is a regular-file node, read lazily by replaying a chain reader
// from the start and skipping to the requested offset. This repo never
// serves writes through FUSE (spec section 6.4, 6.3: read-only by
// default), so there is no need for a persistent seek position.
type File struct {
	fs           *FS
	firstCluster uint32
	size         uint64
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.size
	a.Mtime = time.Now()
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	offset := req.Offset
	size := req.Size

	if offset >= int64(f.size) {
		resp.Data = []byte{}
		return nil
	}
	if offset+int64(size) > int64(f.size) {
		size = int(int64(f.size) - offset)
	}

	reader := f.fs.vol.NewChainReader(f.firstCluster)
	if _, err := reader.Skip(offset); err != nil {
		return fuse.EIO
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fuse.EIO
	}
	resp.Data = buf[:n]
	return nil
}

type loggerAdapter struct {
	l *logger.Logger
}

func (a loggerAdapter) Warnf(format string, args ...interface{}) {
	if a.l != nil {
		a.l.Warnf(format, args...)
	}
}
