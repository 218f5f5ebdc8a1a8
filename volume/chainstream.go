package volume

import (
	"io"

	"github.com/mdbox/fatfs/block"
	"github.com/mdbox/fatfs/fat"
	fatErrors "github.com/mdbox/fatfs/errors"
)

// ChainStream sequentially reads or writes a cluster chain one cluster
// window at a time, re-homing at cluster boundaries and, when writing,
// extending the chain by allocation past its current end. Grounded on
// original_source/fat-bits/src/iter.rs's ClusterChainReader/
// ClusterChainWriter, since the teacher's own ClusterStream only moves
// whole clusters at a time and has no notion of following a FAT chain.
type ChainStream struct {
	vol      *Volume
	cur      fat.Cluster
	window   *block.Window
	writable bool
}

func newChainStream(v *Volume, first fat.Cluster, writable bool) *ChainStream {
	cs := &ChainStream{vol: v, cur: first, writable: writable}
	cs.homeWindow()
	return cs
}

func (cs *ChainStream) homeWindow() {
	win := cs.vol.ClusterWindow(cs.cur)
	cs.window = &win
}

// moveToNextCluster advances the stream to the next cluster in the chain.
// When writable, it allocates a new cluster and links it if the chain
// ends here; when read-only, io.EOF signals the caller has exhausted the
// chain (iter.rs's move_to_next_cluster, generalized with the
// allocate-on-write-past-end rule from spec section 4.4).
func (cs *ChainStream) moveToNextCluster() error {
	next, err := cs.vol.Table.GetNext(cs.cur)
	if err != nil {
		return err
	}
	if next == 0 {
		if !cs.writable {
			return io.EOF
		}
		allocated, err := cs.vol.Table.Allocate()
		if err != nil {
			return err
		}
		if err := cs.vol.Table.SetNext(cs.cur, allocated); err != nil {
			return err
		}
		next = allocated
	}
	cs.cur = next
	cs.homeWindow()
	return nil
}

// Read implements io.Reader, crossing cluster boundaries transparently.
func (cs *ChainStream) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if cs.window.Empty() {
			if err := cs.moveToNextCluster(); err != nil {
				if err == io.EOF && total > 0 {
					return total, nil
				}
				return total, err
			}
		}
		n, err := cs.window.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			if err := cs.moveToNextCluster(); err != nil {
				if err == io.EOF {
					return total, io.EOF
				}
				return total, err
			}
		}
	}
	return total, nil
}

// Write implements io.Writer, allocating new clusters past the current
// end of the chain as needed (spec section 4.4).
func (cs *ChainStream) Write(p []byte) (int, error) {
	if !cs.writable {
		return 0, fatErrors.ErrInvalidArgument.WithMessage("stream opened read-only")
	}
	total := 0
	for total < len(p) {
		if cs.window.Empty() {
			if err := cs.moveToNextCluster(); err != nil {
				return total, err
			}
		}
		n, err := cs.window.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			if err := cs.moveToNextCluster(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// Skip advances the stream by n bytes without transferring data, crossing
// cluster boundaries as needed, and returns the number of bytes actually
// skipped (fewer than n only at end-of-chain on a read-only stream).
func (cs *ChainStream) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		if cs.window.Empty() {
			if err := cs.moveToNextCluster(); err != nil {
				if err == io.EOF {
					return skipped, nil
				}
				return skipped, err
			}
		}
		s := cs.window.Skip(n - skipped)
		skipped += s
		if s == 0 {
			if err := cs.moveToNextCluster(); err != nil {
				if err == io.EOF {
					return skipped, nil
				}
				return skipped, err
			}
		}
	}
	return skipped, nil
}

// CurrentCluster returns the cluster the stream is currently positioned
// in, for callers that need to record a resume point (e.g. a directory
// entry's FirstCluster on creation).
func (cs *ChainStream) CurrentCluster() fat.Cluster {
	return cs.cur
}

// Offset returns the absolute backend offset the stream is currently
// positioned at, satisfying dirent.Reader.
func (cs *ChainStream) Offset() int64 {
	return cs.window.Offset()
}
