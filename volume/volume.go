// Package volume composes the block, bpb, and fat layers into the unit a
// caller mounts: geometry-aware cluster addressing, the root directory
// window, and cluster-chain stream construction (spec section 4.4).
// Cluster addressing is grounded on the teacher's
// drivers/common/clusterio.go ClusterStream, generalized from whole-cluster
// block counts to the byte-granular windows spec section 4.1 requires.
package volume

import (
	"github.com/mdbox/fatfs/block"
	"github.com/mdbox/fatfs/bpb"
	"github.com/mdbox/fatfs/fat"
	fatErrors "github.com/mdbox/fatfs/errors"
)

// Volume is an open FAT filesystem: a backend, its parsed boot sector, and
// its loaded FAT table.
type Volume struct {
	Backend  block.Backend
	Geometry *bpb.BPB
	Table    *fat.Table
}

// Open reads and validates the boot sector from backend, loads the FAT
// table, and returns a ready-to-use Volume (spec section 4.2, 4.3).
func Open(backend block.Backend) (*Volume, error) {
	sector := make([]byte, 512)
	if _, err := backend.ReadAt(sector, 0); err != nil {
		return nil, fatErrors.ErrIO.WrapError(err)
	}

	geometry, err := bpb.Load(sector)
	if err != nil {
		return nil, err
	}

	freeHint := uint32(2)
	if geometry.Variant == bpb.FAT32 && geometry.Ext32 != nil && geometry.Ext32.FSInfoSector != 0 {
		fsInfoOffset := int64(geometry.Ext32.FSInfoSector) * int64(geometry.BytesPerSector)
		fsInfoSector := make([]byte, 512)
		if _, err := backend.ReadAt(fsInfoSector, fsInfoOffset); err == nil {
			if info, err := LoadFSInfo(fsInfoSector); err == nil && info.NextFree >= 2 {
				freeHint = info.NextFree
			}
		}
	}

	table, err := fat.Load(backend, geometry, freeHint)
	if err != nil {
		return nil, err
	}

	return &Volume{Backend: backend, Geometry: geometry, Table: table}, nil
}

// ClusterWindow returns a transient view over cluster c's bytes (spec
// section 9, "Cluster-window lifetime").
func (v *Volume) ClusterWindow(c fat.Cluster) block.Window {
	off := v.Geometry.DataClusterOffset(c)
	return block.NewWindow(v.Backend, int64(off), int64(v.Geometry.BytesPerCluster))
}

// RootDirWindow returns the fixed root-directory region for FAT12/16, or
// an error for FAT32 (where the root directory is an ordinary cluster
// chain starting at Geometry.Ext32.RootCluster; use RootDirChain instead).
func (v *Volume) RootDirWindow() (block.Window, error) {
	if v.Geometry.Variant == bpb.FAT32 {
		return block.Window{}, fatErrors.ErrInvalidArgument.WithMessage(
			"FAT32 has no fixed root directory region; use RootDirChain")
	}
	off := *v.Geometry.RootDirOffset
	length := int64(v.Geometry.RootDirSectors) * int64(v.Geometry.BytesPerSector)
	return block.NewWindow(v.Backend, int64(off), length), nil
}

// RootDirChain returns the cluster chain backing the root directory on
// FAT32 volumes.
func (v *Volume) RootDirChain() ([]fat.Cluster, error) {
	if v.Geometry.Variant != bpb.FAT32 {
		return nil, fatErrors.ErrInvalidArgument.WithMessage(
			"only FAT32 has a chained root directory")
	}
	return v.Table.Chain(v.Geometry.Ext32.RootCluster)
}

// NewChainReader returns a sequential reader over the cluster chain
// starting at the given first cluster.
func (v *Volume) NewChainReader(first fat.Cluster) *ChainStream {
	return newChainStream(v, first, false)
}

// NewChainWriter returns a sequential writer over the cluster chain
// starting at the given first cluster, extending the chain by allocating
// new clusters as needed (spec section 4.4).
func (v *Volume) NewChainWriter(first fat.Cluster) *ChainStream {
	return newChainStream(v, first, true)
}

// Flush writes the in-memory FAT back to every on-disk copy.
func (v *Volume) Flush() error {
	return v.Table.WriteBack(v.Backend, v.Geometry)
}
