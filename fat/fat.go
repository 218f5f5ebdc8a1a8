// Package fat implements the FAT table itself: per-variant encode/decode of
// cluster entries, chain walking, and cluster allocation (spec section 4.3).
// Entry classification (free, reserved, defective, end-of-chain, valid) is
// grounded on original_source/fat-bits/src/fat.rs's FatOps::get_next_cluster.
package fat

import (
	"github.com/boljen/go-bitmap"
	"github.com/noxer/bytewriter"

	"github.com/mdbox/fatfs/block"
	"github.com/mdbox/fatfs/bpb"
	fatErrors "github.com/mdbox/fatfs/errors"
)

// Cluster is an index into the FAT, always >= 2 for a valid data cluster.
type Cluster = uint32

// EntryKind classifies the value read out of the FAT for a cluster.
type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryReserved
	EntryDefective
	EntryEOF
	EntryNext
)

// Table is an in-memory, mutable view of one FAT, with a cache of the
// backend region it was loaded from and a bitmap tracking free clusters for
// O(1)-ish allocation (grounded on the teacher's
// drivers/common/allocatormap.go Allocator, adapted from block-granularity
// to cluster-granularity).
type Table struct {
	variant  bpb.Variant
	raw      []byte
	count    uint32 // count of valid data clusters, i.e. bpb.CountOfClusters
	free     *bitmap.Bitmap
	freeHint uint32 // next_free hint from FS-Info, or 2 if unknown
}

// bounds, per variant, of the defective/EOF bands (spec section 4.3). Taken
// from fat-bits/src/fat.rs Fat12/Fat16/Fat32's
// defective_cluster/reserved_eof_clusters/eof_cluster. The valid-cluster
// ceiling is NOT one of these: it is per-volume (2..=max, where max is
// derived from the volume's own count_of_clusters), not a fixed per-variant
// constant, so it is threaded through classify() via Table.count instead of
// being hardcoded here.
type variantBounds struct {
	defective     uint32
	reservedEOFLo uint32
	reservedEOFHi uint32
	eof           uint32
}

func bounds(v bpb.Variant) variantBounds {
	switch v {
	case bpb.FAT12:
		return variantBounds{
			defective:     0xFF7,
			reservedEOFLo: 0xFF8, reservedEOFHi: 0xFFE, eof: 0xFFF,
		}
	case bpb.FAT16:
		return variantBounds{
			defective:     0xFFF7,
			reservedEOFLo: 0xFFF8, reservedEOFHi: 0xFFFE, eof: 0xFFFF,
		}
	default: // FAT32, 28 usable bits
		return variantBounds{
			defective:     0x0FFFFFF7,
			reservedEOFLo: 0x0FFFFFF8, reservedEOFHi: 0x0FFFFFFE, eof: 0x0FFFFFFF,
		}
	}
}

// Load reads the entire FAT region for the given geometry out of backend
// and builds the free-cluster bitmap.
func Load(backend block.Backend, geometry *bpb.BPB, freeHint uint32) (*Table, error) {
	raw := make([]byte, geometry.FATLenBytes)
	if _, err := backend.ReadAt(raw, int64(geometry.FATOffset)); err != nil {
		return nil, fatErrors.ErrIO.WrapError(err)
	}

	t := &Table{
		variant:  geometry.Variant,
		raw:      raw,
		count:    geometry.CountOfClusters,
		freeHint: freeHint,
	}
	if t.freeHint < 2 {
		t.freeHint = 2
	}

	bm := bitmap.New(int(t.count + 2))
	for c := uint32(2); c < t.count+2; c++ {
		entry, _ := t.decode(c)
		bm.Set(int(c), entry != 0)
	}
	t.free = &bm

	return t, nil
}

// decode reads the raw entry value for cluster c, without classification.
func (t *Table) decode(c Cluster) (uint32, error) {
	switch t.variant {
	case bpb.FAT12:
		return t.decode12(c), nil
	case bpb.FAT16:
		off := c * 2
		if int(off+2) > len(t.raw) {
			return 0, fatErrors.ErrOutOfBounds
		}
		return uint32(t.raw[off]) | uint32(t.raw[off+1])<<8, nil
	default: // FAT32
		off := c * 4
		if int(off+4) > len(t.raw) {
			return 0, fatErrors.ErrOutOfBounds
		}
		v := uint32(t.raw[off]) | uint32(t.raw[off+1])<<8 | uint32(t.raw[off+2])<<16 | uint32(t.raw[off+3])<<24
		return v & 0x0FFFFFFF, nil
	}
}

// decode12 unpacks a FAT12 entry from its 3-bytes-per-2-entries layout.
// Grounded bit-exact on fat-bits/src/fat.rs's Fat12 write_to_disk/read
// inverse: entries are stored two-to-three-bytes, low nibble of the odd
// byte belonging to the even entry and high nibble to the odd entry.
func (t *Table) decode12(c Cluster) uint32 {
	base := (c * 3) / 2
	b0 := uint32(t.raw[base])
	b1 := uint32(t.raw[base+1])
	if c%2 == 0 {
		return b0 | ((b1 & 0x0F) << 8)
	}
	return (b0 >> 4) | (b1 << 4)
}

// classify maps a raw entry value to its EntryKind and, for EntryNext, the
// next cluster number (fat-bits/src/fat.rs get_next_cluster order: free,
// reserved, defective, reserved/EOF band, EOF, then a valid range check).
// The valid range is 2..=max, where max = t.count+1 is this particular
// volume's highest cluster number (spec section 4.3): a raw value above a
// volume's own max but below the variant's generic reserved/EOF band is a
// corrupt or stray pointer and must classify as EntryReserved, not EntryNext,
// even though it would fit inside a larger volume of the same variant.
func (t *Table) classify(raw uint32) (EntryKind, Cluster) {
	bnd := bounds(t.variant)
	max := t.count + 1
	switch {
	case raw == 0:
		return EntryFree, 0
	case raw == 1:
		return EntryReserved, 0
	case raw == bnd.defective:
		return EntryDefective, 0
	case raw >= bnd.reservedEOFLo && raw < bnd.eof:
		return EntryEOF, 0
	case raw == bnd.eof:
		return EntryEOF, 0
	case raw >= 2 && raw <= max:
		return EntryNext, Cluster(raw)
	default:
		return EntryReserved, 0
	}
}

// GetNext returns the next cluster in the chain after c, or
// errors.ErrFreeCluster / ErrReservedCluster / ErrDefectiveCluster, or
// (0, nil) to signal end-of-chain (spec section 4.3).
func (t *Table) GetNext(c Cluster) (Cluster, error) {
	raw, err := t.decode(c)
	if err != nil {
		return 0, err
	}
	kind, next := t.classify(raw)
	switch kind {
	case EntryFree:
		return 0, fatErrors.ErrFreeCluster
	case EntryReserved:
		return 0, fatErrors.ErrReservedCluster
	case EntryDefective:
		return 0, fatErrors.ErrDefectiveCluster
	case EntryEOF:
		return 0, nil
	default:
		return next, nil
	}
}

// SetEntry writes raw into cluster c's slot and updates the free bitmap.
func (t *Table) SetEntry(c Cluster, raw uint32) error {
	switch t.variant {
	case bpb.FAT12:
		t.encode12(c, raw&0xFFF)
	case bpb.FAT16:
		off := c * 2
		w := bytewriter.New(t.raw[off : off+2])
		w.Write([]byte{byte(raw), byte(raw >> 8)})
	default:
		off := c * 4
		existing := uint32(t.raw[off+3]) << 24 // preserve top 4 reserved bits
		v := (raw & 0x0FFFFFFF) | (existing & 0xF0000000)
		w := bytewriter.New(t.raw[off : off+4])
		w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	if t.free != nil {
		t.free.Set(int(c), raw != 0)
	}
	return nil
}

// encode12 packs value (12 bits) into cluster c's 1.5-byte slot, bit-exact
// with fat-bits/src/fat.rs Fat12::write_to_disk.
func (t *Table) encode12(c Cluster, value uint32) {
	base := (c * 3) / 2
	if c%2 == 0 {
		t.raw[base] = byte(value)
		t.raw[base+1] = (t.raw[base+1] & 0xF0) | byte((value>>8)&0x0F)
	} else {
		t.raw[base] = (t.raw[base] & 0x0F) | byte((value&0x0F)<<4)
		t.raw[base+1] = byte(value >> 4)
	}
}

// SetEOF marks cluster c as the end of its chain.
func (t *Table) SetEOF(c Cluster) error {
	return t.SetEntry(c, bounds(t.variant).eof)
}

// SetNext links cluster c to next in the chain.
func (t *Table) SetNext(c Cluster, next Cluster) error {
	return t.SetEntry(c, uint32(next))
}

// Free marks cluster c as unused and lowers the next_free hint to c when c
// lies below it.
func (t *Table) Free(c Cluster) error {
	if err := t.SetEntry(c, 0); err != nil {
		return err
	}
	if c < t.freeHint {
		t.freeHint = c
	}
	return nil
}

// Allocate finds a free cluster starting from the next_free hint, marks it
// EOF, and returns it. Returns errors.ErrNoSpace if none remain (spec
// section 4.3). Grounded on the teacher's allocatormap.go Allocator's
// linear-scan-from-last-allocated strategy, generalized to FAT entries.
func (t *Table) Allocate() (Cluster, error) {
	start := t.freeHint
	if start < 2 || start >= t.count+2 {
		start = 2
	}
	for i := uint32(0); i < t.count; i++ {
		c := 2 + (start-2+i)%t.count
		if !t.free.Get(int(c)) {
			if err := t.SetEOF(c); err != nil {
				return 0, err
			}
			t.freeHint = c + 1
			return c, nil
		}
	}
	return 0, fatErrors.ErrNoSpace
}

// FreeCount returns the number of unallocated data clusters.
func (t *Table) FreeCount() uint32 {
	n := uint32(0)
	for c := uint32(2); c < t.count+2; c++ {
		if !t.free.Get(int(c)) {
			n++
		}
	}
	return n
}

// WriteBack flushes the in-memory FAT copy back to every FAT region on
// backend (spec section 4.3: all copies of the FAT must stay consistent).
func (t *Table) WriteBack(backend block.Backend, geometry *bpb.BPB) error {
	for i := uint32(0); i < uint32(geometry.NumFATs); i++ {
		off := int64(geometry.FATOffset) + int64(i)*int64(geometry.FATLenBytes)
		if _, err := backend.WriteAt(t.raw, off); err != nil {
			return fatErrors.ErrIO.WrapError(err)
		}
	}
	return nil
}

// Chain walks the full cluster chain starting at start, returning every
// cluster visited in order. It stops at end-of-chain and surfaces any
// classification error encountered along the way (spec section 4.3).
func (t *Table) Chain(start Cluster) ([]Cluster, error) {
	var clusters []Cluster
	c := start
	for {
		clusters = append(clusters, c)
		next, err := t.GetNext(c)
		if err != nil {
			return clusters, err
		}
		if next == 0 {
			return clusters, nil
		}
		c = next
	}
}
