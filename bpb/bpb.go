// Package bpb parses and validates the 512-byte FAT boot sector, computes
// derived geometry, and auto-detects the FAT variant from cluster count
// (spec section 4.2). Field offsets follow the public FAT specification and
// spec section 6.1.
package bpb

import (
	"encoding/binary"
	"fmt"
	"strings"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// Variant identifies which of the three FAT flavors a volume uses.
type Variant int

const (
	FAT12 Variant = 12
	FAT16 Variant = 16
	FAT32 Variant = 32
)

func (v Variant) String() string {
	switch v {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "FAT?"
	}
}

// DetermineVariant classifies a volume purely from its cluster count, per
// spec section 3: this classification overrides any self-claim on disk.
// Taken directly from Microsoft's FAT documentation, v1.03, page 14 (as the
// teacher's file_systems/fat/common.go DetermineFATVersion also notes).
func DetermineVariant(countOfClusters uint32) Variant {
	if countOfClusters < 4085 {
		return FAT12
	}
	if countOfClusters < 65525 {
		return FAT16
	}
	return FAT32
}

// ExtBpb12_16 is the FAT12/FAT16 extended BPB at offset 36..62.
type ExtBpb12_16 struct {
	DriveNumber        uint8
	BootSig            uint8
	VolumeSerialNumber uint32
	VolumeLabel        [11]byte
	FileSysType        [8]byte
}

// ExtBpb32 is the FAT32 extended BPB at offset 36..90.
type ExtBpb32 struct {
	FATSize32         uint32
	ExtFlags          uint16
	FSVersion         uint16
	RootCluster       uint32
	FSInfoSector      uint16
	BackupBootSector  uint16
	DriveNumber       uint8
	BootSig           uint8
	VolumeSerial      uint32
	VolumeLabel       [11]byte
	FileSysType       [8]byte
}

// BPB is a fully parsed and cross-validated boot sector, with the derived
// geometry of spec section 4.2 cached on load.
type BPB struct {
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32

	Variant  Variant
	Ext1216  *ExtBpb12_16
	Ext32    *ExtBpb32

	// Derived geometry, computed once and cached (spec section 4.2).
	FATOffset       uint64
	FATLenBytes     uint64
	RootDirSectors  uint32
	RootDirOffset   *uint64 // present only for FAT12/16
	FirstDataSector uint32
	DataOffset      uint64
	BytesPerCluster uint32
	CountOfClusters uint32
	TotalSectors    uint32
	FATSize         uint32
}

// Load parses and validates the first 512 bytes of a volume, returning a
// descriptive error naming the first failed check on any violation (spec
// section 4.2).
func Load(sector []byte) (*BPB, error) {
	if len(sector) < 512 {
		return nil, fatErrors.ErrBadGeometry.WithMessage(
			fmt.Sprintf("boot sector must be at least 512 bytes, got %d", len(sector)))
	}

	b := &BPB{}
	copy(b.OEMName[:], sector[3:11])
	b.BytesPerSector = binary.LittleEndian.Uint16(sector[11:13])
	b.SectorsPerCluster = sector[13]
	b.ReservedSectors = binary.LittleEndian.Uint16(sector[14:16])
	b.NumFATs = sector[16]
	b.RootEntryCount = binary.LittleEndian.Uint16(sector[17:19])
	b.TotalSectors16 = binary.LittleEndian.Uint16(sector[19:21])
	b.Media = sector[21]
	b.FATSize16 = binary.LittleEndian.Uint16(sector[22:24])
	b.SectorsPerTrack = binary.LittleEndian.Uint16(sector[24:26])
	b.NumHeads = binary.LittleEndian.Uint16(sector[26:28])
	b.HiddenSectors = binary.LittleEndian.Uint32(sector[28:32])
	b.TotalSectors32 = binary.LittleEndian.Uint32(sector[32:36])

	if err := validateBytesPerSector(b.BytesPerSector); err != nil {
		return nil, err
	}
	if err := validateSectorsPerCluster(b.SectorsPerCluster); err != nil {
		return nil, err
	}
	if b.ReservedSectors == 0 {
		return nil, fatErrors.ErrBadGeometry.WithMessage("reserved sector count must be nonzero")
	}
	if err := validateMedia(b.Media); err != nil {
		return nil, err
	}
	if sector[510] != 0x55 || sector[511] != 0xAA {
		return nil, fatErrors.ErrBadSignature
	}

	// FAT32 is signaled by fat_size_16 == 0 (spec section 3).
	isFAT32Shaped := b.FATSize16 == 0
	if isFAT32Shaped {
		if b.TotalSectors16 != 0 {
			return nil, fatErrors.ErrVariantMismatch.WithMessage(
				"fat_size_16 is 0 but total_sectors_16 is nonzero")
		}
		ext := loadExtBpb32(sector)
		if ext.FSVersion != 0 {
			return nil, fatErrors.ErrVariantMismatch.WithMessage("fs_version must be 0 for FAT32")
		}
		if ext.FATSize32 == 0 {
			return nil, fatErrors.ErrVariantMismatch.WithMessage("fat_size_32 must be nonzero for FAT32")
		}
		b.Ext32 = ext
		b.FATSize = ext.FATSize32
	} else {
		ext := loadExtBpb12_16(sector)
		if b.RootEntryCount == 0 {
			return nil, fatErrors.ErrVariantMismatch.WithMessage("root_entry_count must be nonzero for FAT12/16")
		}
		b.Ext1216 = ext
		b.FATSize = uint32(b.FATSize16)
	}

	if b.TotalSectors16 != 0 {
		b.TotalSectors = uint32(b.TotalSectors16)
	} else {
		b.TotalSectors = b.TotalSectors32
	}

	b.RootDirSectors = ceilDiv(32*uint32(b.RootEntryCount), uint32(b.BytesPerSector))
	b.FirstDataSector = uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.FATSize + b.RootDirSectors
	dataSectors := b.TotalSectors - b.FirstDataSector
	b.BytesPerCluster = uint32(b.SectorsPerCluster) * uint32(b.BytesPerSector)
	b.CountOfClusters = dataSectors / uint32(b.SectorsPerCluster)

	b.FATOffset = uint64(b.ReservedSectors) * uint64(b.BytesPerSector)
	b.FATLenBytes = uint64(b.FATSize) * uint64(b.BytesPerSector)
	b.DataOffset = uint64(b.FirstDataSector) * uint64(b.BytesPerSector)

	if isFAT32Shaped {
		if b.RootDirSectors != 0 {
			return nil, fatErrors.ErrVariantMismatch.WithMessage("root_dir_sectors must be 0 for FAT32")
		}
	} else {
		rootDirOffset := b.FATOffset + uint64(b.NumFATs)*b.FATLenBytes
		b.RootDirOffset = &rootDirOffset
	}

	b.Variant = DetermineVariant(b.CountOfClusters)
	if isFAT32Shaped && b.Variant != FAT32 {
		return nil, fatErrors.ErrVariantMismatch.WithMessage(
			fmt.Sprintf("disk claims FAT32 but geometry (%d clusters) implies %s", b.CountOfClusters, b.Variant))
	}
	if !isFAT32Shaped && b.Variant == FAT32 {
		return nil, fatErrors.ErrVariantMismatch.WithMessage(
			fmt.Sprintf("disk claims FAT12/16 but geometry (%d clusters) implies FAT32", b.CountOfClusters))
	}

	return b, nil
}

func validateBytesPerSector(v uint16) error {
	switch v {
	case 512, 1024, 2048, 4096:
		return nil
	default:
		return fatErrors.ErrBadGeometry.WithMessage(
			fmt.Sprintf("bytes_per_sector must be 512, 1024, 2048, or 4096, got %d", v))
	}
}

func validateSectorsPerCluster(v uint8) error {
	for shift := 0; shift <= 7; shift++ {
		if v == 1<<uint(shift) {
			return nil
		}
	}
	return fatErrors.ErrBadGeometry.WithMessage(
		fmt.Sprintf("sectors_per_cluster must be a power of two in [1, 128], got %d", v))
}

func validateMedia(v uint8) error {
	if v == 0xF0 || (v >= 0xF8 && v <= 0xFF) {
		return nil
	}
	return fatErrors.ErrBadGeometry.WithMessage(fmt.Sprintf("invalid media byte 0x%02X", v))
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

func loadExtBpb12_16(sector []byte) *ExtBpb12_16 {
	ext := &ExtBpb12_16{
		DriveNumber:        sector[36],
		BootSig:            sector[38],
		VolumeSerialNumber: binary.LittleEndian.Uint32(sector[39:43]),
	}
	copy(ext.VolumeLabel[:], sector[43:54])
	copy(ext.FileSysType[:], sector[54:62])
	return ext
}

func loadExtBpb32(sector []byte) *ExtBpb32 {
	ext := &ExtBpb32{
		FATSize32:        binary.LittleEndian.Uint32(sector[36:40]),
		ExtFlags:         binary.LittleEndian.Uint16(sector[40:42]),
		FSVersion:        binary.LittleEndian.Uint16(sector[42:44]),
		RootCluster:      binary.LittleEndian.Uint32(sector[44:48]),
		FSInfoSector:     binary.LittleEndian.Uint16(sector[48:50]),
		BackupBootSector: binary.LittleEndian.Uint16(sector[50:52]),
		DriveNumber:      sector[64],
		BootSig:          sector[66],
		VolumeSerial:     binary.LittleEndian.Uint32(sector[67:71]),
	}
	copy(ext.VolumeLabel[:], sector[71:82])
	copy(ext.FileSysType[:], sector[82:90])
	return ext
}

// DataClusterOffset returns the byte offset of the start of cluster c,
// c >= 2 (spec section 4.2: data_cluster_offset(c)).
func (b *BPB) DataClusterOffset(c uint32) uint64 {
	return b.DataOffset + uint64(c-2)*uint64(b.BytesPerCluster)
}

// FileSysTypeString returns the informational file_sys_type field, if any,
// trimmed of trailing spaces. Load does not check it against the known type
// strings, and it is never used to classify the variant.
func (b *BPB) FileSysTypeString() string {
	var raw []byte
	if b.Ext32 != nil {
		raw = b.Ext32.FileSysType[:]
	} else if b.Ext1216 != nil {
		raw = b.Ext1216.FileSysType[:]
	} else {
		return ""
	}
	return strings.TrimRight(string(raw), " ")
}

// String renders a human-readable geometry summary, grounded on the
// original source's Display impl for Bpb, used by the dump tool.
func (b *BPB) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", b.Variant)
	fmt.Fprintf(&sb, "  bytes/sector: %d\n", b.BytesPerSector)
	fmt.Fprintf(&sb, "  sectors/cluster: %d\n", b.SectorsPerCluster)
	fmt.Fprintf(&sb, "  reserved sectors: %d\n", b.ReservedSectors)
	fmt.Fprintf(&sb, "  num FATs: %d\n", b.NumFATs)
	fmt.Fprintf(&sb, "  root entry count: %d\n", b.RootEntryCount)
	fmt.Fprintf(&sb, "  total sectors: %d\n", b.TotalSectors)
	fmt.Fprintf(&sb, "  media: 0x%02X\n", b.Media)
	fmt.Fprintf(&sb, "  fat size: %d sectors\n", b.FATSize)
	fmt.Fprintf(&sb, "  count of clusters: %d\n", b.CountOfClusters)
	fmt.Fprintf(&sb, "  file sys type: %q\n", b.FileSysTypeString())
	return sb.String()
}
