package volume

import (
	"encoding/binary"

	fatErrors "github.com/mdbox/fatfs/errors"
)

const (
	fsInfoLeadSig   = 0x41615252
	fsInfoStructSig = 0x61417272
	fsInfoTrailSig  = 0xAA550000
)

// FSInfo is the FAT32 File System Information sector: a hint cache of the
// free cluster count and the next likely-free cluster, never authoritative
// (spec section 4.2, 6.1). Grounded on original_source/src/fs_info.rs.
type FSInfo struct {
	FreeCount uint32
	NextFree  uint32
}

// LoadFSInfo parses and validates a 512-byte FS-Info sector.
func LoadFSInfo(sector []byte) (*FSInfo, error) {
	if len(sector) < 512 {
		return nil, fatErrors.ErrBadGeometry.WithMessage("fs info sector must be 512 bytes")
	}
	if binary.LittleEndian.Uint32(sector[0:4]) != fsInfoLeadSig {
		return nil, fatErrors.ErrCorrupted.WithMessage("fs info lead signature mismatch")
	}
	if binary.LittleEndian.Uint32(sector[484:488]) != fsInfoStructSig {
		return nil, fatErrors.ErrCorrupted.WithMessage("fs info struct signature mismatch")
	}
	if binary.LittleEndian.Uint32(sector[508:512]) != fsInfoTrailSig {
		return nil, fatErrors.ErrCorrupted.WithMessage("fs info trail signature mismatch")
	}

	return &FSInfo{
		FreeCount: binary.LittleEndian.Uint32(sector[488:492]),
		NextFree:  binary.LittleEndian.Uint32(sector[492:496]),
	}, nil
}

// Encode serializes the FS-Info sector back to 512 bytes, preserving the
// reserved regions as zero (spec section 4.2 supplement).
func (f *FSInfo) Encode() []byte {
	sector := make([]byte, 512)
	binary.LittleEndian.PutUint32(sector[0:4], fsInfoLeadSig)
	binary.LittleEndian.PutUint32(sector[484:488], fsInfoStructSig)
	binary.LittleEndian.PutUint32(sector[488:492], f.FreeCount)
	binary.LittleEndian.PutUint32(sector[492:496], f.NextFree)
	binary.LittleEndian.PutUint32(sector[508:512], fsInfoTrailSig)
	return sector
}
