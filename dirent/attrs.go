package dirent

import "os"

// Attribute flags, as stored in byte 11 of a raw directory entry record
// (spec section 4.6). Names and values kept from the teacher's
// file_systems/fat/dirent.go.
const (
	AttrReadOnly   = 0x01
	AttrHidden     = 0x02
	AttrSystem     = 0x04
	AttrVolumeID   = 0x08
	AttrDirectory  = 0x10
	AttrArchive    = 0x20
	AttrDevice     = 0x40
	AttrReserved   = 0x80

	// AttrLongName is the combination ReadOnly|Hidden|System|VolumeID that
	// marks a record as a long-name fragment rather than a short entry
	// (original_source/fat-bits/src/dir.rs, Attr::LONG_NAME).
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// IsLongNameFragment reports whether raw attribute flags mark this record
// as an LFN fragment rather than an ordinary short entry. The match is
// exact equality to AttrLongName (spec section 4.6: "attribute exactly
// 0x0F"), not a bitmask subset test — an ordinary entry that happens to
// also set the read-only/hidden/system/volume-id bits alongside e.g.
// Directory is not a long-name fragment (original_source/fat-bits/src/dir.rs
// compares Attr::LongName by equality, not by subset).
func IsLongNameFragment(attr uint8) bool {
	return attr == AttrLongName
}

// AttrFlagsToFileMode converts FAT attribute flags to a Go os.FileMode.
// FAT has no notion of an executable bit, so all entries are treated as
// executable (teacher's AttrFlagsToFileMode).
func AttrFlagsToFileMode(flags uint8) os.FileMode {
	var mode os.FileMode
	if flags&AttrReadOnly != 0 {
		mode = 0o555
	} else {
		mode = 0o777
	}
	if flags&AttrDirectory != 0 {
		mode |= os.ModeDir
	} else if flags&AttrDevice != 0 {
		mode |= os.ModeDevice
	}
	return mode
}
