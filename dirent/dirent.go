// Package dirent implements FAT directory entries: the 32-byte on-disk
// record, 8.3 short-name decoding, long-filename reconstruction, and
// write-back of size/attribute changes (spec section 4.6, 4.7).
package dirent

import (
	"encoding/binary"
	"os"
	"strings"
	"time"

	"github.com/noxer/bytewriter"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// RecordSize is the size of one raw directory entry record, in bytes.
const RecordSize = 32

// deletedMarker in byte 0 means the slot held a file that has since been
// deleted; freeMarker means the slot (and all following it in the same
// directory) has never been used.
const (
	deletedMarker byte = 0xE5
	freeMarker    byte = 0x00
	kanjiEscape   byte = 0x05
)

// RawEntry is the on-disk layout of a short (8.3) directory entry,
// decoded field-by-field (teacher's RawDirent).
type RawEntry struct {
	Name              [8]byte
	Extension         [3]byte
	AttributeFlags    uint8
	NTReserved        uint8
	CreatedTimeMillis uint8
	CreatedTime       uint16
	CreatedDate       uint16
	LastAccessedDate  uint16
	FirstClusterHigh  uint16
	LastModifiedTime  uint16
	LastModifiedDate  uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// DecodeRawEntry parses 32 bytes into a RawEntry (teacher's
// NewRawDirentFromBytes).
func DecodeRawEntry(data []byte) (RawEntry, error) {
	if len(data) < RecordSize {
		return RawEntry{}, fatErrors.ErrInvalidArgument.WithMessage("directory record must be 32 bytes")
	}
	e := RawEntry{
		AttributeFlags:    data[11],
		NTReserved:        data[12],
		CreatedTimeMillis: data[13],
		CreatedTime:       binary.LittleEndian.Uint16(data[14:16]),
		CreatedDate:       binary.LittleEndian.Uint16(data[16:18]),
		LastAccessedDate:  binary.LittleEndian.Uint16(data[18:20]),
		FirstClusterHigh:  binary.LittleEndian.Uint16(data[20:22]),
		LastModifiedTime:  binary.LittleEndian.Uint16(data[22:24]),
		LastModifiedDate:  binary.LittleEndian.Uint16(data[24:26]),
		FirstClusterLow:   binary.LittleEndian.Uint16(data[26:28]),
		FileSize:          binary.LittleEndian.Uint32(data[28:32]),
	}
	copy(e.Name[:], data[0:8])
	copy(e.Extension[:], data[8:11])
	return e, nil
}

// rawName returns the 11 raw 8.3 name bytes as stored on disk, used for
// long-name checksum verification (spec section 4.7).
func (e RawEntry) rawName() [11]byte {
	var out [11]byte
	copy(out[0:8], e.Name[:])
	copy(out[8:11], e.Extension[:])
	return out
}

// Encode serializes a RawEntry back to a 32-byte record.
func (e RawEntry) Encode() []byte {
	out := make([]byte, RecordSize)
	w := bytewriter.New(out)
	w.Write(e.Name[:])
	w.Write(e.Extension[:])
	w.Write([]byte{e.AttributeFlags, e.NTReserved, e.CreatedTimeMillis})
	binary.LittleEndian.PutUint16(out[14:16], e.CreatedTime)
	binary.LittleEndian.PutUint16(out[16:18], e.CreatedDate)
	binary.LittleEndian.PutUint16(out[18:20], e.LastAccessedDate)
	binary.LittleEndian.PutUint16(out[20:22], e.FirstClusterHigh)
	binary.LittleEndian.PutUint16(out[22:24], e.LastModifiedTime)
	binary.LittleEndian.PutUint16(out[24:26], e.LastModifiedDate)
	binary.LittleEndian.PutUint16(out[26:28], e.FirstClusterLow)
	binary.LittleEndian.PutUint32(out[28:32], e.FileSize)
	return out
}

// DirEntry is the fully decoded, user-facing view of a directory entry:
// either a short 8.3 name or a reconstructed long name, with attributes
// and timestamps converted to Go types (spec section 4.6).
type DirEntry struct {
	name           string
	shortName      string
	AttributeFlags uint8
	FirstCluster   uint32
	Size           int64
	CreatedAt      time.Time
	LastAccessed   time.Time
	LastModified   time.Time
	isDeleted      bool

	// recordOffset is the absolute backend offset of this entry's short
	// record, used by UpdateSize/Erase to write back in place.
	recordOffset int64
	// lfnOffsets are the absolute offsets of the long-name fragments that
	// decorate this entry, in ascending ordinal order (the reverse of their
	// on-disk order), used by Erase to blank the whole run.
	lfnOffsets []int64
}

// Name returns the entry's long name if one was reconstructed, otherwise
// its decoded 8.3 short name (teacher's Dirent.Name, extended with LFN
// support the teacher's own comment flags as unimplemented).
func (d DirEntry) Name() string {
	if d.name != "" {
		return d.name
	}
	return d.shortName
}

// ShortName returns the decoded 8.3 name regardless of whether a long
// name is also present.
func (d DirEntry) ShortName() string { return d.shortName }

func (d DirEntry) Mode() os.FileMode { return AttrFlagsToFileMode(d.AttributeFlags) }
func (d DirEntry) IsDir() bool       { return d.AttributeFlags&AttrDirectory != 0 }
func (d DirEntry) IsHidden() bool    { return d.AttributeFlags&AttrHidden != 0 }
func (d DirEntry) IsVolumeLabel() bool { return d.AttributeFlags&AttrVolumeID != 0 }
func (d DirEntry) IsDeleted() bool   { return d.isDeleted }
func (d DirEntry) IsDot() bool       { return d.shortName == "." }
func (d DirEntry) IsDotDot() bool    { return d.shortName == ".." }

// decodeShortName reconstructs the printable 8.3 name from the raw fixed-
// width fields: non-ASCII bytes become '?', byte 0 == 0x05 is the Kanji
// escape for a literal 0xE5 first character, and trailing spaces in each
// component are trimmed (spec section 4.6, grounded on
// original_source/fat-bits/src/dir.rs's load_name and the teacher's
// NewDirentFromRaw deleted-name handling).
func decodeShortName(raw RawEntry) string {
	nameBytes := append([]byte{}, raw.Name[:]...)

	sanitize := func(bs []byte) string {
		out := make([]byte, len(bs))
		for i, b := range bs {
			if b >= 0x80 {
				out[i] = '?'
			} else {
				out[i] = b
			}
		}
		return strings.TrimRight(string(out), " ")
	}

	name := sanitize(nameBytes)
	switch {
	case nameBytes[0] == kanjiEscape:
		// Kanji escape: the real first character is the otherwise-
		// reserved deleted-entry marker 0xE5, substituted verbatim
		// rather than mapped to '?' (spec section 4.6).
		if len(name) > 0 {
			name = "\xe5" + name[1:]
		}
	case nameBytes[0] == deletedMarker:
		// The entry has been deleted; the real first byte of the
		// original name is preserved in CreatedTimeMillis, the only
		// field still holding it (teacher's NewDirentFromRaw).
		if len(name) > 0 {
			name = string([]byte{raw.CreatedTimeMillis}) + name[1:]
		}
	}
	ext := sanitize(raw.Extension[:])

	hidden := raw.AttributeFlags&AttrHidden != 0 && name != "." && name != ".."
	if ext == "" {
		if hidden {
			return "." + name
		}
		return name
	}
	if hidden {
		return "." + name + "." + ext
	}
	return name + "." + ext
}

// decodeEntry builds a DirEntry from a raw record and any pending
// reconstructed long name (spec section 4.6, 4.7).
func decodeEntry(raw RawEntry, recordOffset int64, longName string, lfnOffsets []int64) (DirEntry, error) {
	if raw.Name[0] == freeMarker {
		return DirEntry{}, fatErrors.ErrNotFound
	}

	isDeleted := raw.Name[0] == deletedMarker

	if raw.CreatedTimeMillis > 199 {
		return DirEntry{}, fatErrors.ErrBadTimestamp
	}
	if raw.AttributeFlags&AttrVolumeID != 0 && (raw.FirstClusterHigh != 0 || raw.FirstClusterLow != 0) {
		return DirEntry{}, fatErrors.ErrCorrupted.WithMessage("volume label entry must not have a first cluster")
	}
	if raw.AttributeFlags&AttrDirectory != 0 && raw.FileSize != 0 {
		return DirEntry{}, fatErrors.ErrCorrupted.WithMessage("directory entry must have zero size")
	}

	d := DirEntry{
		shortName:      decodeShortName(raw),
		name:           longName,
		AttributeFlags: raw.AttributeFlags,
		FirstCluster:   uint32(raw.FirstClusterHigh)<<16 | uint32(raw.FirstClusterLow),
		Size:           int64(raw.FileSize),
		isDeleted:      isDeleted,
		recordOffset:   recordOffset,
		lfnOffsets:     lfnOffsets,
		LastAccessed:   DateFromInt(raw.LastAccessedDate),
		LastModified:   TimestampFromParts(raw.LastModifiedDate, raw.LastModifiedTime, 0),
	}
	if !isDeleted {
		d.CreatedAt = TimestampFromParts(raw.CreatedDate, raw.CreatedTime, raw.CreatedTimeMillis)
	}

	return d, nil
}

// UpdateSize rewrites this entry's file-size field in place on backend.
// writeAt is the backend's positioned writer (spec section 4.6: size
// changes on close/truncate must be written back through the original
// record position).
func (d *DirEntry) UpdateSize(writeAt func(p []byte, off int64) (int, error), newSize int64) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(newSize))
	if _, err := writeAt(buf, d.recordOffset+28); err != nil {
		return fatErrors.ErrIO.WrapError(err)
	}
	d.Size = newSize
	return nil
}

// Erase marks this entry's record, and every long-name fragment that
// decorates it, as deleted (byte 0 set to 0xE5), per spec section 4.7:
// erasing a file must also erase its preceding LFN run.
func (d *DirEntry) Erase(writeAt func(p []byte, off int64) (int, error)) error {
	marker := []byte{deletedMarker}
	if _, err := writeAt(marker, d.recordOffset); err != nil {
		return fatErrors.ErrIO.WrapError(err)
	}
	for _, off := range d.lfnOffsets {
		if _, err := writeAt(marker, off); err != nil {
			return fatErrors.ErrIO.WrapError(err)
		}
	}
	d.isDeleted = true
	return nil
}
