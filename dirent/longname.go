package dirent

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// longNameFragment is one decoded 32-byte LFN record (spec section 4.7).
// Layout grounded bit-exact on
// original_source/fat-bits/src/dir.rs's LongNameDirEntry: ordinal at byte
// 0 (bit 6, 0x40, is the "last fragment" marker), three UTF-16LE name chunks
// at [1:11], [14:26], [28:32], checksum at byte 13.
type longNameFragment struct {
	ordinal  uint8
	isLast   bool
	chunk    [13]uint16
	checksum uint8
}

const lastLongEntryFlag = 0x40

func decodeLongNameFragment(raw []byte) (longNameFragment, error) {
	if len(raw) < 32 {
		return longNameFragment{}, fatErrors.ErrInvalidArgument.WithMessage("long name record must be 32 bytes")
	}
	if raw[12] != 0 {
		return longNameFragment{}, fatErrors.ErrCorrupted.WithMessage("LDIR_Type must be 0")
	}
	if raw[26] != 0 || raw[27] != 0 {
		return longNameFragment{}, fatErrors.ErrCorrupted.WithMessage("LDIR_FstClusLO must be 0")
	}

	f := longNameFragment{
		ordinal:  raw[0] &^ lastLongEntryFlag,
		isLast:   raw[0]&lastLongEntryFlag != 0,
		checksum: raw[13],
	}

	idx := 0
	for _, off := range []int{1, 14, 28} {
		width := 10
		if off == 28 {
			width = 4
		}
		for b := 0; b < width; b += 2 {
			f.chunk[idx] = uint16(raw[off+b]) | uint16(raw[off+b+1])<<8
			idx++
		}
	}

	return f, nil
}

// longNameAccumulator reconstructs a long filename from the sequence of
// fragments a directory iterator encounters, which are stored on disk in
// descending ordinal order (highest ordinal, carrying the LAST flag,
// first) immediately before the short entry they decorate (spec section
// 4.7).
type longNameAccumulator struct {
	expectedOrdinal int
	checksum        uint8
	units           []uint16
	active          bool
}

func (a *longNameAccumulator) reset() {
	a.expectedOrdinal = 0
	a.units = nil
	a.active = false
}

// Add folds in the next fragment encountered while scanning forward
// through a directory. It returns an error if fragments arrive out of
// order or with mismatched checksums.
func (a *longNameAccumulator) Add(f longNameFragment) error {
	if f.isLast {
		a.reset()
		a.expectedOrdinal = int(f.ordinal)
		a.checksum = f.checksum
		a.active = true
	} else if !a.active {
		return fatErrors.ErrLongNameOrder.WithMessage("long name fragment missing its final-entry marker")
	} else if int(f.ordinal) != a.expectedOrdinal-1 {
		return fatErrors.ErrLongNameOrder
	} else if f.checksum != a.checksum {
		return fatErrors.ErrLongNameChecksum
	}

	if a.active {
		a.expectedOrdinal = int(f.ordinal)
	}

	// Fragments decode in descending ordinal order; each new fragment
	// holds an earlier part of the name, so it's prepended.
	trimmed := trimNameTerminator(f.chunk[:])
	a.units = append(append([]uint16{}, trimmed...), a.units...)

	return nil
}

// Ready reports whether the accumulator has seen a full run down to
// ordinal 1 and is ready to be matched against a short entry.
func (a *longNameAccumulator) Ready() bool {
	return a.active && a.expectedOrdinal == 1
}

// Resolve validates the accumulated run's checksum against the short
// entry's raw 8.3 name and decodes the UTF-16LE buffer to a string. It
// always resets the accumulator afterward.
func (a *longNameAccumulator) Resolve(rawShortName [11]byte) (string, error) {
	defer a.reset()

	if !a.Ready() {
		return "", fatErrors.ErrLongNameOrder.WithMessage("long name run incomplete")
	}
	if ShortNameChecksum(rawShortName) != a.checksum {
		return "", fatErrors.ErrLongNameChecksum
	}
	if len(a.units) > 255 {
		return "", fatErrors.ErrNameTooLong
	}

	return decodeUTF16LE(a.units)
}

// trimNameTerminator drops the 0x0000 terminator and any trailing 0xFFFF
// padding from a name chunk (spec section 4.7).
func trimNameTerminator(units []uint16) []uint16 {
	for i, u := range units {
		if u == 0x0000 {
			return units[:i]
		}
	}
	// No terminator: this is a full, non-final chunk; strip trailing
	// padding just in case.
	end := len(units)
	for end > 0 && units[end-1] == 0xFFFF {
		end--
	}
	return units[:end]
}

func decodeUTF16LE(units []uint16) (string, error) {
	raw := make([]byte, len(units)*2)
	for i, u := range units {
		raw[i*2] = byte(u)
		raw[i*2+1] = byte(u >> 8)
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fatErrors.ErrCorrupted.WrapError(err)
	}
	return string(out), nil
}
