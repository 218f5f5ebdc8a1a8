package dirent

import (
	"io"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// Logger is the minimal interface the iterator needs to report recoverable
// directory corruption without aborting the scan (spec section 7). It is
// satisfied by *github.com/mdbox/fatfs/logger.Logger.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}

// Reader is the minimal streaming source an Iterator consumes: sequential
// reads plus the absolute backend offset of the next byte to be read.
// Implemented by *volume.ChainStream and by a plain *block.Window for the
// FAT12/16 fixed root directory.
type Reader interface {
	io.Reader
	Offset() int64
}

// Iterator walks a directory's records (fixed root region or cluster
// chain) and yields logical DirEntry values, folding each long-name
// fragment run into the short entry it decorates (spec section 4.6, 4.7).
// Grounded on the teacher's clusterToDirentSlice, generalized from
// whole-cluster batches to a streaming scan and extended with the LFN
// folding the teacher's own dirent.go leaves as a TODO.
type Iterator struct {
	r       Reader
	acc     longNameAccumulator
	log     Logger
	lfnOffs []int64
	done    bool
}

// NewIterator wraps r. If log is nil, corruption encountered mid-scan is
// silently skipped; otherwise it is reported and the scan continues at
// the next record (spec section 7: directory corruption is recoverable).
func NewIterator(r Reader, log Logger) *Iterator {
	if log == nil {
		log = nopLogger{}
	}
	return &Iterator{r: r, log: log}
}

// Next returns the next logical directory entry, or (DirEntry{}, false,
// nil) once a free (never-used) slot terminates the directory.
func (it *Iterator) Next() (DirEntry, bool, error) {
	if it.done {
		return DirEntry{}, false, nil
	}

	for {
		recordOffset := it.r.Offset()
		raw := make([]byte, RecordSize)
		if _, err := io.ReadFull(it.r, raw); err != nil {
			it.done = true
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return DirEntry{}, false, nil
			}
			return DirEntry{}, false, err
		}

		if raw[0] == freeMarker {
			it.done = true
			return DirEntry{}, false, nil
		}

		if raw[0] == deletedMarker {
			// A deleted slot, and any long-name fragment run that
			// decorated it, never reaches the caller (spec section
			// 4.6: deleted slots are skipped, not yielded).
			it.acc.reset()
			it.lfnOffs = nil
			continue
		}

		rawEntry, err := DecodeRawEntry(raw)
		if err != nil {
			it.log.Warnf("skipping malformed directory record at offset %d: %v", recordOffset, err)
			continue
		}

		if IsLongNameFragment(rawEntry.AttributeFlags) {
			fragment, err := decodeLongNameFragment(raw)
			if err != nil {
				it.log.Warnf("skipping malformed long-name fragment at offset %d: %v", recordOffset, err)
				it.acc.reset()
				it.lfnOffs = nil
				continue
			}
			if err := it.acc.Add(fragment); err != nil {
				it.log.Warnf("long-name fragment out of sequence at offset %d: %v", recordOffset, err)
				it.acc.reset()
				it.lfnOffs = nil
				continue
			}
			it.lfnOffs = append([]int64{recordOffset}, it.lfnOffs...)
			continue
		}

		var longName string
		var lfnOffsets []int64
		if it.acc.Ready() {
			name, err := it.acc.Resolve(rawEntry.rawName())
			if err != nil {
				it.log.Warnf("discarding long name ending at offset %d: %v", recordOffset, err)
			} else {
				longName = name
				lfnOffsets = it.lfnOffs
			}
		}
		it.acc.reset()
		it.lfnOffs = nil

		entry, err := decodeEntry(rawEntry, recordOffset, longName, lfnOffsets)
		if err != nil {
			if err == fatErrors.ErrNotFound {
				it.done = true
				return DirEntry{}, false, nil
			}
			it.log.Warnf("skipping malformed directory entry at offset %d: %v", recordOffset, err)
			continue
		}

		return entry, true, nil
	}
}

// All drains the iterator, returning every live entry up to the
// terminating free slot. Deleted slots are skipped and never appear in
// the result (spec section 4.6).
func (it *Iterator) All() ([]DirEntry, error) {
	var out []DirEntry
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, entry)
	}
}
