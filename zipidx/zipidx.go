// Package zipidx builds a random-access index over a ZIP central directory
// and extracts individual entries, without ever holding the whole archive
// or a whole entry's compressed data in memory at once.
//
// archive/zip is not used here: it opens the archive through an
// io.ReaderAt and eagerly decodes every central directory header into
// heap-allocated zip.File values with their own local-header lookahead, and
// its Open() reader chain has no way to bound its own working set. Here an
// extraction holds one fixed-size read buffer (8 KiB for stored entries,
// 4 KiB inside deflate) plus the 32 KiB window deflate.Inflate allocates
// for each entry; neither size is chosen by the caller. The pieces that ARE stable
// across any ZIP reader — the end-of-central-directory search, the central
// directory record layout, the local file header skip arithmetic — are
// reimplemented directly from the ZIP APPNOTE format they both target.
package zipidx

import (
	"encoding/binary"

	"github.com/foliopress/leafcore/internal/kind"
)

const (
	eocdSignature  = 0x06054b50
	cdSignature    = 0x02014b50
	localSignature = 0x04034b50

	eocdMinSize  = 22
	cdEntryMin   = 46
	localHdrSize = 30

	// maxEOCDSearch bounds how far back from the end of the file the EOCD
	// signature is searched for: the record's comment field can be at most
	// 65535 bytes, so this covers the worst case plus slack.
	maxEOCDSearch = eocdMinSize + 65535

	// maxEntries caps how many central directory entries an Index will
	// hold; further entries are silently dropped rather than grown into
	// unbounded, to keep the heap fixed-size. 4096 covers any EPUB
	// this pipeline is meant to open with headroom to spare.
	maxEntries = 4096

	// maxNameLen bounds a single entry's filename; longer names are
	// dropped entirely rather than truncated, since a truncated name could
	// silently alias a different entry.
	maxNameLen = 1024
)

// Method identifies a ZIP entry's compression method. Only the two methods
// EPUB producers actually emit are recognized; anything else surfaces as
// kind.Unsupported at extraction time.
type Method uint16

const (
	MethodStored  Method = 0
	MethodDeflate Method = 8
)

// Entry describes one file recorded in a ZIP central directory.
type Entry struct {
	Name        string
	Method      Method
	CRC32       uint32
	CompSize    uint32
	UncompSize  uint32
	LocalOffset uint32
}

// Index is a parsed ZIP central directory: enough to look up an entry by
// name and locate its compressed bytes, without holding file data.
type Index struct {
	entries []Entry
}

// ParseEOCD locates the end-of-central-directory record within tail — the
// last min(len(archive), maxEOCDSearch) bytes of the archive — and returns
// the central directory's offset and size within the full archive.
// fileSize is the total archive length, used to validate the result.
func ParseEOCD(tail []byte, fileSize uint32) (cdOffset, cdSize uint32, err error) {
	const op = "zipidx.ParseEOCD"
	if len(tail) < eocdMinSize {
		return 0, 0, kind.New(op, kind.Truncated, nil)
	}
	// The EOCD record has a variable-length comment at the end, so scan
	// backward for its signature rather than assuming a fixed offset.
	for i := len(tail) - eocdMinSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:]) != eocdSignature {
			continue
		}
		commentLen := binary.LittleEndian.Uint16(tail[i+20:])
		if i+eocdMinSize+int(commentLen) > len(tail) {
			continue // signature collision inside the comment/data
		}
		size := binary.LittleEndian.Uint32(tail[i+12:])
		offset := binary.LittleEndian.Uint32(tail[i+16:])
		if uint64(offset)+uint64(size) > uint64(fileSize) {
			return 0, 0, kind.New(op, kind.BadFormat, nil)
		}
		return offset, size, nil
	}
	return 0, 0, kind.New(op, kind.BadSignature, nil)
}

// ParseCentralDirectory parses a raw central directory block (as located by
// ParseEOCD) and populates idx with its entries. Entries beyond maxEntries,
// or with names longer than maxNameLen, are dropped rather than causing an
// error — a pathological archive degrades to "some files unreachable", not
// a hard failure.
func (idx *Index) ParseCentralDirectory(cd []byte) error {
	const op = "zipidx.ParseCentralDirectory"
	pos := 0
	for pos+cdEntryMin <= len(cd) {
		if binary.LittleEndian.Uint32(cd[pos:]) != cdSignature {
			return kind.New(op, kind.BadSignature, nil)
		}
		method := binary.LittleEndian.Uint16(cd[pos+10:])
		crc := binary.LittleEndian.Uint32(cd[pos+16:])
		compSize := binary.LittleEndian.Uint32(cd[pos+20:])
		uncompSize := binary.LittleEndian.Uint32(cd[pos+24:])
		nameLen := int(binary.LittleEndian.Uint16(cd[pos+28:]))
		extraLen := int(binary.LittleEndian.Uint16(cd[pos+30:]))
		commentLen := int(binary.LittleEndian.Uint16(cd[pos+32:]))
		localOffset := binary.LittleEndian.Uint32(cd[pos+42:])

		nameStart := pos + cdEntryMin
		nameEnd := nameStart + nameLen
		if nameEnd > len(cd) {
			return kind.New(op, kind.Truncated, nil)
		}
		name := string(cd[nameStart:nameEnd])

		if len(idx.entries) < maxEntries && nameLen <= maxNameLen {
			idx.entries = append(idx.entries, Entry{
				Name:        name,
				Method:      Method(method),
				CRC32:       crc,
				CompSize:    compSize,
				UncompSize:  uncompSize,
				LocalOffset: localOffset,
			})
		}
		pos = nameEnd + extraLen + commentLen
	}
	return nil
}

// Count returns the number of indexed entries.
func (idx *Index) Count() int { return len(idx.entries) }

// Entry returns the i'th indexed entry.
func (idx *Index) Entry(i int) Entry { return idx.entries[i] }

// Find looks up an entry by exact, case-sensitive name, the default
// lookup contract.
func (idx *Index) Find(name string) (Entry, bool) {
	for _, e := range idx.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// FindFold looks up an entry by case-insensitive (ASCII) name match. Real
// EPUBs are case-correct; this exists because some producers are not.
// Case sensitivity is left as a host-observable policy choice rather than
// a hard requirement (see DESIGN.md).
func (idx *Index) FindFold(name string) (Entry, bool) {
	for _, e := range idx.entries {
		if equalFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
