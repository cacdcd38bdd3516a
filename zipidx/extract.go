package zipidx

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/foliopress/leafcore/deflate"
	"github.com/foliopress/leafcore/internal/kind"
)

// LocalHeaderDataOffset reads the local file header at localOffset and
// returns the absolute offset of the entry's compressed data — immediately
// past the header's fixed fields, filename, and extra field. The central
// directory's name/extra lengths are not trusted for this because the
// local header is permitted to disagree (some producers vary the extra
// field between the two); the local header is always read directly.
func LocalHeaderDataOffset(ra io.ReaderAt, localOffset int64) (int64, error) {
	const op = "zipidx.LocalHeaderDataOffset"
	var hdr [localHdrSize]byte
	if _, err := readFull(ra, localOffset, hdr[:]); err != nil {
		return 0, kind.New(op, kind.Read, err)
	}
	if binary.LittleEndian.Uint32(hdr[:]) != localSignature {
		return 0, kind.New(op, kind.BadSignature, nil)
	}
	nameLen := int64(binary.LittleEndian.Uint16(hdr[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(hdr[28:]))
	return localOffset + localHdrSize + nameLen + extraLen, nil
}

// ExtractEntry decompresses e fully into buf, which must be at least
// e.UncompSize bytes; it returns kind.BufferTooSmall otherwise. Use
// StreamExtract instead when the uncompressed size may exceed a bound the
// caller wants to hold in memory at once.
func ExtractEntry(ra io.ReaderAt, e Entry, buf []byte) (int, error) {
	const op = "zipidx.ExtractEntry"
	if uint64(len(buf)) < uint64(e.UncompSize) {
		return 0, kind.New(op, kind.BufferTooSmall, nil)
	}
	n := 0
	_, err := StreamExtract(ra, e, func(chunk []byte) error {
		if n+len(chunk) > len(buf) {
			return kind.New(op, kind.BufferTooSmall, nil)
		}
		copy(buf[n:], chunk)
		n += len(chunk)
		return nil
	})
	return n, err
}

// StreamExtract decompresses e, pushing chunks of output to sink as they
// become available, and validates the result against the central
// directory's recorded CRC-32 and uncompressed size. It never holds more
// than one entry's compressed read window and one DEFLATE sliding window
// in memory regardless of the entry's size.
func StreamExtract(ra io.ReaderAt, e Entry, sink deflate.Sink) (int64, error) {
	const op = "zipidx.StreamExtract"
	dataOffset, err := LocalHeaderDataOffset(ra, int64(e.LocalOffset))
	if err != nil {
		return 0, err
	}

	src := io.NewSectionReader(ra, dataOffset, int64(e.CompSize))
	crc := crc32.NewIEEE()
	checked := func(chunk []byte) error {
		crc.Write(chunk)
		if err := sink(chunk); err != nil {
			if kind.Of(err) != kind.Unknown {
				return err
			}
			return kind.New(op, kind.Write, err)
		}
		return nil
	}

	var total uint64
	switch e.Method {
	case MethodStored:
		total, err = copyStored(src, checked)
	case MethodDeflate:
		total, err = deflate.Inflate(src, checked)
		if kind.Of(err) == kind.Unknown && err != nil {
			err = kind.New(op, kind.Deflate, err)
		}
	default:
		return 0, kind.New(op, kind.Unsupported, nil)
	}
	if err != nil {
		return int64(total), err
	}
	if total != uint64(e.UncompSize) {
		return int64(total), kind.New(op, kind.Truncated, nil)
	}
	if crc.Sum32() != e.CRC32 {
		return int64(total), kind.New(op, kind.Checksum, nil)
	}
	return int64(total), nil
}

func copyStored(src io.Reader, sink deflate.Sink) (uint64, error) {
	var buf [8192]byte
	var total uint64
	for {
		n, err := src.Read(buf[:])
		if n > 0 {
			if serr := sink(buf[:n]); serr != nil {
				return total, serr
			}
			total += uint64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func readFull(ra io.ReaderAt, offset int64, buf []byte) (int, error) {
	n, err := ra.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return n, err
	}
	return n, nil
}
