// Package rasterpng decodes a PNG image to a 1-bit-per-pixel, Floyd-Steinberg
// dithered bitmap sized to fit an e-reader's screen, one output row at a
// time. It never builds an image.Image, never holds a whole IDAT stream in
// memory, and never holds more than one DEFLATE window's worth of pixel
// data — constraints every streaming raster decoder in this module
// shares, and which image/png's whole-image API cannot honor.
//
// Grounded on original_source/smol-epub/src/png.rs's decode_png_from: PNG
// signature and IHDR validation, chunk-by-chunk scanning for PLTE ahead of
// IDAT, and a scanline accumulator that unfilters and dithers one row as
// soon as DEFLATE produces enough bytes for it.
package rasterpng

import (
	"encoding/binary"
	"io"

	"github.com/foliopress/leafcore/deflate"
	"github.com/foliopress/leafcore/dither"
	"github.com/foliopress/leafcore/internal/kind"
)

const (
	colorGreyscale = 0
	colorRGB       = 2
	colorPalette   = 3
	colorGreyAlpha = 4
	colorRGBA      = 6

	filterNone    = 0
	filterSub     = 1
	filterUp      = 2
	filterAverage = 3
	filterPaeth   = 4

	// maxPixels bounds the source image's pixel count as a memory guard,
	// independent of the max_w/max_h downscale target.
	maxPixels = 800 * 800
)

var pngSignature = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// RowSink receives one output row at a time: a packed, MSB-first,
// 1-bit-per-pixel bitmap row, ceil(width/8) bytes long. A set bit is ink
// (black); a clear bit is paper (white).
type RowSink func(row []byte) error

type header struct {
	width, height       uint32
	bitDepth, colorType uint8
}

func (h header) bytesPerPixel() int {
	channels := 1
	switch h.colorType {
	case colorRGB:
		channels = 3
	case colorGreyAlpha:
		channels = 2
	case colorRGBA:
		channels = 4
	}
	if h.bitDepth >= 8 {
		return channels * int(h.bitDepth) / 8
	}
	return 1
}

func (h header) scanlineBytes() int {
	bitsPerPixel := int(h.bitDepth)
	switch h.colorType {
	case colorRGB:
		bitsPerPixel = 3 * int(h.bitDepth)
	case colorGreyAlpha:
		bitsPerPixel = 2 * int(h.bitDepth)
	case colorRGBA:
		bitsPerPixel = 4 * int(h.bitDepth)
	}
	return (int(h.width)*bitsPerPixel + 7) / 8
}

func (h header) valid() bool {
	switch h.colorType {
	case colorGreyscale:
		return h.bitDepth == 1 || h.bitDepth == 2 || h.bitDepth == 4 || h.bitDepth == 8 || h.bitDepth == 16
	case colorRGB, colorGreyAlpha, colorRGBA:
		return h.bitDepth == 8 || h.bitDepth == 16
	case colorPalette:
		return h.bitDepth == 1 || h.bitDepth == 2 || h.bitDepth == 4 || h.bitDepth == 8
	default:
		return false
	}
}

// Decode reads a PNG image from r and streams it, downscaled to fit
// within maxW x maxH and dithered to 1 bit per pixel, to sink one row at a
// time. It returns the actual output dimensions.
func Decode(r io.Reader, maxW, maxH uint16, sink RowSink) (width, height int, err error) {
	const op = "rasterpng.Decode"

	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return 0, 0, kind.New(op, kind.Read, err)
	}
	if sig != pngSignature {
		return 0, 0, kind.New(op, kind.BadSignature, nil)
	}

	hdr, err := readIHDR(r)
	if err != nil {
		return 0, 0, err
	}
	if uint64(hdr.width)*uint64(hdr.height) > maxPixels {
		return 0, 0, kind.New(op, kind.Unsupported, nil)
	}

	var palette [256]byte
	var idat *idatReader
	for idat == nil {
		clen, ctype, err := readChunkHeader(r)
		if err != nil {
			return 0, 0, err
		}
		switch ctype {
		case "PLTE":
			if err := readPalette(r, clen, hdr.colorType, &palette); err != nil {
				return 0, 0, err
			}
			if err := skipN(r, 4); err != nil { // CRC
				return 0, 0, err
			}
		case "IDAT":
			idat = &idatReader{r: r, chunkLeft: clen, more: true}
		default:
			if err := skipN(r, clen+4); err != nil { // data + CRC
				return 0, 0, err
			}
		}
	}
	var zlibHeader [2]byte
	if _, err := io.ReadFull(idat, zlibHeader[:]); err != nil {
		return 0, 0, kind.New(op, kind.Truncated, err)
	}

	scale := dither.Scale(hdr.width, hdr.height, maxW, maxH)
	outW := (int(hdr.width) + scale - 1) / scale
	if outW < 1 {
		outW = 1
	}
	outH := (int(hdr.height) + scale - 1) / scale
	if outH < 1 {
		outH = 1
	}
	outStride := (outW + 7) / 8

	scanlineBytes := hdr.scanlineBytes()
	bpp := hdr.bytesPerPixel()
	rowTotal := 1 + scanlineBytes

	prevRow := make([]byte, scanlineBytes)
	currRow := make([]byte, scanlineBytes)
	greyRow := make([]byte, outW)
	outRow := make([]byte, outStride)
	fs := dither.New(outW)

	// Each output pixel averages the s x s block of source pixels it
	// downscales, not just the block's top-left corner: sumRow accumulates
	// one row's worth of column sums as source rows arrive, colCount holds
	// how many source columns landed in each output column's block (the
	// rightmost column may be short when width isn't a multiple of scale),
	// and blockRows counts how many source rows have contributed to the
	// block in progress (also possibly short, on the last block).
	sumRow := make([]int32, outW)
	colCount := make([]int, outW)
	for ox := range colCount {
		start := ox * scale
		end := start + scale
		if end > int(hdr.width) {
			end = int(hdr.width)
		}
		colCount[ox] = end - start
	}
	blockRows := 0

	rowBuf := make([]byte, 0, rowTotal)
	srcY := 0
	outY := 0
	var sinkErr error

	_, infErr := deflate.Inflate(idat, func(chunk []byte) error {
		for len(chunk) > 0 && sinkErr == nil {
			need := rowTotal - len(rowBuf)
			n := len(chunk)
			if n > need {
				n = need
			}
			rowBuf = append(rowBuf, chunk[:n]...)
			chunk = chunk[n:]

			if len(rowBuf) < rowTotal {
				continue
			}

			filter := rowBuf[0]
			copy(currRow, rowBuf[1:])
			unfilterRow(filter, currRow, prevRow, bpp)

			for ox := 0; ox < outW; ox++ {
				start := ox * scale
				end := start + scale
				if end > int(hdr.width) {
					end = int(hdr.width)
				}
				var sum int32
				for sx := start; sx < end; sx++ {
					sum += int32(pixelToGrey(currRow, sx, hdr, &palette))
				}
				sumRow[ox] += sum
			}
			blockRows++

			lastSrcRow := srcY == int(hdr.height)-1
			if (blockRows == scale || lastSrcRow) && outY < outH {
				for ox := 0; ox < outW; ox++ {
					greyRow[ox] = byte(sumRow[ox] / int32(blockRows*colCount[ox]))
				}
				for i := range outRow {
					outRow[i] = 0
				}
				fs.Row(greyRow, outRow)
				if err := sink(append([]byte(nil), outRow...)); err != nil {
					sinkErr = err
					break
				}
				outY++
				for ox := range sumRow {
					sumRow[ox] = 0
				}
				blockRows = 0
			}

			prevRow, currRow = currRow, prevRow
			rowBuf = rowBuf[:0]
			srcY++
		}
		if sinkErr != nil {
			return sinkErr
		}
		return nil
	})
	if sinkErr != nil {
		if kind.Of(sinkErr) == kind.Unknown {
			sinkErr = kind.New(op, kind.Write, sinkErr)
		}
		return outW, outY, sinkErr
	}
	if infErr != nil {
		if kind.Of(infErr) == kind.Unknown {
			infErr = kind.New(op, kind.Deflate, infErr)
		}
		return outW, outY, infErr
	}

	return outW, outY, nil
}

func readIHDR(r io.Reader) (header, error) {
	const op = "rasterpng.readIHDR"
	clen, ctype, err := readChunkHeader(r)
	if err != nil {
		return header{}, err
	}
	if ctype != "IHDR" || clen < 13 {
		return header{}, kind.New(op, kind.BadFormat, nil)
	}
	var raw [13]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return header{}, kind.New(op, kind.Read, err)
	}
	if clen > 13 {
		if err := skipN(r, clen-13); err != nil {
			return header{}, err
		}
	}
	if err := skipN(r, 4); err != nil { // CRC
		return header{}, err
	}

	hdr := header{
		width:     binary.BigEndian.Uint32(raw[0:4]),
		height:    binary.BigEndian.Uint32(raw[4:8]),
		bitDepth:  raw[8],
		colorType: raw[9],
	}
	if hdr.width == 0 || hdr.height == 0 {
		return header{}, kind.New(op, kind.BadFormat, nil)
	}
	if raw[12] != 0 {
		return header{}, kind.New(op, kind.Unsupported, nil) // Adam7 interlacing
	}
	if !hdr.valid() {
		return header{}, kind.New(op, kind.Unsupported, nil)
	}
	return hdr, nil
}

// readChunkHeader reads an 8-byte PNG chunk header (length + 4-byte type).
func readChunkHeader(r io.Reader) (length int, chunkType string, err error) {
	const op = "rasterpng.readChunkHeader"
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, "", kind.New(op, kind.Read, err)
	}
	return int(binary.BigEndian.Uint32(hdr[0:4])), string(hdr[4:8]), nil
}

func skipN(r io.Reader, n int) error {
	const op = "rasterpng.skipN"
	var trash [64]byte
	for n > 0 {
		chunk := n
		if chunk > len(trash) {
			chunk = len(trash)
		}
		if _, err := io.ReadFull(r, trash[:chunk]); err != nil {
			return kind.New(op, kind.Read, err)
		}
		n -= chunk
	}
	return nil
}

func readPalette(r io.Reader, clen int, colorType uint8, out *[256]byte) error {
	const op = "rasterpng.readPalette"
	if clen%3 != 0 || clen > 768 {
		return kind.New(op, kind.BadFormat, nil)
	}
	raw := make([]byte, clen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return kind.New(op, kind.Read, err)
	}
	if colorType != colorPalette {
		return nil
	}
	for i := 0; i < clen/3; i++ {
		r, g, b := uint16(raw[i*3]), uint16(raw[i*3+1]), uint16(raw[i*3+2])
		out[i] = byte((r*77 + g*150 + b*29) >> 8)
	}
	return nil
}

// idatReader turns the sequence of IDAT chunks in a PNG stream into a
// single contiguous io.Reader for deflate.Inflate, transparently crossing
// chunk boundaries (and their CRC/length framing) without ever
// materializing the concatenated IDAT payload.
type idatReader struct {
	r         io.Reader
	chunkLeft int
	more      bool
}

func (ir *idatReader) Read(p []byte) (int, error) {
	const op = "rasterpng.idatReader.Read"
	for ir.chunkLeft == 0 {
		if !ir.more {
			return 0, io.EOF
		}
		if err := skipN(ir.r, 4); err != nil { // previous chunk's CRC
			return 0, err
		}
		clen, ctype, err := readChunkHeader(ir.r)
		if err != nil {
			return 0, err
		}
		if ctype != "IDAT" {
			ir.more = false
			return 0, io.EOF
		}
		ir.chunkLeft = clen
	}
	n := len(p)
	if n > ir.chunkLeft {
		n = ir.chunkLeft
	}
	read, err := io.ReadFull(ir.r, p[:n])
	ir.chunkLeft -= read
	if err != nil {
		return read, kind.New(op, kind.Read, err)
	}
	return read, nil
}

func unfilterRow(filter byte, row, prev []byte, bpp int) {
	switch filter {
	case filterNone:
	case filterSub:
		for i := bpp; i < len(row); i++ {
			row[i] += row[i-bpp]
		}
	case filterUp:
		for i := range row {
			row[i] += prev[i]
		}
	case filterAverage:
		for i := range row {
			var a byte
			if i >= bpp {
				a = row[i-bpp]
			}
			row[i] += byte((int(a) + int(prev[i])) / 2)
		}
	case filterPaeth:
		for i := range row {
			var a, c byte
			if i >= bpp {
				a = row[i-bpp]
				c = prev[i-bpp]
			}
			row[i] += paeth(a, prev[i], c)
		}
	}
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func pixelToGrey(row []byte, x int, hdr header, pal *[256]byte) byte {
	switch hdr.colorType {
	case colorGreyscale:
		switch hdr.bitDepth {
		case 8:
			return row[x]
		case 16:
			return row[x*2]
		default:
			return unpackSubByte(row, x, hdr.bitDepth)
		}
	case colorRGB:
		if hdr.bitDepth == 16 {
			return rgbToGrey(row[x*6], row[x*6+2], row[x*6+4])
		}
		return rgbToGrey(row[x*3], row[x*3+1], row[x*3+2])
	case colorPalette:
		if hdr.bitDepth == 8 {
			return pal[row[x]]
		}
		return pal[unpackSubByteRaw(row, x, hdr.bitDepth)]
	case colorGreyAlpha:
		if hdr.bitDepth == 16 {
			return blendWhite(row[x*4], row[x*4+2])
		}
		return blendWhite(row[x*2], row[x*2+1])
	case colorRGBA:
		if hdr.bitDepth == 16 {
			g := rgbToGrey(row[x*8], row[x*8+2], row[x*8+4])
			return blendWhite(g, row[x*8+6])
		}
		g := rgbToGrey(row[x*4], row[x*4+1], row[x*4+2])
		return blendWhite(g, row[x*4+3])
	default:
		return 128
	}
}

func rgbToGrey(r, g, b byte) byte {
	return byte((uint16(r)*77 + uint16(g)*150 + uint16(b)*29) >> 8)
}

func blendWhite(grey, alpha byte) byte {
	g, a := uint16(grey), uint16(alpha)
	return byte((g*a + 255*(255-a)) / 255)
}

func unpackSubByte(row []byte, x int, bitDepth uint8) byte {
	raw := unpackSubByteRaw(row, x, bitDepth)
	max := uint16(1<<bitDepth) - 1
	return byte(uint16(raw) * 255 / max)
}

func unpackSubByteRaw(row []byte, x int, bitDepth uint8) byte {
	bpp := int(bitDepth)
	perByte := 8 / bpp
	byteIdx := x / perByte
	bitOffset := (perByte - 1 - x%perByte) * bpp
	mask := byte(1<<bpp) - 1
	return (row[byteIdx] >> uint(bitOffset)) & mask
}
