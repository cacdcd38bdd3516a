// Package rasterjpeg decodes a baseline JPEG to a 1-bit-per-pixel,
// Floyd-Steinberg dithered bitmap, luminance channel only — chrominance
// blocks are Huffman-decoded to advance the bitstream and then discarded,
// since e-reader displays never render color. Peak heap stays bounded to
// one MCU row plus a 32KB header read-ahead, never a whole decoded image.
//
// Grounded on original_source/smol-epub/src/jpeg.rs: marker parsing,
// Huffman table construction and decode, the IJG ISLOW integer IDCT, and
// MCU-row-at-a-time dithering. Progressive JPEGs (SOF2), arithmetic
// coding, and 12-bit samples are all rejected with kind.Unsupported
// rather than partially decoded.
package rasterjpeg

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/foliopress/leafcore/dither"
	"github.com/foliopress/leafcore/internal/kind"
)

const (
	mSOF0 = 0xC0
	mSOF2 = 0xC2
	mDHT  = 0xC4
	mSOI  = 0xD8
	mEOI  = 0xD9
	mSOS  = 0xDA
	mDQT  = 0xDB
	mDRI  = 0xDD
	mRST0 = 0xD0
	mRST7 = 0xD7
)

const (
	maxComp        = 4
	maxPixels      = 2048 * 2048
	headerReadSize = 32768
)

const (
	cb     = 13
	p1     = 2
	f0298  = 2446
	f0390  = 3196
	f0541  = 4433
	f0765  = 6270
	f0899  = 7373
	f1175  = 9633
	f1501  = 12299
	f1847  = 15137
	f1961  = 16069
	f2053  = 16819
	f2562  = 20995
	f3072  = 25172
)

var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// RowSink receives one output row at a time: a packed, MSB-first,
// 1-bit-per-pixel bitmap row, ceil(width/8) bytes long.
type RowSink func(row []byte) error

type component struct {
	id           uint8
	hSamp, vSamp uint8
	qtIdx        uint8
	dcTbl, acTbl uint8
}

type lutEntry struct {
	sym, nbits byte
}

type huffTable struct {
	lut     [256]lutEntry
	mincode [17]int32
	maxcode [17]int32
	valptr  [17]int
	values  [256]byte
}

type jpegState struct {
	width, height uint16
	numComp       uint8
	comp          [maxComp]component
	maxH, maxV    uint8
	qt            [4][64]uint16
	qtOK          [4]bool
	dcHuff        [4]huffTable
	acHuff        [4]huffTable
	dcOK, acOK    [4]bool

	restartInterval uint16
	scanNumComp     uint8
	scanOrder       [maxComp]uint8
	scanSS, scanSE  uint8
	scanAL          uint8
}

func newJpegState() *jpegState {
	st := &jpegState{maxH: 1, maxV: 1}
	for i := range st.dcHuff {
		for j := range st.dcHuff[i].maxcode {
			st.dcHuff[i].maxcode[j] = -1
		}
	}
	for i := range st.acHuff {
		for j := range st.acHuff[i].maxcode {
			st.acHuff[i].maxcode[j] = -1
		}
	}
	return st
}

// Decode reads a JPEG image from r and streams it, downscaled to fit
// within maxW x maxH and dithered to 1 bit per pixel, to sink one row at a
// time. It returns the actual output dimensions.
func Decode(r io.Reader, maxW, maxH uint16, sink RowSink) (width, height int, err error) {
	const op = "rasterjpeg.Decode"

	hdrBuf := make([]byte, headerReadSize)
	n, err := io.ReadFull(r, hdrBuf)
	switch err {
	case nil:
	case io.ErrUnexpectedEOF, io.EOF:
		hdrBuf = hdrBuf[:n]
	default:
		return 0, 0, kind.New(op, kind.Read, err)
	}

	st, scanStart, err := parseMarkers(hdrBuf)
	if err != nil {
		return 0, 0, err
	}
	if err := validateTables(st); err != nil {
		return 0, 0, err
	}

	leftover := hdrBuf[scanStart:]
	combined := io.MultiReader(bytes.NewReader(leftover), r)
	br := newBitReader(combined)

	w, h, err := decodeBaseline(st, br, maxW, maxH, sink)
	if err != nil && kind.Of(err) == kind.Unknown {
		err = kind.New(op, kind.Read, err)
	}
	return w, h, err
}

func validateTables(st *jpegState) error {
	const op = "rasterjpeg.validateTables"
	for sci := 0; sci < int(st.scanNumComp); sci++ {
		ci := st.scanOrder[sci]
		c := &st.comp[ci]
		if !st.qtOK[c.qtIdx] {
			return kind.New(op, kind.BadFormat, nil)
		}
		if !st.dcOK[c.dcTbl] {
			return kind.New(op, kind.BadFormat, nil)
		}
		if st.scanSE > 0 && !st.acOK[c.acTbl] {
			return kind.New(op, kind.BadFormat, nil)
		}
	}
	return nil
}

func decodeBaseline(st *jpegState, br *bitReader, maxW, maxH uint16, sink RowSink) (int, int, error) {
	const op = "rasterjpeg.decodeBaseline"
	w, h := int(st.width), int(st.height)
	if w == 0 || h == 0 {
		return 0, 0, kind.New(op, kind.BadFormat, nil)
	}
	if uint64(w)*uint64(h) > maxPixels {
		return 0, 0, kind.New(op, kind.Unsupported, nil)
	}

	scale := dither.Scale(uint32(w), uint32(h), maxW, maxH)
	outW := (w + scale - 1) / scale
	if outW < 1 {
		outW = 1
	}
	outH := (h + scale - 1) / scale
	if outH < 1 {
		outH = 1
	}
	outStride := (outW + 7) / 8

	mcuW := int(st.maxH) * 8
	mcuH := int(st.maxV) * 8
	mcusX := (w + mcuW - 1) / mcuW
	mcusY := (h + mcuH - 1) / mcuH
	rowW := mcusX * mcuW

	yRow := make([]byte, rowW*mcuH)
	greyRow := make([]byte, outW)
	outRow := make([]byte, outStride)
	fs := dither.New(outW)

	// Each output pixel averages the s x s block of source pixels it
	// downscales, not just its top-left corner. sumRow accumulates one
	// output row's worth of column sums as source rows arrive — which may
	// span more than one MCU row's worth of yRow, since scale isn't bounded
	// by mcuH — colCount holds how many source columns landed in each
	// output column's block (short at the right edge when w isn't a
	// multiple of scale), and blockRows counts how many source rows have
	// contributed to the block in progress (also possibly short, on the
	// final block).
	sumRow := make([]int32, outW)
	colCount := make([]int, outW)
	for ox := range colCount {
		start := ox * scale
		end := start + scale
		if end > w {
			end = w
		}
		colCount[ox] = end - start
	}
	blockRows := 0

	var dcPred [maxComp]int32
	var block [64]int32
	var pix [64]byte
	mcuCnt := uint32(0)
	totalMCUs := uint32(mcusX * mcusY)
	outY := 0

	for mcuRow := 0; mcuRow < mcusY; mcuRow++ {
		for i := range yRow {
			yRow[i] = 128
		}

		for mcuCol := 0; mcuCol < mcusX; mcuCol++ {
			for sci := 0; sci < int(st.scanNumComp); sci++ {
				ci := int(st.scanOrder[sci])
				c := &st.comp[ci]
				isY := ci == 0

				for bv := 0; bv < int(c.vSamp); bv++ {
					for bh := 0; bh < int(c.hSamp); bh++ {
						if isY {
							if err := decodeBlock(br, &st.dcHuff[c.dcTbl], &st.acHuff[c.acTbl], &dcPred[ci], &st.qt[c.qtIdx], &block, int(st.scanSE), st.scanAL); err != nil {
								return 0, 0, err
							}
							idct(&block, &pix)
							bx := mcuCol*mcuW + bh*8
							by := bv * 8
							for r := 0; r < 8; r++ {
								dst := (by+r)*rowW + bx
								copy(yRow[dst:dst+8], pix[r*8:r*8+8])
							}
						} else {
							if err := skipBlock(br, &st.dcHuff[c.dcTbl], &st.acHuff[c.acTbl], &dcPred[ci], int(st.scanSE)); err != nil {
								return 0, 0, err
							}
						}
					}
				}
			}

			mcuCnt++
			if st.restartInterval > 0 && mcuCnt%uint32(st.restartInterval) == 0 && mcuCnt < totalMCUs {
				if err := br.consumeRestart(); err != nil {
					return 0, 0, err
				}
				for i := range dcPred {
					dcPred[i] = 0
				}
			}
		}

		for py := 0; py < mcuH; py++ {
			srcY := mcuRow*mcuH + py
			if srcY >= h || outY >= outH {
				break
			}
			rowOff := py * rowW
			accumulateBlockRow(yRow[rowOff:rowOff+rowW], outW, scale, w, sumRow)
			blockRows++

			lastSrcRow := srcY == h-1
			if blockRows != scale && !lastSrcRow {
				continue
			}
			for ox := range greyRow {
				greyRow[ox] = byte(sumRow[ox] / int32(blockRows*colCount[ox]))
			}
			for i := range outRow {
				outRow[i] = 0
			}
			fs.Row(greyRow, outRow)
			if err := sink(append([]byte(nil), outRow...)); err != nil {
				if kind.Of(err) == kind.Unknown {
					err = kind.New(op, kind.Write, err)
				}
				return outW, outY, err
			}
			outY++
			for ox := range sumRow {
				sumRow[ox] = 0
			}
			blockRows = 0
		}
	}

	return outW, outY, nil
}

func parseMarkers(data []byte) (*jpegState, int, error) {
	const op = "rasterjpeg.parseMarkers"
	if len(data) < 2 || data[0] != 0xFF || data[1] != mSOI {
		return nil, 0, kind.New(op, kind.BadSignature, nil)
	}
	st := newJpegState()
	pos := 2
	ln := len(data)

	for {
		for pos < ln && data[pos] != 0xFF {
			pos++
		}
		for pos < ln && data[pos] == 0xFF {
			pos++
		}
		if pos >= ln {
			return nil, 0, kind.New(op, kind.Truncated, nil)
		}
		marker := data[pos]
		pos++

		switch {
		case marker == 0x00 || (marker >= mRST0 && marker <= mRST7):
			continue
		case marker == mSOF0:
			if err := parseSOF(data, &pos, st); err != nil {
				return nil, 0, err
			}
		case marker == mSOF2 || marker == 0xC1 || marker == 0xC3 || (marker >= 0xC5 && marker <= 0xCB) || (marker >= 0xCD && marker <= 0xCF):
			return nil, 0, kind.New(op, kind.Unsupported, nil)
		case marker == mDHT:
			if err := parseDHT(data, &pos, st); err != nil {
				return nil, 0, err
			}
		case marker == mDQT:
			if err := parseDQT(data, &pos, st); err != nil {
				return nil, 0, err
			}
		case marker == mDRI:
			if err := parseDRI(data, &pos, st); err != nil {
				return nil, 0, err
			}
		case marker == mSOS:
			if err := parseSOS(data, &pos, st); err != nil {
				return nil, 0, err
			}
			return st, pos, nil
		case marker == mEOI:
			return nil, 0, kind.New(op, kind.BadFormat, nil)
		default:
			if pos+2 > ln {
				return nil, 0, kind.New(op, kind.Truncated, nil)
			}
			seg := int(binary.BigEndian.Uint16(data[pos:]))
			if seg < 2 || pos+seg > ln {
				return nil, 0, kind.New(op, kind.BadFormat, nil)
			}
			pos += seg
		}
	}
}

func parseSOF(data []byte, pos *int, st *jpegState) error {
	const op = "rasterjpeg.parseSOF"
	if *pos+2 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	seg := int(binary.BigEndian.Uint16(data[*pos:]))
	*pos += 2
	if *pos+seg-2 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	p := *pos
	if data[p] != 8 {
		return kind.New(op, kind.Unsupported, nil)
	}
	st.height = binary.BigEndian.Uint16(data[p+1:])
	st.width = binary.BigEndian.Uint16(data[p+3:])
	st.numComp = data[p+5]
	if st.numComp == 0 || int(st.numComp) > maxComp {
		return kind.New(op, kind.BadFormat, nil)
	}
	if p+6+int(st.numComp)*3 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	off := p + 6
	st.maxH = 1
	st.maxV = 1
	for i := 0; i < int(st.numComp); i++ {
		st.comp[i].id = data[off]
		samp := data[off+1]
		st.comp[i].hSamp = samp >> 4
		st.comp[i].vSamp = samp & 0x0F
		st.comp[i].qtIdx = data[off+2]
		if st.comp[i].hSamp == 0 || st.comp[i].vSamp == 0 {
			return kind.New(op, kind.BadFormat, nil)
		}
		if st.comp[i].hSamp > st.maxH {
			st.maxH = st.comp[i].hSamp
		}
		if st.comp[i].vSamp > st.maxV {
			st.maxV = st.comp[i].vSamp
		}
		off += 3
	}
	*pos += seg - 2
	return nil
}

func parseDQT(data []byte, pos *int, st *jpegState) error {
	const op = "rasterjpeg.parseDQT"
	if *pos+2 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	seg := int(binary.BigEndian.Uint16(data[*pos:]))
	end := *pos + seg
	*pos += 2
	if end > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	for *pos < end {
		info := data[*pos]
		*pos++
		prec := info >> 4
		id := int(info & 0x0F)
		if id >= 4 {
			return kind.New(op, kind.BadFormat, nil)
		}
		if prec == 0 {
			if *pos+64 > end {
				return kind.New(op, kind.Truncated, nil)
			}
			for i := 0; i < 64; i++ {
				st.qt[id][i] = uint16(data[*pos])
				*pos++
			}
		} else {
			if *pos+128 > end {
				return kind.New(op, kind.Truncated, nil)
			}
			for i := 0; i < 64; i++ {
				st.qt[id][i] = binary.BigEndian.Uint16(data[*pos:])
				*pos += 2
			}
		}
		st.qtOK[id] = true
	}
	return nil
}

func parseDHT(data []byte, pos *int, st *jpegState) error {
	const op = "rasterjpeg.parseDHT"
	if *pos+2 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	seg := int(binary.BigEndian.Uint16(data[*pos:]))
	end := *pos + seg
	*pos += 2
	if end > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	for *pos < end {
		if *pos+17 > end {
			return kind.New(op, kind.Truncated, nil)
		}
		info := data[*pos]
		*pos++
		class := info >> 4
		id := int(info & 0x0F)
		if id >= 4 {
			return kind.New(op, kind.BadFormat, nil)
		}
		var bits [16]byte
		copy(bits[:], data[*pos:*pos+16])
		*pos += 16
		total := 0
		for _, b := range bits {
			total += int(b)
		}
		if total > 256 || *pos+total > end {
			return kind.New(op, kind.BadFormat, nil)
		}
		vals := data[*pos : *pos+total]
		*pos += total
		if class == 0 {
			buildHuffTable(&st.dcHuff[id], bits, vals)
			st.dcOK[id] = true
		} else {
			buildHuffTable(&st.acHuff[id], bits, vals)
			st.acOK[id] = true
		}
	}
	return nil
}

func parseDRI(data []byte, pos *int, st *jpegState) error {
	const op = "rasterjpeg.parseDRI"
	if *pos+4 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	*pos += 2
	st.restartInterval = binary.BigEndian.Uint16(data[*pos:])
	*pos += 2
	return nil
}

func parseSOS(data []byte, pos *int, st *jpegState) error {
	const op = "rasterjpeg.parseSOS"
	if *pos+2 > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	seg := int(binary.BigEndian.Uint16(data[*pos:]))
	if *pos+seg > len(data) {
		return kind.New(op, kind.Truncated, nil)
	}
	*pos += 2
	st.scanNumComp = data[*pos]
	*pos++
	if st.scanNumComp == 0 || st.scanNumComp > st.numComp {
		return kind.New(op, kind.BadFormat, nil)
	}
	for sci := 0; sci < int(st.scanNumComp); sci++ {
		cs := data[*pos]
		tdTa := data[*pos+1]
		*pos += 2
		found := false
		for j := 0; j < int(st.numComp); j++ {
			if st.comp[j].id == cs {
				st.comp[j].dcTbl = tdTa >> 4
				st.comp[j].acTbl = tdTa & 0x0F
				st.scanOrder[sci] = uint8(j)
				found = true
				break
			}
		}
		if !found {
			return kind.New(op, kind.BadFormat, nil)
		}
	}
	st.scanSS = data[*pos]
	st.scanSE = data[*pos+1]
	ahAl := data[*pos+2]
	st.scanAL = ahAl & 0x0F
	*pos += 3
	return nil
}

func buildHuffTable(table *huffTable, bits [16]byte, vals []byte) {
	total := 0
	for _, b := range bits {
		total += int(b)
	}
	copy(table.values[:total], vals[:total])
	for i := range table.lut {
		table.lut[i] = lutEntry{}
	}
	for i := range table.maxcode {
		table.maxcode[i] = -1
	}

	var code int32
	si := 0
	for bl := 1; bl <= 16; bl++ {
		cnt := int(bits[bl-1])
		if cnt > 0 {
			table.valptr[bl] = si
			table.mincode[bl] = code
			for i := 0; i < cnt; i++ {
				if bl <= 8 {
					prefix := int(code) << (8 - bl)
					fill := 1 << (8 - bl)
					for k := 0; k < fill; k++ {
						if prefix+k < 256 {
							table.lut[prefix+k] = lutEntry{sym: vals[si], nbits: byte(bl)}
						}
					}
				}
				si++
				code++
			}
			table.maxcode[bl] = code - 1
		}
		code <<= 1
	}
}

func huffDecode(br *bitReader, t *huffTable) (byte, error) {
	const op = "rasterjpeg.huffDecode"
	peek8, err := br.peek(8)
	if err != nil {
		return 0, err
	}
	e := t.lut[peek8]
	if e.nbits > 0 {
		br.dropBits(e.nbits)
		return e.sym, nil
	}
	peek16, err := br.peek(16)
	if err != nil {
		return 0, err
	}
	code0 := int32(peek16)
	for bl := 9; bl <= 16; bl++ {
		code := code0 >> uint(16-bl)
		if t.maxcode[bl] >= 0 && code <= t.maxcode[bl] {
			br.dropBits(uint8(bl))
			idx := t.valptr[bl] + int(code-t.mincode[bl])
			return t.values[idx], nil
		}
	}
	return 0, kind.New(op, kind.BadFormat, nil)
}

func extend(bits uint32, size uint8) int32 {
	half := uint32(1) << (size - 1)
	if bits < half {
		return int32(bits) - (int32(1)<<size - 1)
	}
	return int32(bits)
}

func decodeBlock(br *bitReader, dcHt, acHt *huffTable, dcPred *int32, qt *[64]uint16, blk *[64]int32, se int, al uint8) error {
	const op = "rasterjpeg.decodeBlock"
	for i := range blk {
		blk[i] = 0
	}

	dcSize, err := huffDecode(br, dcHt)
	if err != nil {
		return err
	}
	if dcSize > 0 {
		if dcSize > 11 {
			return kind.New(op, kind.BadFormat, nil)
		}
		bits, err := br.readBits(dcSize)
		if err != nil {
			return err
		}
		*dcPred += extend(bits, dcSize)
	}
	blk[0] = (*dcPred << al) * int32(qt[0])

	if se > 0 {
		k := 1
		for k <= se {
			sym, err := huffDecode(br, acHt)
			if err != nil {
				return err
			}
			run := int(sym >> 4)
			size := sym & 0x0F
			if size == 0 {
				if run == 15 {
					k += 16
				} else {
					break
				}
			} else {
				k += run
				if k > se {
					return kind.New(op, kind.BadFormat, nil)
				}
				bits, err := br.readBits(size)
				if err != nil {
					return err
				}
				val := extend(bits, size)
				blk[zigzag[k]] = (val << al) * int32(qt[k])
				k++
			}
		}
	}
	return nil
}

func skipBlock(br *bitReader, dcHt, acHt *huffTable, dcPred *int32, se int) error {
	dcSize, err := huffDecode(br, dcHt)
	if err != nil {
		return err
	}
	if dcSize > 0 {
		bits, err := br.readBits(dcSize)
		if err != nil {
			return err
		}
		*dcPred += extend(bits, dcSize)
	}
	if se > 0 {
		k := 1
		for k <= se {
			sym, err := huffDecode(br, acHt)
			if err != nil {
				return err
			}
			run := int(sym >> 4)
			size := sym & 0x0F
			if size == 0 {
				if run == 15 {
					k += 16
				} else {
					break
				}
			} else {
				k += run + 1
				if _, err := br.readBits(size); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func idct(block *[64]int32, out *[64]byte) {
	var ws [64]int32

	for row := 0; row < 8; row++ {
		b := row * 8
		d0, d1, d2, d3 := block[b], block[b+1], block[b+2], block[b+3]
		d4, d5, d6, d7 := block[b+4], block[b+5], block[b+6], block[b+7]

		if d1 == 0 && d2 == 0 && d3 == 0 && d4 == 0 && d5 == 0 && d6 == 0 && d7 == 0 {
			dc := d0 << p1
			for i := b; i < b+8; i++ {
				ws[i] = dc
			}
			continue
		}

		z1 := (d2 + d6) * f0541
		tmp2 := z1 + d6*(-f1847)
		tmp3 := z1 + d2*f0765
		tmp0 := (d0 + d4) << cb
		tmp1 := (d0 - d4) << cb
		t10, t13 := tmp0+tmp3, tmp0-tmp3
		t11, t12 := tmp1+tmp2, tmp1-tmp2

		zz1, zz2, zz3, zz4 := d7+d1, d5+d3, d7+d3, d5+d1
		z5 := (zz3 + zz4) * f1175
		o0 := d7 * f0298
		o1 := d5 * f2053
		o2 := d3 * f3072
		o3 := d1 * f1501
		s1, s2 := zz1*(-f0899), zz2*(-f2562)
		s3 := zz3*(-f1961) + z5
		s4 := zz4*(-f0390) + z5
		o0 += s1 + s3
		o1 += s2 + s4
		o2 += s2 + s3
		o3 += s1 + s4

		sh := int32(cb - p1)
		ws[b] = descale(t10+o3, sh)
		ws[b+7] = descale(t10-o3, sh)
		ws[b+1] = descale(t11+o2, sh)
		ws[b+6] = descale(t11-o2, sh)
		ws[b+2] = descale(t12+o1, sh)
		ws[b+5] = descale(t12-o1, sh)
		ws[b+3] = descale(t13+o0, sh)
		ws[b+4] = descale(t13-o0, sh)
	}

	for col := 0; col < 8; col++ {
		d0, d1, d2, d3 := ws[col], ws[col+8], ws[col+16], ws[col+24]
		d4, d5, d6, d7 := ws[col+32], ws[col+40], ws[col+48], ws[col+56]

		if d1 == 0 && d2 == 0 && d3 == 0 && d4 == 0 && d5 == 0 && d6 == 0 && d7 == 0 {
			v := clamp(descale(d0, p1+3) + 128)
			out[col] = v
			out[col+8] = v
			out[col+16] = v
			out[col+24] = v
			out[col+32] = v
			out[col+40] = v
			out[col+48] = v
			out[col+56] = v
			continue
		}

		z1 := (d2 + d6) * f0541
		tmp2 := z1 + d6*(-f1847)
		tmp3 := z1 + d2*f0765
		tmp0 := (d0 + d4) << cb
		tmp1 := (d0 - d4) << cb
		t10, t13 := tmp0+tmp3, tmp0-tmp3
		t11, t12 := tmp1+tmp2, tmp1-tmp2

		zz1, zz2, zz3, zz4 := d7+d1, d5+d3, d7+d3, d5+d1
		z5 := (zz3 + zz4) * f1175
		o0 := d7 * f0298
		o1 := d5 * f2053
		o2 := d3 * f3072
		o3 := d1 * f1501
		s1, s2 := zz1*(-f0899), zz2*(-f2562)
		s3 := zz3*(-f1961) + z5
		s4 := zz4*(-f0390) + z5
		o0 += s1 + s3
		o1 += s2 + s4
		o2 += s2 + s3
		o3 += s1 + s4

		sh := int32(cb + p1 + 3)
		out[col] = clamp(descale(t10+o3, sh) + 128)
		out[col+56] = clamp(descale(t10-o3, sh) + 128)
		out[col+8] = clamp(descale(t11+o2, sh) + 128)
		out[col+48] = clamp(descale(t11-o2, sh) + 128)
		out[col+16] = clamp(descale(t12+o1, sh) + 128)
		out[col+40] = clamp(descale(t12-o1, sh) + 128)
		out[col+24] = clamp(descale(t13+o0, sh) + 128)
		out[col+32] = clamp(descale(t13-o0, sh) + 128)
	}
}

// accumulateBlockRow adds one source row's contribution to a downscale
// block average: for each output column, the sum of the (up to scale)
// source pixels its block spans in this row, added into sums[ox]. The
// block is short at the row's right edge when width isn't a multiple of
// scale.
func accumulateBlockRow(row []byte, outW, scale, width int, sums []int32) {
	for ox := 0; ox < outW; ox++ {
		start := ox * scale
		end := start + scale
		if end > width {
			end = width
		}
		var sum int32
		for sx := start; sx < end; sx++ {
			sum += int32(row[sx])
		}
		sums[ox] += sum
	}
}

func descale(x, n int32) int32 {
	return (x + (1 << uint32(n-1))) >> uint32(n)
}

func clamp(x int32) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// byteSource buffers 4KB reads from an io.Reader for the entropy-coded
// bitstream, distinguishing a genuine read error from having simply run
// out of data.
type byteSource struct {
	r   io.Reader
	buf [4096]byte
	pos, n int
	eof bool
}

func (bs *byteSource) fill() error {
	if bs.pos < bs.n || bs.eof {
		return nil
	}
	n, err := bs.r.Read(bs.buf[:])
	if n > 0 {
		bs.pos = 0
		bs.n = n
		return nil
	}
	bs.eof = true
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (bs *byteSource) readByte() (byte, error) {
	if err := bs.fill(); err != nil {
		return 0, err
	}
	if bs.pos >= bs.n {
		return 0, io.EOF
	}
	b := bs.buf[bs.pos]
	bs.pos++
	return b, nil
}

// bitReader pulls MSB-first bits out of the entropy-coded segment,
// transparently undoing JPEG byte stuffing (0xFF 0x00 -> 0xFF) and
// stashing any marker byte it encounters so consumeRestart can inspect it.
type bitReader struct {
	src    *byteSource
	buf    uint32
	avail  uint8
	marker byte
}

func newBitReader(r io.Reader) *bitReader {
	return &bitReader{src: &byteSource{r: r}}
}

func (br *bitReader) nextByte() (byte, error) {
	if br.marker != 0 {
		return 0, nil
	}
	b, err := br.src.readByte()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return b, nil
	}
	for {
		next, err := br.src.readByte()
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		switch next {
		case 0x00:
			return 0xFF, nil
		case 0xFF:
			continue
		default:
			br.marker = next
			return 0, nil
		}
	}
}

func (br *bitReader) ensure(n uint8) error {
	for br.avail < n {
		b, err := br.nextByte()
		if err != nil {
			return err
		}
		br.buf |= uint32(b) << (24 - br.avail)
		br.avail += 8
	}
	return nil
}

func (br *bitReader) peek(n uint8) (uint32, error) {
	if err := br.ensure(n); err != nil {
		return 0, err
	}
	return br.buf >> (32 - uint32(n)), nil
}

func (br *bitReader) dropBits(n uint8) {
	br.buf <<= uint32(n)
	br.avail -= n
}

func (br *bitReader) readBits(n uint8) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := br.ensure(n); err != nil {
		return 0, err
	}
	val := br.buf >> (32 - uint32(n))
	br.buf <<= uint32(n)
	br.avail -= n
	return val, nil
}

func (br *bitReader) consumeRestart() error {
	br.buf = 0
	br.avail = 0
	if br.marker != 0 {
		br.marker = 0
		return nil
	}
outer:
	for {
		b, err := br.src.readByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		for {
			m, err := br.src.readByte()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if m == 0xFF {
				continue
			}
			if m == 0x00 {
				continue outer
			}
			return nil
		}
	}
}
