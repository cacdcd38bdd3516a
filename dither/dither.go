// Package dither provides the Floyd-Steinberg error-diffusion and integer
// downscale-factor helpers shared by rasterpng and rasterjpeg, so both
// decoders quantize grayscale rows to a 1-bit-per-pixel bitmap the same
// way, one row at a time, without either holding a whole decoded image.
//
// Grounded on original_source/smol-epub/src/png.rs's dither_row and its
// scale-factor computation, which jpeg.rs's own decoder duplicates
// verbatim in the original; this package exists so this module states it
// once instead of twice.
package dither

// Scale returns the integer downscale factor n such that ceil(width/n) <=
// maxW and ceil(height/n) <= maxH, or 1 if the source already fits. A
// decoder averages each n x n block of source pixels/rows into one output
// pixel/row, one row at a time, rather than holding the source image
// whole to resample it properly.
func Scale(width, height uint32, maxW, maxH uint16) int {
	if maxW == 0 || maxH == 0 {
		return 1
	}
	sw := (width + uint32(maxW) - 1) / uint32(maxW)
	sh := (height + uint32(maxH) - 1) / uint32(maxH)
	scale := sw
	if sh > scale {
		scale = sh
	}
	if scale < 1 {
		scale = 1
	}
	return int(scale)
}

// FloydSteinberg dithers a stream of 8-bit grayscale rows into packed
// 1-bit-per-pixel rows, carrying diffused error from one row into the
// next. A set output bit is ink (black); a clear bit is paper (white).
// The zero value is not usable; construct with New.
type FloydSteinberg struct {
	width    int
	cur, nxt []int16 // len width+2; index 0 and width+1 are sentinels
}

// New returns a FloydSteinberg ready to dither rows of the given output
// width.
func New(width int) *FloydSteinberg {
	return &FloydSteinberg{
		width: width,
		cur:   make([]int16, width+2),
		nxt:   make([]int16, width+2),
	}
}

// Row dithers grey (one 0-255 sample per output pixel, len(grey) ==
// width) into out, a packed-MSB-first bitmap row of ceil(width/8) bytes.
// out is zeroed by the caller between rows; Row only ever sets bits.
func (fs *FloydSteinberg) Row(grey []byte, out []byte) {
	for ox := 0; ox < fs.width; ox++ {
		val := int16(grey[ox]) + fs.cur[ox+1]
		if val < 0 {
			val = 0
		} else if val > 255 {
			val = 255
		}
		black := val < 128
		var quantized int16
		if !black {
			quantized = 255
		}
		errv := val - quantized

		if black {
			out[ox/8] |= 1 << (7 - uint(ox&7))
		}

		fs.cur[ox+2] += errv * 7 / 16
		fs.nxt[ox] += errv * 3 / 16
		fs.nxt[ox+1] += errv * 5 / 16
		fs.nxt[ox+2] += errv / 16
	}
	fs.cur, fs.nxt = fs.nxt, fs.cur
	for i := range fs.nxt {
		fs.nxt[i] = 0
	}
}
