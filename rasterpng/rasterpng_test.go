package rasterpng

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildChunk(ctype string, data []byte) []byte {
	var buf bytes.Buffer
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(data)))
	buf.Write(lenBytes[:])
	buf.WriteString(ctype)
	buf.Write(data)
	buf.Write([]byte{0, 0, 0, 0}) // CRC, unchecked by this decoder
	return buf.Bytes()
}

// buildGreyscalePNG assembles a minimal, hand-built 2x2 8-bit greyscale
// PNG: two unfiltered scanlines packed into a single stored (uncompressed)
// DEFLATE block, wrapped in a two-byte zlib header. Its CRCs are zeroed;
// this decoder never checks them.
func buildGreyscalePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(pngSignature[:])

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 2) // width
	binary.BigEndian.PutUint32(ihdr[4:8], 2) // height
	ihdr[8] = 8                              // bit depth
	ihdr[9] = colorGreyscale
	buf.Write(buildChunk("IHDR", ihdr))

	raw := []byte{
		0x00, 0x00, 0xFF, // filter=None, row0 = black, white
		0x00, 0xFF, 0x00, // filter=None, row1 = white, black
	}
	deflateStream := []byte{
		0x01,             // BFINAL=1, BTYPE=00 (stored)
		0x06, 0x00,       // LEN=6
		0xF9, 0xFF,       // NLEN = ^LEN
	}
	deflateStream = append(deflateStream, raw...)

	idatData := append([]byte{0x78, 0x01}, deflateStream...) // zlib header
	idatData = append(idatData, 0, 0, 0, 0)                  // adler32 placeholder
	buf.Write(buildChunk("IDAT", idatData))
	buf.Write(buildChunk("IEND", nil))

	return buf.Bytes()
}

func TestDecodeGreyscaleNoDownscale(t *testing.T) {
	data := buildGreyscalePNG(t)
	var rows [][]byte
	w, h, err := Decode(bytes.NewReader(data), 800, 600, func(row []byte) error {
		rows = append(rows, append([]byte(nil), row...))
		return nil
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w != 2 || h != 2 {
		t.Fatalf("dimensions = %dx%d, want 2x2", w, h)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != 0x80 {
		t.Errorf("row0 = %08b, want %08b (black, white)", rows[0][0], byte(0x80))
	}
	if rows[1][0] != 0x40 {
		t.Errorf("row1 = %08b, want %08b (white, black)", rows[1][0], byte(0x40))
	}
}

// build4x4GreyscalePNG assembles a 4x4 8-bit greyscale PNG whose block
// average (15) and top-left corner sample (255) fall on opposite sides of
// the dithering threshold, so a test can tell block-averaging apart from
// nearest-neighbour-by-stride sampling by which side of the threshold the
// single downscaled output pixel lands on.
func build4x4GreyscalePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(pngSignature[:])

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 4)
	binary.BigEndian.PutUint32(ihdr[4:8], 4)
	ihdr[8] = 8
	ihdr[9] = colorGreyscale
	buf.Write(buildChunk("IHDR", ihdr))

	raw := []byte{
		0x00, 255, 0, 0, 0,
		0x00, 0, 0, 0, 0,
		0x00, 0, 0, 0, 0,
		0x00, 0, 0, 0, 0,
	}
	deflateStream := []byte{
		0x01,       // BFINAL=1, BTYPE=00 (stored)
		0x14, 0x00, // LEN=20
		0xEB, 0xFF, // NLEN = ^LEN
	}
	deflateStream = append(deflateStream, raw...)

	idatData := append([]byte{0x78, 0x01}, deflateStream...)
	idatData = append(idatData, 0, 0, 0, 0)
	buf.Write(buildChunk("IDAT", idatData))
	buf.Write(buildChunk("IEND", nil))

	return buf.Bytes()
}

func TestDecodeDownscaleAveragesBlockNotCorner(t *testing.T) {
	data := build4x4GreyscalePNG(t)
	var rows [][]byte
	w, h, err := Decode(bytes.NewReader(data), 1, 1, func(row []byte) error {
		rows = append(rows, append([]byte(nil), row...))
		return nil
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w != 1 || h != 1 {
		t.Fatalf("dimensions = %dx%d, want 1x1", w, h)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	// The block's average (255+0*15)/16 = 15 is well below the dithering
	// threshold, so the single output pixel should be ink (bit set).
	// Nearest-corner sampling would have picked the 255 (white) corner
	// pixel and produced a clear bit instead.
	if rows[0][0]&0x80 == 0 {
		t.Fatalf("expected the averaged block (mostly black) to dither to ink, got %08b", rows[0][0])
	}
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	data := append([]byte("not a png"), make([]byte, 20)...)
	if _, _, err := Decode(bytes.NewReader(data), 800, 600, func([]byte) error { return nil }); err == nil {
		t.Fatal("expected an error for a bad signature")
	}
}

func TestDecodeRejectsInterlacedImages(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 2)
	binary.BigEndian.PutUint32(ihdr[4:8], 2)
	ihdr[8] = 8
	ihdr[9] = colorGreyscale
	ihdr[12] = 1 // Adam7 interlacing
	buf.Write(buildChunk("IHDR", ihdr))

	if _, _, err := Decode(bytes.NewReader(buf.Bytes()), 800, 600, func([]byte) error { return nil }); err == nil {
		t.Fatal("expected an error for an interlaced image")
	}
}

func TestUnpackSubByteExpandsBitDepthToFullRange(t *testing.T) {
	row := []byte{0b1011_0100} // four 2-bit samples, MSB first: 10, 11, 01, 00
	if got := unpackSubByte(row, 0, 2); got != 170 {
		t.Errorf("sample 0: got %d, want 170 (2 of 3 scaled to 255)", got)
	}
	if got := unpackSubByte(row, 1, 2); got != 255 {
		t.Errorf("sample 1: got %d, want 255", got)
	}
	if got := unpackSubByte(row, 3, 2); got != 0 {
		t.Errorf("sample 3: got %d, want 0", got)
	}
}

func TestPaethPicksNearestPredictor(t *testing.T) {
	if got := paeth(10, 20, 10); got != 20 {
		t.Errorf("got %d, want 20 (b closest)", got)
	}
	if got := paeth(0, 0, 0); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
