package deflate

import (
	"bytes"
	"compress/flate"
	"errors"
	"testing"
)

// encode produces a real DEFLATE stream using the standard library's
// encoder, so these tests exercise our decoder against byte-for-byte
// standard-conformant input without ever importing compress/flate into the
// decoder itself.
func encode(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func inflateAll(t *testing.T, compressed []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	n, err := Inflate(bytes.NewReader(compressed), func(chunk []byte) error {
		_, werr := out.Write(chunk)
		return werr
	})
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if int(n) != out.Len() {
		t.Fatalf("reported length %d != sink total %d", n, out.Len())
	}
	return out.Bytes()
}

func TestInflateStoredBlock(t *testing.T) {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, 0) // level 0 forces stored blocks
	data := []byte("hello, deflate world")
	w.Write(data)
	w.Close()

	got := inflateAll(t, buf.Bytes())
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q want %q", got, data)
	}
}

func TestInflateFixedAndDynamicHuffman(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	compressed := encode(t, data)
	got := inflateAll(t, compressed)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes want %d", len(got), len(data))
	}
}

func TestInflateAcrossWindowWrap(t *testing.T) {
	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	compressed := encode(t, data)
	got := inflateAll(t, compressed)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch across %d bytes", len(data))
	}
}

func TestInflateAbortsOnSinkErrorAcrossWindowWrap(t *testing.T) {
	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	compressed := encode(t, data)

	errAbort := errors.New("host cancelled")
	var seen int
	calls := 0
	_, err := Inflate(bytes.NewReader(compressed), func(chunk []byte) error {
		calls++
		seen += len(chunk)
		if calls == 2 {
			return errAbort
		}
		return nil
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Inflate error = %v, want errAbort", err)
	}
	if seen >= len(data) {
		t.Fatalf("sink saw %d bytes after aborting on call 2, want less than the full %d-byte stream", seen, len(data))
	}
}

func TestInflateEmptyInput(t *testing.T) {
	compressed := encode(t, nil)
	got := inflateAll(t, compressed)
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %d bytes", len(got))
	}
}
