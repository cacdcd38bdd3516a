package zipidx

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

// buildZip constructs a real ZIP archive (via the standard library's
// writer, which is fine to use for test fixtures — only the reader side is
// reimplemented) containing the given name/content/method entries.
func buildZip(t *testing.T, files map[string]string, store map[string]bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		method := zip.Deflate
		if store[name] {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("CreateHeader: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func mustIndex(t *testing.T, data []byte) *Index {
	t.Helper()
	cdOffset, cdSize, err := ParseEOCD(data, uint32(len(data)))
	if err != nil {
		t.Fatalf("ParseEOCD: %v", err)
	}
	idx := &Index{}
	if err := idx.ParseCentralDirectory(data[cdOffset : cdOffset+cdSize]); err != nil {
		t.Fatalf("ParseCentralDirectory: %v", err)
	}
	return idx
}

func TestParseEOCDAndCentralDirectory(t *testing.T) {
	data := buildZip(t, map[string]string{
		"mimetype":          "application/epub+zip",
		"OEBPS/chapter1.xhtml": strings.Repeat("<p>hello</p>", 50),
	}, map[string]bool{"mimetype": true})

	idx := mustIndex(t, data)
	if idx.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Count())
	}
	e, ok := idx.Find("mimetype")
	if !ok || e.Method != MethodStored {
		t.Fatalf("expected stored mimetype entry, got %+v ok=%v", e, ok)
	}
	e2, ok := idx.Find("OEBPS/chapter1.xhtml")
	if !ok || e2.Method != MethodDeflate {
		t.Fatalf("expected deflate chapter entry, got %+v ok=%v", e2, ok)
	}
}

func TestFindFoldCaseInsensitive(t *testing.T) {
	data := buildZip(t, map[string]string{"OEBPS/Cover.jpg": "x"}, nil)
	idx := mustIndex(t, data)
	if _, ok := idx.Find("oebps/cover.jpg"); ok {
		t.Fatalf("Find should be case-sensitive")
	}
	if _, ok := idx.FindFold("oebps/cover.jpg"); !ok {
		t.Fatalf("FindFold should match regardless of case")
	}
}

func TestStreamExtractStoredAndDeflate(t *testing.T) {
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 500)
	data := buildZip(t, map[string]string{
		"stored.txt":  content,
		"deflate.txt": content,
	}, map[string]bool{"stored.txt": true})
	idx := mustIndex(t, data)
	ra := bytes.NewReader(data)

	for _, name := range []string{"stored.txt", "deflate.txt"} {
		e, ok := idx.Find(name)
		if !ok {
			t.Fatalf("missing entry %s", name)
		}
		var out bytes.Buffer
		n, err := StreamExtract(ra, e, func(chunk []byte) error {
			_, werr := out.Write(chunk)
			return werr
		})
		if err != nil {
			t.Fatalf("StreamExtract(%s): %v", name, err)
		}
		if out.String() != content {
			t.Fatalf("StreamExtract(%s) mismatch: got %d bytes want %d", name, n, len(content))
		}
	}
}

func TestExtractEntryBufferTooSmall(t *testing.T) {
	data := buildZip(t, map[string]string{"a.txt": "some content here"}, nil)
	idx := mustIndex(t, data)
	e, _ := idx.Find("a.txt")
	ra := bytes.NewReader(data)

	buf := make([]byte, 2)
	if _, err := ExtractEntry(ra, e, buf); err == nil {
		t.Fatalf("expected BufferTooSmall error")
	}
}

func TestExtractEntryExactFit(t *testing.T) {
	content := "exact fit content"
	data := buildZip(t, map[string]string{"a.txt": content}, nil)
	idx := mustIndex(t, data)
	e, _ := idx.Find("a.txt")
	ra := bytes.NewReader(data)

	buf := make([]byte, len(content))
	n, err := ExtractEntry(ra, e, buf)
	if err != nil {
		t.Fatalf("ExtractEntry: %v", err)
	}
	if string(buf[:n]) != content {
		t.Fatalf("got %q want %q", buf[:n], content)
	}
}
