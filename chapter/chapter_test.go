package chapter

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/foliopress/leafcore/htmlstrip"
	"github.com/foliopress/leafcore/zipidx"
)

func buildEntry(t *testing.T, name, content string) (*bytes.Reader, zipidx.Entry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data := buf.Bytes()

	cdOffset, cdSize, err := zipidx.ParseEOCD(data, uint32(len(data)))
	if err != nil {
		t.Fatalf("ParseEOCD: %v", err)
	}
	idx := &zipidx.Index{}
	if err := idx.ParseCentralDirectory(data[cdOffset : cdOffset+cdSize]); err != nil {
		t.Fatalf("ParseCentralDirectory: %v", err)
	}
	entry, ok := idx.Find(name)
	if !ok {
		t.Fatalf("entry %s not found", name)
	}
	return bytes.NewReader(data), entry
}

func TestStreamProducesRunsFromCompressedChapter(t *testing.T) {
	ra, entry := buildEntry(t, "OEBPS/ch1.xhtml", "<html><body><h1>Title</h1><p>Some <b>bold</b> text.</p></body></html>")
	h := New(ra, entry, nil)

	var runs []htmlstrip.StyledRun
	err := h.Stream(func(r htmlstrip.StyledRun) error {
		runs = append(runs, r)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(runs) == 0 {
		t.Fatalf("expected runs, got none")
	}
	if runs[0].Text != "Title" || runs[0].Style != htmlstrip.Heading1 {
		t.Errorf("unexpected first run: %+v", runs[0])
	}
}

func TestRawTextJoinsRunsWithBreaks(t *testing.T) {
	ra, entry := buildEntry(t, "ch.xhtml", "<p>First paragraph.</p><p>Second paragraph.</p>")
	h := New(ra, entry, nil)

	text, err := h.RawText()
	if err != nil {
		t.Fatalf("RawText: %v", err)
	}
	want := "First paragraph.\n\nSecond paragraph."
	if text != want {
		t.Fatalf("got %q want %q", text, want)
	}
}
