// Package chapter fuses a ZIP entry's streaming decompression directly into
// the HTML-to-styled-text transducer, so a chapter's compressed bytes, its
// decompressed markup, and its styled-run output never all exist as a
// single materialized buffer at once — only the DEFLATE window and the
// current text run accumulator do.
//
// Grounded on the reference reader's Chapter type, which gives a Chapter
// value a lazy, re-readable handle onto its own zip entry (RawContent/
// TextContent/BodyHTML each re-decompress on demand rather than caching);
// this package keeps that "handle, not materialized string" shape but
// replaces the single decompress-then-parse call with one fused streaming
// pass.
package chapter

import (
	"io"

	"github.com/foliopress/leafcore/cssprop"
	"github.com/foliopress/leafcore/htmlstrip"
	"github.com/foliopress/leafcore/internal/kind"
	"github.com/foliopress/leafcore/zipidx"
)

// Handle is a lazy reference to one spine item's compressed chapter markup.
// It holds no decompressed content; each Stream call re-extracts.
type Handle struct {
	ra    io.ReaderAt
	entry zipidx.Entry
	rules *cssprop.Rules
}

// New wraps a ZIP entry as a chapter handle. rules, if non-nil, is resolved
// against every opened element's tag and class as its markup streams
// through; the caller owns rules and may share one across every chapter in
// a book.
func New(ra io.ReaderAt, entry zipidx.Entry, rules *cssprop.Rules) Handle {
	return Handle{ra: ra, entry: entry, rules: rules}
}

// Stream decompresses the chapter and feeds it through an HTML stripper in
// one fused pass, delivering styled runs and image references to the
// caller as they're produced. It never holds the chapter's markup, or its
// compressed bytes, in a single whole-document buffer.
func (h Handle) Stream(onRun htmlstrip.RunFunc, onImage htmlstrip.ImageFunc) error {
	strip := htmlstrip.Stripper{Rules: h.rules}
	_, err := zipidx.StreamExtract(h.ra, h.entry, func(chunk []byte) error {
		return strip.Feed(chunk, onRun, onImage)
	})
	if err != nil {
		return err
	}
	if err := strip.Finish(onRun); err != nil {
		if kind.Of(err) == kind.Unknown {
			err = kind.New("chapter.Stream", kind.Write, err)
		}
		return err
	}
	return nil
}

// RawText decompresses the chapter and returns its plain text content
// (all styling and image references discarded), for callers that just want
// a searchable/exportable string. This does materialize the whole chapter
// as one string — same tradeoff the reference reader's TextContent method
// makes — unlike Stream, which never does.
func (h Handle) RawText() (string, error) {
	var out []byte
	err := h.Stream(func(r htmlstrip.StyledRun) error {
		if len(out) > 0 {
			switch r.Break {
			case htmlstrip.BreakParagraph, htmlstrip.BreakSection:
				out = append(out, '\n', '\n')
			case htmlstrip.BreakHard, htmlstrip.BreakSoft:
				out = append(out, '\n')
			default:
				out = append(out, ' ')
			}
		}
		out = append(out, r.Text...)
		return nil
	}, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
