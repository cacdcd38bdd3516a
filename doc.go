// Package epub parses EPUB 2 and EPUB 3 archives without ever holding a
// whole chapter's decompressed markup, let alone the whole archive, in
// memory at once. It builds a ZIP central directory index over an
// io.ReaderAt (see the zipidx package), reads container.xml and the OPF
// package document with a single-pass scanner (see xmlscan), and hands
// chapter content to callers through the chapter package's streaming
// decompress-and-strip pipeline.
//
// # Opening an EPUB
//
// Use [Open] to open a file by path, or [NewReader] to wrap any
// [io.ReaderAt] — an *os.File already satisfies it, so a host reading from
// a memory-mapped file or a device's flash storage can supply its own:
//
//	book, err := epub.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Close()
//
// # Metadata
//
// [Book.Metadata] returns title, authors, language, identifiers, and the
// remaining Dublin Core fields:
//
//	md := book.Metadata()
//	fmt.Println(md.Title)
//
// # Table of Contents
//
// [Book.TOC] returns a flat, document-order []TOCItem; each entry's Depth
// carries the nesting a tree would otherwise encode. Each entry's
// SpineIndex and SpineEndIndex mark the range of spine items its content
// covers, resolved from either an EPUB3 nav document or an EPUB2 NCX:
//
//	for _, item := range book.TOC() {
//	    fmt.Println(item.Title, item.Href, item.SpineIndex)
//	}
//
// # Chapters
//
// [Book.Spine] returns the reading order; [Book.Chapter] returns a lazy
// [chapter.Handle] for a spine index. A Handle holds no decompressed
// content — its Stream method fuses decompression and HTML stripping into
// one pass, delivering styled runs as they're produced:
//
//	for i := range book.Spine() {
//	    ch, _ := book.Chapter(i)
//	    ch.Stream(func(r htmlstrip.StyledRun) error {
//	        fmt.Println(r.Text)
//	        return nil
//	    }, nil)
//	}
//
// # Error Handling
//
// Every failing call returns a *kind.Error, classified by a small taxonomy
// (kind.NotFound, kind.BadFormat, kind.Checksum, and so on) rather than by
// error identity — callers branch on Kind via kind.Of.
//
// If no table of contents is present, [Book.TOC] returns nil and
// [Book.HasTOC] returns false.
package epub
