package epub

import (
	"io"
	"os"
	"strings"

	"github.com/foliopress/leafcore/chapter"
	"github.com/foliopress/leafcore/cssprop"
	"github.com/foliopress/leafcore/internal/kind"
	"github.com/foliopress/leafcore/zipidx"
)

// expectedMimetype is the required content of the "mimetype" entry in a
// valid EPUB archive.
const expectedMimetype = "application/epub+zip"

// Book is the main entry point for reading an EPUB. Use Open or NewReader
// to create one.
//
// A Book is not safe for concurrent use by multiple goroutines.
type Book struct {
	ra     io.ReaderAt
	closer io.Closer // non-nil only when created via Open

	idx     zipidx.Index
	opfPath string

	manifestByID   map[string]ManifestItem
	manifestByHref map[string]ManifestItem
	manifestOrder  []ManifestItem // same order as the OPF manifest, for deterministic first-match scans
	spineTOCID     string         // <spine toc="..."> idref, empty if absent
	spine          []SpineItem
	metadata       Metadata
	toc            []TOCItem
	landmarks      []TOCItem
	warnings       []string
	cssRules       cssprop.Rules
}

// Open opens an EPUB file at path. The caller must call Close when done.
func Open(name string) (*Book, error) {
	const op = "epub.Open"
	f, err := os.Open(name)
	if err != nil {
		return nil, kind.New(op, kind.Read, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, kind.New(op, kind.Read, err)
	}
	b, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	b.closer = f
	return b, nil
}

// NewReader builds a Book from an io.ReaderAt of the given size — a
// host-supplied random-access read callback expressed as the standard
// interface os.File already implements. The caller owns r's lifetime;
// Close only releases state Open itself allocated.
func NewReader(ra io.ReaderAt, size int64) (*Book, error) {
	const op = "epub.NewReader"
	b := &Book{ra: ra}

	tailLen := int64(65535 + 22)
	if tailLen > size {
		tailLen = size
	}
	tail := make([]byte, tailLen)
	if _, err := ra.ReadAt(tail, size-tailLen); err != nil && err != io.EOF {
		return nil, kind.New(op, kind.Read, err)
	}
	cdOffset, cdSize, err := zipidx.ParseEOCD(tail, uint32(size))
	if err != nil {
		return nil, err
	}
	cd := make([]byte, cdSize)
	if _, err := ra.ReadAt(cd, int64(cdOffset)); err != nil && err != io.EOF {
		return nil, kind.New(op, kind.Read, err)
	}
	if err := b.idx.ParseCentralDirectory(cd); err != nil {
		return nil, err
	}

	b.validateMimetype()

	containerData, err := b.readFile(containerPath)
	if err != nil {
		return nil, err
	}
	opfPath, err := parseContainer(&b.idx, containerData)
	if err != nil {
		return nil, err
	}
	b.opfPath = opfPath

	opfData, err := b.readFile(opfPath)
	if err != nil {
		return nil, err
	}
	doc, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}

	b.manifestByID = make(map[string]ManifestItem, len(doc.Manifest))
	b.manifestByHref = make(map[string]ManifestItem, len(doc.Manifest))
	b.manifestOrder = make([]ManifestItem, 0, len(doc.Manifest))
	for _, item := range doc.Manifest {
		item.Href = b.resolveOPFPath(item.Href)
		b.manifestByID[item.ID] = item
		b.manifestByHref[item.Href] = item
		b.manifestOrder = append(b.manifestOrder, item)
	}
	b.spineTOCID = doc.SpineTOC
	for _, ref := range doc.Spine {
		item, ok := b.manifestByID[ref.IDRef]
		if !ok {
			continue
		}
		b.spine = append(b.spine, SpineItem{
			ManifestID: item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Linear:     ref.Linear,
		})
	}

	b.loadStylesheets()

	b.metadata = extractMetadata(doc)
	b.parseTOC()

	return b, nil
}

// loadStylesheets parses every manifest-listed CSS document into b.cssRules,
// so chapter.Handle can resolve class and inline selectors while streaming
// each chapter's markup. A stylesheet a chapter never <link>s still applies:
// resolving true per-chapter stylesheet scoping would need a second
// streaming pass over each chapter's <head> before the fused
// decompress-and-strip pass chapter.Handle.Stream does, which this pipeline
// avoids by applying every book-level stylesheet globally instead. An
// unreadable or unparsable stylesheet is a warning, not a fatal error — the
// same tolerance validateMimetype gives a malformed mimetype entry.
func (b *Book) loadStylesheets() {
	for _, item := range b.manifestOrder {
		if !strings.EqualFold(item.MediaType, "text/css") {
			continue
		}
		data, err := b.readFile(item.Href)
		if err != nil {
			b.warnings = append(b.warnings, "cannot read stylesheet "+item.Href+": "+err.Error())
			continue
		}
		b.cssRules.Parse(data)
	}
}

// validateMimetype checks the archive's first entry, recording any
// deviation as a warning rather than a hard failure — readers care more
// about extracting content than about strict conformance.
func (b *Book) validateMimetype() {
	if b.idx.Count() == 0 {
		b.warnings = append(b.warnings, "empty archive; mimetype entry missing")
		return
	}
	first := b.idx.Entry(0)
	if first.Name != "mimetype" {
		b.warnings = append(b.warnings, "first archive entry is not \"mimetype\"")
		return
	}
	data, err := b.ReadFile("mimetype")
	if err != nil {
		b.warnings = append(b.warnings, "cannot read mimetype entry: "+err.Error())
		return
	}
	if string(data) != expectedMimetype {
		b.warnings = append(b.warnings, "unexpected mimetype: "+string(data))
	}
}

// Close releases resources Open allocated. Close is idempotent, and a
// no-op for Books created via NewReader.
func (b *Book) Close() error {
	if b.closer != nil {
		err := b.closer.Close()
		b.closer = nil
		return err
	}
	return nil
}

// findEntry looks up a ZIP-internal path, trying an exact match first and
// falling back to a case-insensitive one — see DESIGN.md's Open Question
// decision on case sensitivity.
func (b *Book) findEntry(name string) (zipidx.Entry, bool) {
	if e, ok := b.idx.Find(name); ok {
		return e, true
	}
	return b.idx.FindFold(name)
}

// ReadFile reads a whole archive entry by ZIP-internal path, materializing
// it as a single buffer. Used for small structural files (container.xml,
// the OPF, NCX/nav documents); chapter content should go through Chapter
// instead so it never needs a whole-file buffer.
func (b *Book) ReadFile(name string) ([]byte, error) {
	const op = "epub.ReadFile"
	entry, ok := b.findEntry(name)
	if !ok {
		return nil, kind.New(op, kind.NotFound, nil)
	}
	buf := make([]byte, entry.UncompSize)
	n, err := zipidx.ExtractEntry(b.ra, entry, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (b *Book) readFile(name string) ([]byte, error) {
	return b.ReadFile(name)
}

// resolveOPFPath resolves href against the OPF's own directory, producing
// an archive-root-relative path. Manifest hrefs are percent-encoded the
// same way TOC hrefs are (OPF §4.9.1 permits it), so this shares
// resolveRelativePath's decoding and traversal guard rather than a bare
// path.Join that would leave "%20" and "../" unhandled.
func (b *Book) resolveOPFPath(href string) string {
	return resolveRelativePath(b.opfPath, href)
}

// HasTOC reports whether the EPUB carries a non-empty table of contents.
func (b *Book) HasTOC() bool {
	return len(b.toc) > 0
}

// Metadata returns the extracted Dublin Core / OPF metadata.
func (b *Book) Metadata() Metadata {
	md := b.metadata
	md.Authors = append([]Author(nil), b.metadata.Authors...)
	md.Identifiers = append([]Identifier(nil), b.metadata.Identifiers...)
	return md
}

// Warnings returns non-fatal issues accumulated while opening the archive.
func (b *Book) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// TOC returns the table of contents as a flat, document-order,
// spine-index-resolved list. See TOCItem.Depth for reconstructing nesting.
func (b *Book) TOC() []TOCItem {
	return copyTOCItems(b.toc)
}

// Landmarks returns an EPUB3 nav document's landmarks, or nil for EPUB2
// sources or documents that don't carry any.
func (b *Book) Landmarks() []TOCItem {
	return copyTOCItems(b.landmarks)
}

// Manifest returns every manifest item, keyed by archive-root-relative href.
func (b *Book) Manifest() map[string]ManifestItem {
	out := make(map[string]ManifestItem, len(b.manifestByHref))
	for k, v := range b.manifestByHref {
		out[k] = v
	}
	return out
}

// Spine returns the reading order. See DESIGN.md's Open Question decision:
// linear="no" items are included, tagged via SpineItem.Linear.
func (b *Book) Spine() []SpineItem {
	return append([]SpineItem(nil), b.spine...)
}

// Chapter returns a lazy handle onto the i'th spine item's content. The
// handle holds no decompressed data; each call to its Stream method
// re-extracts and re-parses.
func (b *Book) Chapter(i int) (chapter.Handle, error) {
	const op = "epub.Chapter"
	if i < 0 || i >= len(b.spine) {
		return chapter.Handle{}, kind.New(op, kind.NotFound, nil)
	}
	entry, ok := b.findEntry(b.spine[i].Href)
	if !ok {
		return chapter.Handle{}, kind.New(op, kind.NotFound, nil)
	}
	return chapter.New(b.ra, entry, &b.cssRules), nil
}

func copyTOCItems(in []TOCItem) []TOCItem {
	if in == nil {
		return nil
	}
	out := make([]TOCItem, len(in))
	copy(out, in)
	return out
}

// tocSourceKind distinguishes the document format a resolved TOC source
// path names, so parseTOC knows which parser to hand it to.
type tocSourceKind uint8

const (
	tocSourceNav tocSourceKind = iota
	tocSourceNCX
)

// parseTOC locates and parses this book's table of contents, then
// resolves the resulting tree's spine ranges. A missing or unparsable TOC
// is non-fatal: b.toc stays nil.
func (b *Book) parseTOC() {
	if path, kind, ok := b.findTOCSource(); ok {
		if data, err := b.readFile(path); err == nil {
			switch kind {
			case tocSourceNav:
				b.toc, b.landmarks = parseNavDocument(data, path)
			case tocSourceNCX:
				b.toc = parseNCX(data, path)
			}
		}
	}
	if b.toc == nil {
		return
	}

	spineMap := make(map[string]int, len(b.spine))
	for i, si := range b.spine {
		if _, exists := spineMap[si.Href]; !exists {
			spineMap[si.Href] = i
		}
	}
	resolveTOCSpineRanges(b.toc, spineMap, len(b.spine))
	if b.landmarks != nil {
		resolveTOCSpineRanges(b.landmarks, spineMap, len(b.spine))
	}
}

// findTOCSource resolves this book's table-of-contents document through
// three tiers, in order, the first manifest match winning: an EPUB3 nav
// document (a manifest item whose properties list "nav"); an EPUB2
// <spine toc="id"> pointing at a manifest item by id; and, failing both,
// any manifest item whose media-type is the NCX one, for the EPUB2 books
// that omit the spine's toc attribute but still ship a toc.ncx. Each tier
// scans b.manifestOrder rather than the ID/href maps, so the same input
// always resolves to the same document regardless of Go's randomized map
// iteration order.
func (b *Book) findTOCSource() (path string, kind tocSourceKind, ok bool) {
	for _, item := range b.manifestOrder {
		for _, p := range item.Properties {
			if p == "nav" {
				return item.Href, tocSourceNav, true
			}
		}
	}

	if b.spineTOCID != "" {
		if item, found := b.manifestByID[b.spineTOCID]; found {
			return item.Href, tocSourceNCX, true
		}
	}

	for _, item := range b.manifestOrder {
		if strings.EqualFold(item.MediaType, "application/x-dtbncx+xml") {
			return item.Href, tocSourceNCX, true
		}
	}

	return "", 0, false
}
