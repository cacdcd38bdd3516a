package epub

// Identifier is one <dc:identifier> entry, e.g. an ISBN or a Gutenberg URN.
type Identifier struct {
	Value  string
	Scheme string
	ID     string
}

// Author is one <dc:creator> or <dc:contributor> entry.
type Author struct {
	Name   string
	FileAs string
	Role   string
}

// Metadata is the subset of Dublin Core / OPF metadata this reader surfaces.
type Metadata struct {
	Title       string
	Language    string
	Authors     []Author
	Identifiers []Identifier
	Publisher   string
	Date        string
	Description string
	Rights      string
	Source      string
}

// ManifestItem is one <item> from the OPF manifest, href resolved relative
// to the archive root (not the OPF's own directory).
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem is one <itemref> from the OPF spine, resolved against the
// manifest to its href.
type SpineItem struct {
	ManifestID string
	Href       string
	MediaType  string
	// Linear is false for itemref linear="no" — content the default
	// reading order skips. Filtering these out is left as a host policy
	// decision, so leafcore always keeps them in Book.Spine.
	Linear bool
}

// TOCItem is one entry in a table of contents (from EPUB3 nav or EPUB2
// NCX), resolved against the spine. A TOC is a flat []TOCItem in document
// (pre-order) order rather than a tree: Depth carries the nesting level a
// caller would otherwise reconstruct by walking Children, without any
// item owning a reference to another.
type TOCItem struct {
	Title string
	Href  string
	// Depth is this entry's nesting level, 0 for a top-level entry. An
	// entry's descendants are the run of immediately following entries
	// with a greater Depth, up to the next entry at Depth or shallower.
	Depth int
	// SpineIndex is the spine position this entry's href resolves to, or
	// -1 if it couldn't be resolved.
	SpineIndex int
	// SpineEndIndex is the exclusive end of the spine range this entry's
	// content extends through, before the next sibling/uncle TOC entry
	// begins, or -1 if SpineIndex is -1.
	SpineEndIndex int
}
