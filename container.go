package epub

import (
	"strings"

	"github.com/foliopress/leafcore/internal/kind"
	"github.com/foliopress/leafcore/xmlscan"
	"github.com/foliopress/leafcore/zipidx"
)

// containerPath is the well-known location of container.xml in an EPUB archive.
const containerPath = "META-INF/container.xml"

// maxContainerPathLen bounds the rootfile full-path attribute at the same
// length zipidx bounds a ZIP entry name at: a longer container path could
// never resolve to a real entry anyway.
const maxContainerPathLen = 1024

// parseContainer locates the OPF path from a parsed ZIP index, reading
// META-INF/container.xml in a single scanner pass. If the file is missing
// or unparsable it falls back to scanning central directory entries for a
// ".opf" name, per original_source's own fallback order.
func parseContainer(idx *zipidx.Index, data []byte) (string, error) {
	const op = "epub.parseContainer"
	path, ok, tooLong := parseContainerXML(data)
	if tooLong {
		return "", kind.New(op, kind.PathTooLong, nil)
	}
	if ok {
		return path, nil
	}
	for i := 0; i < idx.Count(); i++ {
		name := idx.Entry(i).Name
		if strings.HasSuffix(strings.ToLower(name), ".opf") {
			return name, nil
		}
	}
	return "", kind.New(op, kind.NotFound, nil)
}

// parseContainerXML extracts the preferred rootfile's full-path attribute,
// preferring media-type="application/oebps-package+xml" and falling back to
// the first non-empty full-path otherwise. tooLong reports a path exceeding
// maxContainerPathLen, which the caller treats as a hard failure rather
// than silently truncating a path that must match a ZIP entry exactly.
func parseContainerXML(data []byte) (path string, ok bool, tooLong bool) {
	s := xmlscan.New(data)
	var fallback string
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			if fallback != "" {
				return fallback, true, false
			}
			return "", false, false
		case xmlscan.StartTag, xmlscan.SelfClosing:
			if string(tok.Local) != "rootfile" {
				continue
			}
			full, has := xmlscan.Get(tok, "full-path")
			full = strings.TrimSpace(full)
			if !has || full == "" {
				continue
			}
			if len(full) > maxContainerPathLen {
				return "", false, true
			}
			mediaType, _ := xmlscan.Get(tok, "media-type")
			if strings.EqualFold(strings.TrimSpace(mediaType), "application/oebps-package+xml") {
				return full, true, false
			}
			if fallback == "" {
				fallback = full
			}
		}
	}
}
