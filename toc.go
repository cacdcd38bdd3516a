package epub

import (
	"strings"

	"github.com/foliopress/leafcore/xmlscan"
)

// parseNCX builds a flat, document-order TOCItem list from an EPUB2 NCX
// document's <navMap>, resolving each <content src="..."> against ncxPath.
// NCX has no separate landmarks concept, so it only ever returns a table
// of contents.
func parseNCX(data []byte, ncxPath string) []TOCItem {
	s := xmlscan.New(data)
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return nil
		case xmlscan.StartTag:
			if string(tok.Local) == "navMap" {
				var items []TOCItem
				parseNCXChildren(s, ncxPath, 0, &items)
				return items
			}
		}
	}
}

func parseNCXChildren(s *xmlscan.Scanner, ncxPath string, depth int, out *[]TOCItem) {
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.EndTag:
			return // </navMap> or </navPoint>
		case xmlscan.StartTag:
			if string(tok.Local) == "navPoint" {
				parseNCXNavPoint(s, ncxPath, depth, out)
			} else {
				skipElement(s)
			}
		}
	}
}

// parseNCXNavPoint parses one <navPoint>, appending it and, recursively, its
// nested navPoints onto out in document order, assuming the caller has
// already consumed its opening tag.
func parseNCXNavPoint(s *xmlscan.Scanner, ncxPath string, depth int, out *[]TOCItem) {
	idx := len(*out)
	*out = append(*out, TOCItem{SpineIndex: -1, SpineEndIndex: -1, Depth: depth})
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.EndTag:
			return // </navPoint>
		case xmlscan.SelfClosing:
			if string(tok.Local) == "content" {
				if src, ok := xmlscan.Get(tok, "src"); ok {
					(*out)[idx].Href = resolveRelativePath(ncxPath, src)
				}
			}
		case xmlscan.StartTag:
			switch string(tok.Local) {
			case "navLabel":
				(*out)[idx].Title = strings.TrimSpace(consumeElementText(s))
			case "content":
				if src, ok := xmlscan.Get(tok, "src"); ok {
					(*out)[idx].Href = resolveRelativePath(ncxPath, src)
				}
				skipElement(s)
			case "navPoint":
				parseNCXNavPoint(s, ncxPath, depth+1, out)
			default:
				skipElement(s)
			}
		}
	}
}

// parseNavDocument builds the toc and landmarks lists from an EPUB3
// navigation document's <nav epub:type="..."> elements, resolving hrefs
// against navPath. Either return value may be nil if the document doesn't
// carry that kind of nav.
func parseNavDocument(data []byte, navPath string) (toc, landmarks []TOCItem) {
	s := xmlscan.New(data)
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return toc, landmarks
		case xmlscan.StartTag:
			if string(tok.Local) != "nav" {
				continue
			}
			navType, _ := xmlscan.Get(tok, "type")
			var items []TOCItem
			parseNavBody(s, navPath, &items)
			switch {
			case strings.Contains(navType, "toc") && toc == nil:
				toc = items
			case strings.Contains(navType, "landmarks") && landmarks == nil:
				landmarks = items
			}
		case xmlscan.SelfClosing:
			// empty <nav/>, nothing to collect
		}
	}
}

// parseNavBody consumes a <nav>'s content up to its matching </nav>,
// collecting the items of its first <ol>, if any, onto out.
func parseNavBody(s *xmlscan.Scanner, navPath string, out *[]TOCItem) {
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.EndTag:
			return // </nav>
		case xmlscan.StartTag:
			if string(tok.Local) == "ol" && len(*out) == 0 {
				parseNavOL(s, navPath, 0, out)
			} else {
				skipElement(s)
			}
		}
	}
}

// parseNavOL parses an <ol>'s <li> children onto out, assuming the caller
// has already consumed its opening tag.
func parseNavOL(s *xmlscan.Scanner, navPath string, depth int, out *[]TOCItem) {
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.EndTag:
			return // </ol>
		case xmlscan.StartTag:
			if string(tok.Local) == "li" {
				parseNavLI(s, navPath, depth, out)
			} else {
				skipElement(s)
			}
		}
	}
}

// parseNavLI parses one <li>, which carries an <a href> or <span> title and
// may nest a further <ol> of children, appending it and its descendants
// onto out in document order.
func parseNavLI(s *xmlscan.Scanner, navPath string, depth int, out *[]TOCItem) {
	idx := len(*out)
	*out = append(*out, TOCItem{SpineIndex: -1, SpineEndIndex: -1, Depth: depth})
	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.EndTag:
			return // </li>
		case xmlscan.SelfClosing:
			if string(tok.Local) == "a" && (*out)[idx].Href == "" {
				if href, ok := xmlscan.Get(tok, "href"); ok {
					(*out)[idx].Href = resolveRelativePath(navPath, href)
				}
			}
		case xmlscan.StartTag:
			switch string(tok.Local) {
			case "a":
				href, _ := xmlscan.Get(tok, "href")
				text := strings.TrimSpace(consumeElementText(s))
				if (*out)[idx].Href == "" {
					(*out)[idx].Href = resolveRelativePath(navPath, href)
					(*out)[idx].Title = text
				}
			case "span":
				text := strings.TrimSpace(consumeElementText(s))
				if (*out)[idx].Title == "" {
					(*out)[idx].Title = text
				}
			case "ol":
				parseNavOL(s, navPath, depth+1, out)
			default:
				skipElement(s)
			}
		}
	}
}

// skipElement discards tokens up to and including the end tag matching the
// start tag the caller just consumed, tracking nesting depth by count alone
// since well-formed XML never crosses element boundaries.
func skipElement(s *xmlscan.Scanner) {
	depth := 1
	for depth > 0 {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return
		case xmlscan.StartTag:
			depth++
		case xmlscan.EndTag:
			depth--
		}
	}
}

// consumeElementText accumulates all decoded text up to the end tag
// matching the start tag the caller just consumed, flattening any nested
// markup (e.g. <a><span>text</span></a>) into a single string.
func consumeElementText(s *xmlscan.Scanner) string {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF, xmlscan.ErrorToken:
			return sb.String()
		case xmlscan.StartTag:
			depth++
		case xmlscan.EndTag:
			depth--
		case xmlscan.Text:
			sb.Write(xmlscan.Unescape(tok.Text, nil))
		}
	}
	return sb.String()
}

// hrefWithoutFragment strips a "#fragment" suffix, used to match TOC/nav
// hrefs against manifest hrefs (which never carry fragments).
func hrefWithoutFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

// assignSpineIndices resolves each TOCItem's Href to a spine position via
// spineMap (keyed by manifest href without fragment).
func assignSpineIndices(items []TOCItem, spineMap map[string]int) {
	for i := range items {
		if idx, ok := spineMap[hrefWithoutFragment(items[i].Href)]; ok {
			items[i].SpineIndex = idx
		}
	}
}

// computeSpineRanges fills in SpineEndIndex for a flat top-to-bottom slice
// of TOCItems (already spine-index-assigned), so each entry's range runs up
// to the next entry at the same or a shallower Depth with a resolved index
// (its next sibling or uncle), or spineLen at the tail.
func computeSpineRanges(flat []TOCItem, spineLen int) {
	for i := range flat {
		if flat[i].SpineIndex < 0 {
			continue
		}
		end := spineLen
		for j := i + 1; j < len(flat); j++ {
			if flat[j].Depth <= flat[i].Depth && flat[j].SpineIndex >= 0 {
				end = flat[j].SpineIndex
				break
			}
		}
		flat[i].SpineEndIndex = end
	}
}

// resolveTOCSpineRanges assigns SpineIndex/SpineEndIndex across a flat,
// document-order TOC list: it resolves each entry's own index, then
// computes each entry's range against its next resolved sibling or uncle.
func resolveTOCSpineRanges(items []TOCItem, spineMap map[string]int, spineLen int) {
	assignSpineIndices(items, spineMap)
	computeSpineRanges(items, spineLen)
}
