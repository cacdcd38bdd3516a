package epub

import (
	"strings"

	"github.com/foliopress/leafcore/internal/kind"
	"github.com/foliopress/leafcore/xmlscan"
)

// dcElement is one Dublin Core metadata element: its text content plus the
// EPUB2-style attributes some producers hang directly off it.
type dcElement struct {
	Value  string
	ID     string
	FileAs string
	Role   string
	Scheme string
}

// opfMetaTag is one <meta> element, in either EPUB2 (name/content) or
// EPUB3 (property/refines/scheme, text content) shape.
type opfMetaTag struct {
	Name     string
	Content  string
	Property string
	Refines  string
	Scheme   string
	Value    string
}

// rawSpineRef is one <itemref> before manifest resolution.
type rawSpineRef struct {
	IDRef  string
	Linear bool
}

// opfDoc is the OPF file's content, parsed but not yet cross-resolved
// against the manifest.
type opfDoc struct {
	Version  string
	DC       map[string][]dcElement
	Metas    []opfMetaTag
	Manifest []ManifestItem // Href still relative to the OPF's own directory
	Spine    []rawSpineRef
	SpineTOC string // <spine toc="..."> idref, empty if absent (EPUB2 TOC-source tier)
}

// dcNames are the Dublin Core element local names this pipeline reads.
var dcNames = map[string]bool{
	"title": true, "creator": true, "contributor": true, "language": true,
	"identifier": true, "publisher": true, "date": true, "description": true,
	"subject": true, "rights": true, "source": true,
}

// parseOPF parses a package document in a single scanner pass, tracking
// which top-level section (metadata/manifest/spine) it's inside without
// building a DOM.
func parseOPF(data []byte) (*opfDoc, error) {
	const op = "epub.parseOPF"
	doc := &opfDoc{DC: make(map[string][]dcElement)}

	s := xmlscan.New(data)
	section := ""
	var pendingDC string
	var pendingDCAttrs xmlscan.Token
	var pendingDCText string
	var pendingMeta *opfMetaTag

	for {
		tok := s.Next()
		switch tok.Kind {
		case xmlscan.EOF:
			if len(doc.Manifest) == 0 {
				return nil, kind.New(op, kind.BadFormat, nil)
			}
			return doc, nil
		case xmlscan.ErrorToken:
			return nil, kind.New(op, kind.BadFormat, tok.Err)

		case xmlscan.StartTag, xmlscan.SelfClosing:
			local := string(tok.Local)
			switch local {
			case "package":
				if v, ok := xmlscan.Get(tok, "version"); ok {
					doc.Version = v
				}
				continue
			case "metadata", "manifest", "spine", "guide":
				section = local
				if local == "spine" {
					doc.SpineTOC, _ = xmlscan.Get(tok, "toc")
				}
				continue
			}

			switch section {
			case "metadata":
				if local == "meta" {
					m := &opfMetaTag{}
					m.Name, _ = xmlscan.Get(tok, "name")
					m.Content, _ = xmlscan.Get(tok, "content")
					m.Property, _ = xmlscan.Get(tok, "property")
					m.Refines, _ = xmlscan.Get(tok, "refines")
					m.Scheme, _ = xmlscan.Get(tok, "scheme")
					if tok.Kind == xmlscan.SelfClosing {
						doc.Metas = append(doc.Metas, *m)
					} else {
						pendingMeta = m
					}
					continue
				}
				if dcNames[local] {
					if tok.Kind == xmlscan.SelfClosing {
						doc.DC[local] = append(doc.DC[local], dcElementFrom(tok, ""))
						continue
					}
					pendingDC = local
					pendingDCAttrs = tok
					pendingDCText = ""
				}

			case "manifest":
				if local == "item" {
					href, _ := xmlscan.Get(tok, "href")
					mt, _ := xmlscan.Get(tok, "media-type")
					id, _ := xmlscan.Get(tok, "id")
					props, _ := xmlscan.Get(tok, "properties")
					doc.Manifest = append(doc.Manifest, ManifestItem{
						ID:         id,
						Href:       href,
						MediaType:  mt,
						Properties: strings.Fields(props),
					})
				}

			case "spine":
				if local == "itemref" {
					idref, _ := xmlscan.Get(tok, "idref")
					linearAttr, _ := xmlscan.Get(tok, "linear")
					doc.Spine = append(doc.Spine, rawSpineRef{
						IDRef:  idref,
						Linear: linearAttr != "no",
					})
				}
			}

		case xmlscan.Text:
			if pendingDC != "" {
				pendingDCText += string(xmlscan.Unescape(tok.Text, nil))
			}
			if pendingMeta != nil {
				pendingMeta.Value += string(xmlscan.Unescape(tok.Text, nil))
			}

		case xmlscan.EndTag:
			local := string(tok.Local)
			if pendingDC != "" && local == pendingDC {
				doc.DC[local] = append(doc.DC[local], dcElementFrom(pendingDCAttrs, pendingDCText))
				pendingDC = ""
			}
			if pendingMeta != nil && local == "meta" {
				doc.Metas = append(doc.Metas, *pendingMeta)
				pendingMeta = nil
			}
			switch local {
			case "metadata", "manifest", "spine", "guide":
				section = ""
			}
		}
	}
}

func dcElementFrom(tok xmlscan.Token, text string) dcElement {
	fileAs, _ := xmlscan.Get(tok, "file-as")
	role, _ := xmlscan.Get(tok, "role")
	scheme, _ := xmlscan.Get(tok, "scheme")
	id, _ := xmlscan.Get(tok, "id")
	return dcElement{
		Value:  strings.TrimSpace(text),
		ID:     id,
		FileAs: fileAs,
		Role:   role,
		Scheme: scheme,
	}
}
