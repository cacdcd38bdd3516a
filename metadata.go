package epub

import (
	"sort"
	"strconv"
	"strings"

	"github.com/foliopress/leafcore/xmlscan"
)

// titleCap and authorCap bound Metadata.Title and each Author.Name the
// same way the original's fixed-capacity title/author buffers do; a
// longer value is truncated at a UTF-8 boundary rather than rejected.
const (
	titleCap  = 96
	authorCap = 64
)

// extractMetadata converts a parsed OPF document's raw DC elements and
// <meta> entries into the public Metadata struct, resolving EPUB3
// refines-based file-as/role/display-seq against their EPUB2 attribute
// equivalents (first non-empty source wins).
func extractMetadata(doc *opfDoc) Metadata {
	refines := buildRefinesMap(doc.Metas)

	md := Metadata{
		Title: xmlscan.TruncateUTF8(firstTitle(doc.DC["title"], refines), titleCap),
	}
	if langs := doc.DC["language"]; len(langs) > 0 {
		md.Language = strings.TrimSpace(langs[0].Value)
	}
	md.Authors = extractAuthors(doc.DC["creator"], refines)
	for _, id := range doc.DC["identifier"] {
		v := strings.TrimSpace(id.Value)
		if v == "" {
			continue
		}
		ident := Identifier{Value: v, Scheme: id.Scheme, ID: id.ID}
		if ident.Scheme == "" && id.ID != "" {
			if s, ok := findRefine(refines, id.ID, "identifier-type"); ok {
				ident.Scheme = s
			}
		}
		md.Identifiers = append(md.Identifiers, ident)
	}
	md.Publisher = firstNonEmpty(doc.DC["publisher"])
	md.Date = firstNonEmpty(doc.DC["date"])
	md.Description = firstNonEmpty(doc.DC["description"])
	md.Rights = firstNonEmpty(doc.DC["rights"])
	md.Source = firstNonEmpty(doc.DC["source"])
	return md
}

func firstNonEmpty(elems []dcElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

// buildRefinesMap builds a map from element ID (without "#") to the list of
// <meta refines="#id" ...> elements that refine it.
func buildRefinesMap(metas []opfMetaTag) map[string][]opfMetaTag {
	m := make(map[string][]opfMetaTag)
	for _, meta := range metas {
		if !strings.HasPrefix(meta.Refines, "#") {
			continue
		}
		id := meta.Refines[1:]
		m[id] = append(m[id], meta)
	}
	return m
}

func findRefine(refines map[string][]opfMetaTag, id, property string) (string, bool) {
	for _, m := range refines[id] {
		if m.Property == property {
			if v := strings.TrimSpace(m.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// firstTitle picks the title with the lowest EPUB3 display-seq, if any
// title carries one; otherwise the first non-empty dc:title in document order.
func firstTitle(titles []dcElement, refines map[string][]opfMetaTag) string {
	type entry struct {
		value string
		seq   int
		index int
	}
	var entries []entry
	hasSeq := false
	for i, t := range titles {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		e := entry{value: v, index: i}
		if t.ID != "" {
			if seqStr, ok := findRefine(refines, t.ID, "display-seq"); ok {
				if n, err := strconv.Atoi(seqStr); err == nil {
					e.seq = n
					hasSeq = true
				}
			}
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return ""
	}
	if hasSeq {
		sort.SliceStable(entries, func(i, j int) bool {
			si, sj := entries[i].seq, entries[j].seq
			if si == 0 && sj == 0 {
				return entries[i].index < entries[j].index
			}
			if si == 0 {
				return false
			}
			if sj == 0 {
				return true
			}
			return si < sj
		})
	}
	return entries[0].value
}

// extractAuthors converts dc:creator elements to Authors, preferring
// EPUB2-style attributes and falling back to EPUB3 refines.
func extractAuthors(creators []dcElement, refines map[string][]opfMetaTag) []Author {
	var authors []Author
	for _, c := range creators {
		name := strings.TrimSpace(c.Value)
		if name == "" {
			continue
		}
		a := Author{Name: xmlscan.TruncateUTF8(name, authorCap), FileAs: c.FileAs, Role: c.Role}
		if c.ID != "" {
			if a.FileAs == "" {
				if fa, ok := findRefine(refines, c.ID, "file-as"); ok {
					a.FileAs = fa
				}
			}
			if a.Role == "" {
				if r, ok := findRefine(refines, c.ID, "role"); ok {
					a.Role = r
				}
			}
		}
		authors = append(authors, a)
	}
	return authors
}
