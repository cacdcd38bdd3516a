package epub

import (
	"net/url"
	"path"
	"strings"
)

// resolveRelativePath resolves href against the directory containing
// basePath (a ZIP-internal path), percent-decoding it and cleaning any
// "." / ".." components, per original_source's resolve_path. It returns ""
// for hrefs that are external (carry a URI scheme) or that would resolve
// outside the archive root.
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || hasURIScheme(href) {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	dir := path.Dir(basePath)
	if dir == "." {
		dir = ""
	}
	joined := path.Join(dir, href)
	joined = strings.TrimPrefix(joined, "/")
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return ""
	}
	return joined
}

// hasURIScheme reports whether s looks like "scheme:..." rather than a
// relative or absolute path — used to reject external links (http, mailto,
// data URIs) that resolveRelativePath should not try to join.
func hasURIScheme(s string) bool {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return false
	}
	for j := 0; j < i; j++ {
		c := s[j]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}
