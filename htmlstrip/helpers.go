package htmlstrip

import "github.com/foliopress/leafcore/xmlscan"

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func indexBytes(b, sub []byte) int {
	n := len(sub)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(b); i++ {
		match := true
		for j := 0; j < n; j++ {
			if b[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func hasBytePrefix(b []byte, prefix string) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func isTagDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '>' || c == '/'
}

func isHTMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanSkipContent looks for the close tag that returns depth to zero,
// counting nested same-name open tags encountered along the way (needed for
// elements like a CSS-hidden div, which nest, unlike script/style/head/
// title). It returns the byte offset just past the matching close tag, and
// 0, when found; otherwise it returns 0 and the depth still outstanding,
// signalling the caller to retry from the same position once more input
// has arrived.
func scanSkipContent(data []byte, name string, depth int) (int, int) {
	i := 0
	for depth > 0 {
		lt := indexByte(data[i:], '<')
		if lt < 0 {
			return 0, depth
		}
		i += lt
		if i+1 >= len(data) {
			return 0, depth
		}
		if data[i+1] == '/' {
			end := indexByte(data[i:], '>')
			if end < 0 {
				return 0, depth
			}
			tagName := data[i+2 : i+end]
			if equalFoldASCII(string(tagName), name) {
				depth--
			}
			i += end + 1
			continue
		}
		if c := data[i+1]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			i++ // "a < b" in script text: not a tag
			continue
		}
		end := indexByte(data[i:], '>')
		if end < 0 {
			return 0, depth
		}
		body := data[i+1 : i+end]
		tname := scanTagName(body)
		selfClose := len(body) > 0 && body[len(body)-1] == '/'
		if tname == name && !selfClose && !voidElement[tname] {
			depth++
		}
		i += end + 1
	}
	return i, 0
}

func scanTagName(body []byte) string {
	i := 0
	for i < len(body) && !isTagDelim(body[i]) {
		i++
	}
	name := make([]byte, i)
	for j := 0; j < i; j++ {
		name[j] = lowerByte(body[j])
	}
	return string(name)
}

func equalFoldASCII(a, b string) bool {
	a = trimTagName(a)
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func trimTagName(s string) string {
	end := len(s)
	for end > 0 && isHTMLSpace(s[end-1]) {
		end--
	}
	return s[:end]
}

// findAttr extracts a single attribute's value from a tag's attribute
// bytes (everything between the tag name and the closing '>' or '/>').
func findAttr(attrs []byte, name string) (string, bool) {
	i := 0
	for i < len(attrs) {
		for i < len(attrs) && isHTMLSpace(attrs[i]) {
			i++
		}
		if i >= len(attrs) || attrs[i] == '/' {
			break
		}
		start := i
		for i < len(attrs) && attrs[i] != '=' && !isHTMLSpace(attrs[i]) {
			i++
		}
		attrName := string(attrs[start:i])
		for i < len(attrs) && isHTMLSpace(attrs[i]) {
			i++
		}
		var value string
		if i < len(attrs) && attrs[i] == '=' {
			i++
			for i < len(attrs) && isHTMLSpace(attrs[i]) {
				i++
			}
			if i < len(attrs) && (attrs[i] == '"' || attrs[i] == '\'') {
				q := attrs[i]
				i++
				vstart := i
				for i < len(attrs) && attrs[i] != q {
					i++
				}
				value = string(attrs[vstart:i])
				if i < len(attrs) {
					i++
				}
			} else {
				vstart := i
				for i < len(attrs) && !isHTMLSpace(attrs[i]) {
					i++
				}
				value = string(attrs[vstart:i])
			}
		}
		if equalFoldASCII(attrName, name) {
			return string(xmlscan.Unescape([]byte(value), htmlEntityLookup)), true
		}
	}
	return "", false
}
