package xmlscan

import (
	"strconv"
	"unicode/utf8"
)

// basicEntities is the five entities every XML processor must know.
var basicEntities = map[string]rune{
	"amp":  '&',
	"lt":   '<',
	"gt":   '>',
	"quot": '"',
	"apos": '\'',
}

// Unescape decodes "&amp; &lt; &gt; &quot; &apos;" and numeric character
// references ("&#65; &#x41;") in src. If lookup is non-nil, any other named
// entity is resolved by calling lookup(name); unresolved named entities
// (lookup nil, or lookup returns ok=false) pass through unchanged, exactly
// as written. Decoding is a single pass: an entity's replacement text is
// never re-scanned for further entities ("&amp;amp;" decodes to "&amp;"
// and no further).
func Unescape(src []byte, lookup func(name string) (string, bool)) []byte {
	if indexByte(src, '&') < 0 {
		return src
	}
	out := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		if src[i] != '&' {
			out = append(out, src[i])
			i++
			continue
		}
		end := indexByte(src[i+1:], ';')
		if end < 0 {
			out = append(out, src[i])
			i++
			continue
		}
		end += i + 1
		name := string(src[i+1 : end])
		if r, ok := decodeOneEntity(name, lookup); ok {
			var buf [utf8.UTFMax]byte
			n := utf8.EncodeRune(buf[:], r)
			out = append(out, buf[:n]...)
			i = end + 1
			continue
		}
		if lookup != nil {
			if repl, ok := lookup(name); ok {
				out = append(out, repl...)
				i = end + 1
				continue
			}
		}
		// Unknown entity: pass through unchanged, including the delimiters.
		out = append(out, src[i:end+1]...)
		i = end + 1
	}
	return out
}

func decodeOneEntity(name string, _ func(name string) (string, bool)) (rune, bool) {
	if r, ok := basicEntities[name]; ok {
		return r, true
	}
	if len(name) > 1 && name[0] == '#' {
		return decodeNumericRef(name[1:])
	}
	return 0, false
}

func decodeNumericRef(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	var err error
	if s[0] == 'x' || s[0] == 'X' {
		v, err = strconv.ParseUint(s[1:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil || v > utf8.MaxRune {
		return 0, false
	}
	return rune(v), true
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
