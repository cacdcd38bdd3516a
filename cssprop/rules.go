package cssprop

import "strconv"

// selector is a type-and-class AND selector reduced to its rightmost
// simple selector ("selector support ... restricted to type and class
// selectors, ANDed; everything else ... discarded").
type selector struct {
	tag          string // "" = any
	class        string // "" = any
	specificity  uint8
}

func (s selector) matches(tag, class string) bool {
	if s.tag != "" && s.tag != tag {
		return false
	}
	if s.class != "" && s.class != class {
		return false
	}
	return true
}

type rule struct {
	sel   selector
	props Props
}

// Rules is an accumulated, parsed set of CSS rules ("stack-allocated" in
// the embedded original; here a plain slice, since Go has no equivalent
// fixed-array budget concern for a host-provided value type).
type Rules struct {
	rules []rule
}

// Parse appends the rules found in a stylesheet's worth of CSS text to r.
// It may be called multiple times to accumulate rules from several
// stylesheets (EPUBs may link more than one).
func (r *Rules) Parse(css []byte) {
	pos := 0
	for pos < len(css) {
		pos = skipWSAndComments(css, pos)
		if pos >= len(css) {
			return
		}
		if css[pos] == '@' {
			pos = skipAtRule(css, pos)
			continue
		}
		brace := indexByteFrom(css, pos, '{')
		if brace < 0 {
			return
		}
		selText := css[pos:brace]
		pos = brace + 1

		end := indexByteFrom(css, pos, '}')
		if end < 0 {
			return
		}
		declText := css[pos:end]
		pos = end + 1

		props := ParseDeclarations(declText)
		if props.set == 0 {
			continue
		}
		for _, part := range splitBytes(selText, ',') {
			sel := parseSelector(part)
			if sel.specificity == 0 {
				continue
			}
			r.rules = append(r.rules, rule{sel: sel, props: props})
		}
	}
}

// Resolve returns the effective style for an element with the given tag
// and class name (single class; EPUB content rarely needs multi-class
// matching and this pipeline's selector grammar doesn't support it), merging
// matching rules by specificity with later, equally-specific rules
// winning ties.
func (r *Rules) Resolve(tag, class string) Props {
	var result Props
	var best [numProps]uint8
	for _, rl := range r.rules {
		if rl.sel.matches(tag, class) {
			result.merge(rl.props, rl.sel.specificity, &best)
		}
	}
	return result
}

// ParseInline parses a single declaration block's worth of text — the
// contents of a style="..." attribute — with no selector.
func ParseInline(style []byte) Props {
	return ParseDeclarations(style)
}

// ParseDeclarations parses "property:value;" pairs tolerantly: a missing
// trailing semicolon is fine, and whitespace is free-form.
func ParseDeclarations(block []byte) Props {
	var props Props
	for _, decl := range splitBytes(block, ';') {
		decl = trimCSS(decl)
		if len(decl) == 0 {
			continue
		}
		colon := indexByte(decl, ':')
		if colon < 0 {
			continue
		}
		name := trimCSS(decl[:colon])
		value := trimCSS(decl[colon+1:])
		if len(name) == 0 || len(value) == 0 {
			continue
		}
		applyProperty(string(name), string(value), &props)
	}
	return props
}

func applyProperty(name, value string, props *Props) {
	switch name {
	case "font-weight":
		props.FontWeight = WeightNormal
		if hasPrefix(value, "bold") {
			props.FontWeight = WeightBold
		} else if n, ok := leadingInt(value); ok && n >= 600 {
			props.FontWeight = WeightBold
		}
		props.set |= setFontWeight

	case "font-style":
		props.FontStyle = StyleNormal
		if hasPrefix(value, "italic") || hasPrefix(value, "oblique") {
			props.FontStyle = StyleItalic
		}
		props.set |= setFontStyle

	case "text-align":
		switch {
		case hasPrefix(value, "center"):
			props.TextAlign = AlignCenter
		case hasPrefix(value, "right"), hasPrefix(value, "end"):
			props.TextAlign = AlignEnd
		case hasPrefix(value, "justify"):
			props.TextAlign = AlignJustify
		default:
			props.TextAlign = AlignStart
		}
		props.set |= setTextAlign

	case "text-decoration", "text-decoration-line":
		var d TextDecoration
		for _, word := range splitFields(value) {
			switch word {
			case "underline":
				d |= DecorationUnderline
			case "line-through":
				d |= DecorationLineThrough
			}
		}
		props.TextDecoration = d
		props.set |= setTextDecoration

	case "margin-top", "padding-top":
		props.MarginBefore = parseEm(value)
		props.set |= setMarginBefore

	case "margin-bottom", "padding-bottom":
		props.MarginAfter = parseEm(value)
		props.set |= setMarginAfter

	case "margin", "padding":
		applyMarginShorthand(value, props)

	case "white-space":
		if hasPrefix(value, "pre") {
			props.WhiteSpace = WhiteSpacePre
		} else {
			props.WhiteSpace = WhiteSpaceNormal
		}
		props.set |= setWhiteSpace

	case "display":
		switch {
		case hasPrefix(value, "none"):
			props.Display = DisplayNone
		case hasPrefix(value, "block"):
			props.Display = DisplayBlock
		case hasPrefix(value, "list-item"):
			props.Display = DisplayListItem
		case hasPrefix(value, "inline"):
			props.Display = DisplayInline
		default:
			props.Display = DisplayUnset
		}
		props.set |= setDisplay

	default:
		// Unrecognised property: skip silently.
	}
}

func applyMarginShorthand(value string, props *Props) {
	parts := splitFields(value)
	switch len(parts) {
	case 1:
		v := parseEm(parts[0])
		props.MarginBefore, props.MarginAfter = v, v
	case 2, 3, 4:
		// Only before(top)/after(bottom) are in this pipeline's property set;
		// left/right shorthand components are parsed (to stay tolerant of
		// well-formed CSS) but not retained.
		props.MarginBefore = parseEm(parts[0])
		if len(parts) >= 3 {
			props.MarginAfter = parseEm(parts[2])
		} else {
			props.MarginAfter = parseEm(parts[0])
		}
	default:
		return
	}
	props.set |= setMarginBefore | setMarginAfter
}

// parseEm parses a CSS length as a whole number of em units. A bare number
// is read as em; any other unit, and any malformed value, is treated as 0.
// Values outside the int8 range are clamped to it.
func parseEm(value string) int8 {
	value = trimCSSString(value)
	n := len(value)
	if n == 0 {
		return 0
	}
	numEnd := 0
	for numEnd < n && (isDigit(value[numEnd]) || value[numEnd] == '-') {
		numEnd++
	}
	if numEnd == 0 {
		return 0
	}
	unit := value[numEnd:]
	if unit != "" && unit != "em" {
		return 0
	}
	v, err := strconv.Atoi(value[:numEnd])
	if err != nil {
		return 0
	}
	if v > 127 {
		v = 127
	}
	if v < -128 {
		v = -128
	}
	return int8(v)
}

func leadingInt(s string) (int, bool) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(s[:i])
	return v, err == nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// parseSelector reduces a (possibly compound, possibly descendant) selector
// to its rightmost simple type/class selector.
func parseSelector(raw []byte) selector {
	raw = trimCSS(raw)
	if len(raw) == 0 {
		return selector{}
	}
	// Reduce to the rightmost space-separated component (descendant
	// combinator is discarded; only the rightmost simple selector is kept).
	last := raw
	for i := 0; i < len(raw); i++ {
		if raw[i] == ' ' || raw[i] == '>' || raw[i] == '+' || raw[i] == '~' {
			rest := trimCSS(raw[i+1:])
			if len(rest) > 0 {
				last = rest
			}
		}
	}
	sel := trimCSS(last)
	if len(sel) == 0 || string(sel) == "*" {
		return selector{}
	}
	if p := indexByte(sel, ':'); p >= 0 {
		sel = sel[:p]
	}
	if p := indexByte(sel, '#'); p >= 0 {
		if p == 0 {
			return selector{}
		}
		sel = sel[:p]
	}
	var tagPart, classPart []byte
	if dot := indexByte(sel, '.'); dot >= 0 {
		tagPart, classPart = sel[:dot], sel[dot+1:]
	} else {
		tagPart = sel
	}

	var s selector
	if len(tagPart) > 0 {
		s.tag = lower(string(tagPart))
	}
	if len(classPart) > 0 {
		s.class = string(classPart)
	}
	switch {
	case s.tag != "" && s.class != "":
		s.specificity = 17
	case s.class != "":
		s.specificity = 16
	case s.tag != "":
		s.specificity = 1
	}
	return s
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func skipWSAndComments(css []byte, pos int) int {
	for pos < len(css) {
		switch {
		case css[pos] == ' ' || css[pos] == '\t' || css[pos] == '\n' || css[pos] == '\r':
			pos++
		case pos+1 < len(css) && css[pos] == '/' && css[pos+1] == '*':
			end := indexBytesFrom(css, pos+2, "*/")
			if end < 0 {
				return len(css)
			}
			pos = end + 2
		default:
			return pos
		}
	}
	return pos
}

func skipAtRule(css []byte, pos int) int {
	// Skip to end of statement (';') or to end of a balanced {...} block,
	// whichever comes first.
	depth := 0
	for pos < len(css) {
		switch css[pos] {
		case '{':
			depth++
		case '}':
			depth--
			pos++
			if depth <= 0 {
				return pos
			}
			continue
		case ';':
			if depth == 0 {
				return pos + 1
			}
		}
		pos++
	}
	return pos
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func indexByteFrom(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func indexBytesFrom(b []byte, from int, sep string) int {
	if from > len(b) {
		return -1
	}
	rest := b[from:]
	n := len(sep)
	for i := 0; i+n <= len(rest); i++ {
		if string(rest[i:i+n]) == sep {
			return from + i
		}
	}
	return -1
}

func splitBytes(b []byte, sep byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == sep {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func trimCSS(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isCSSSpace(b[start]) {
		start++
	}
	for end > start && isCSSSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func trimCSSString(s string) string {
	return string(trimCSS([]byte(s)))
}

func isCSSSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
