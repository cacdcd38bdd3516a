// Package htmlstrip converts EPUB (X)HTML chapter markup into a flat
// sequence of styled text runs, without ever building a DOM or holding a
// whole chapter's markup in memory.
//
// golang.org/x/net/html is not used here — its tokenizer already avoids a
// full DOM, but its Node-oriented API still exists to let a caller walk a
// tree, which this package's caller (chapter) never wants: it wants a flat
// run stream it can typeset onto lines as it arrives. This is grounded on
// original_source/smol-epub/src/html_strip.rs's phase-based state machine,
// translated from a byte-marker output protocol (necessary in a no_std,
// fixed-buffer environment) into idiomatic Go: a StyledRun value pushed
// through a callback, which is the same "each unit of work is a value
// passed to a function" shape the reference reader's own tokenizer loop
// in html.go uses. Per-element style is not purely tag-name-driven: a
// Stripper carrying a non-nil Rules field resolves each opened tag's class
// and inline style="..." attribute through cssprop, cascading them onto
// the tag's own built-in defaults (b/strong/h1.../etc.).
package htmlstrip

import (
	"github.com/foliopress/leafcore/cssprop"
	"github.com/foliopress/leafcore/xmlscan"
)

// StyleFlags is a bitset of concurrently active inline/heading styles.
type StyleFlags uint16

const (
	Bold StyleFlags = 1 << iota
	Italic
	Underline
	Strike
	Superscript
	Subscript
	Monospace
	Heading1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
)

// BreakKind classifies the separation between one run of text and the
// next, ordered by severity: a later, more severe break wins when several
// would-be breaks collapse together (e.g. "</p><h1>").
type BreakKind uint8

const (
	BreakNone BreakKind = iota
	BreakSoft
	BreakHard
	BreakParagraph
	BreakSection
)

// StyledRun is one contiguous span of decoded text sharing a single style
// set, preceded by the break (if any) that separates it from the previous
// run.
type StyledRun struct {
	Text  string
	Style StyleFlags
	Break BreakKind
}

// ImageRef is emitted in place of an <img> element, in document order
// relative to the StyledRun stream.
type ImageRef struct {
	Src string
}

// RunFunc receives each completed styled run, in document order.
type RunFunc func(StyledRun) error

// ImageFunc receives each image reference, in document order relative to
// the runs delivered through the same Feed/Finish call sequence.
type ImageFunc func(ImageRef) error

const (
	maxElemDepth = 32 // bounded per-element style/whitespace frame stack; overflow collapses, never errors
	maxTagName   = 64
	maxCarry     = 4096 // bounded partial-tag/entity carry between Feed calls
)

type phase uint8

const (
	phaseText phase = iota
	phaseTagOpen
	phaseTagName
	phaseInTag
	phaseComment
	phaseSkipContent
)

// skipTag names elements whose entire text content (markup and all) is
// discarded until the matching end tag.
var skipTag = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
}

// blockTag names elements that force a paragraph break on open and close.
var blockTag = map[string]bool{
	"p": true, "div": true, "ul": true, "ol": true, "li": true,
	"blockquote": true, "pre": true, "table": true, "tr": true,
	"td": true, "th": true, "section": true, "article": true,
	"header": true, "footer": true, "figure": true, "figcaption": true,
	"dt": true, "dd": true, "body": true,
}

// sectionTag names elements whose boundary is a stronger break than an
// ordinary block (used for chapter-internal headings and horizontal rules).
var sectionTag = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true,
}

var inlineStyle = map[string]StyleFlags{
	"b": Bold, "strong": Bold,
	"i": Italic, "em": Italic, "cite": Italic, "dfn": Italic,
	"u": Underline, "ins": Underline,
	"s": Strike, "strike": Strike, "del": Strike,
	"sup":  Superscript,
	"sub":  Subscript,
	"code": Monospace, "tt": Monospace, "kbd": Monospace, "samp": Monospace,
	"h1": Heading1, "h2": Heading2, "h3": Heading3,
	"h4": Heading4, "h5": Heading5, "h6": Heading6,
}

// elemFrame is the style/whitespace state an element's open tag pushed,
// saved so its close tag can restore exactly what was active before it.
type elemFrame struct {
	style StyleFlags
	pre   bool
}

// Stripper is a streaming HTML-to-styled-text converter. The zero value is
// ready to use. Setting Rules before feeding it markup makes resolved
// stylesheet rules (class and tag selectors) apply alongside each
// element's inline style="..." attribute; a nil Rules means only inline
// style and each tag's own built-in default apply.
type Stripper struct {
	Rules *cssprop.Rules

	ph phase

	carry []byte // bytes held over because a tag/entity/comment spanned a Feed boundary

	elemStack [maxElemDepth]elemFrame
	elemDepth int
	curStyle  StyleFlags
	curPre    bool // white-space:pre is active on the current element or an ancestor

	skipTarget string // end tag name we're discarding content until
	skipDepth  int    // nesting depth of skipTarget opens still unmatched

	pendingBreak BreakKind
	hasOutput    bool
	lastWasSpace bool

	textBuf []byte // accumulates a run's decoded text until a break/tag interrupts it

	tagBuf     []byte
	closingTag bool

	imgSrc string
	inImg  bool
}

// Feed processes another chunk of markup. It may call onRun and onImage any
// number of times, including zero. Chunks may split a tag, entity, or
// comment arbitrarily; Stripper carries the unparsed remainder internally.
func (s *Stripper) Feed(data []byte, onRun RunFunc, onImage ImageFunc) error {
	if len(s.carry) > 0 {
		data = append(s.carry, data...)
		s.carry = nil
	}
	pos, err := s.scan(data, onRun, onImage)
	if err != nil {
		return err
	}
	if pos < len(data) {
		rest := data[pos:]
		if len(rest) > maxCarry {
			// Pathological input (e.g. an unterminated tag longer than any
			// real EPUB would use): drop the excess rather than growing the
			// carry buffer without bound.
			rest = rest[:maxCarry]
		}
		s.carry = append([]byte(nil), rest...)
	}
	return nil
}

// Finish flushes any trailing text run. It should be called once after the
// final Feed call for a document.
func (s *Stripper) Finish(onRun RunFunc) error {
	return s.flushText(onRun)
}

// scan consumes data from the beginning, returning the position it
// stopped at (either len(data), or the start of an incomplete construct
// that must be carried into the next call).
func (s *Stripper) scan(data []byte, onRun RunFunc, onImage ImageFunc) (int, error) {
	i := 0
	for i < len(data) {
		switch s.ph {
		case phaseSkipContent:
			end, depth := scanSkipContent(data[i:], s.skipTarget, s.skipDepth)
			if depth > 0 {
				return i, nil // need more input; rescan from i with s.skipDepth
			}
			i += end
			s.ph = phaseText
			s.skipTarget = ""
			s.skipDepth = 0

		case phaseComment:
			end := indexBytes(data[i:], []byte("-->"))
			if end < 0 {
				return i, nil
			}
			i += end + 3
			s.ph = phaseText

		case phaseText:
			lt := indexByte(data[i:], '<')
			amp := indexByte(data[i:], '&')
			cut := lt
			if cut < 0 || (amp >= 0 && amp < cut) {
				cut = amp
			}
			if cut < 0 {
				s.appendText(data[i:])
				i = len(data)
				break
			}
			s.appendText(data[i : i+cut])
			i += cut
			if data[i] == '&' {
				end := indexByte(data[i:], ';')
				if end < 0 || end > 32 {
					if end < 0 {
						return i, nil // entity may still be arriving
					}
					// ';' too far away to plausibly be an entity: treat '&' literally
					s.appendText(data[i : i+1])
					i++
					break
				}
				entity := data[i : i+end+1]
				decoded := xmlscan.Unescape(entity, htmlEntityLookup)
				s.appendText(decoded)
				i += end + 1
				break
			}
			// '<'
			if i+1 >= len(data) {
				return i, nil
			}
			if data[i+1] == '!' {
				if hasBytePrefix(data[i:], "<!--") {
					s.ph = phaseComment
					i += 4
					break
				}
				end := indexByte(data[i:], '>')
				if end < 0 {
					return i, nil
				}
				i += end + 1
				break
			}
			if data[i+1] == '?' {
				end := indexByte(data[i:], '>')
				if end < 0 {
					return i, nil
				}
				i += end + 1
				break
			}
			if err := s.flushText(onRun); err != nil {
				return i, err
			}
			s.tagBuf = s.tagBuf[:0]
			s.closingTag = data[i+1] == '/'
			i++
			if s.closingTag {
				i++
			}
			s.ph = phaseTagName

		case phaseTagName:
			for i < len(data) {
				c := data[i]
				if isTagDelim(c) {
					break
				}
				if len(s.tagBuf) < maxTagName {
					s.tagBuf = append(s.tagBuf, lowerByte(c))
				}
				i++
			}
			if i >= len(data) {
				return len(data) - len(s.tagBuf) - boolToInt(s.closingTag) - 1, nil
			}
			s.ph = phaseInTag

		case phaseInTag:
			end := indexByte(data[i:], '>')
			if end < 0 {
				return i, nil
			}
			body := data[i : i+end]
			selfClose := len(body) > 0 && body[len(body)-1] == '/'
			tag := string(s.tagBuf)
			if s.closingTag {
				s.closeTag(tag)
			} else {
				s.openTag(tag, body, onImage)
				if s.ph == phaseSkipContent {
					if selfClose || voidElement[tag] {
						// No content to skip and no frame was pushed.
						s.ph = phaseInTag
						s.skipTarget = ""
						s.skipDepth = 0
					}
				} else if selfClose || voidElement[tag] {
					s.closeTag(tag)
				}
			}
			i += end + 1
			if s.ph == phaseInTag {
				s.ph = phaseText
			}
		}
	}
	return i, nil
}

func (s *Stripper) resolveProps(tag string, attrs []byte) cssprop.Props {
	var base cssprop.Props
	if s.Rules != nil {
		class, _ := findAttr(attrs, "class")
		base = s.Rules.Resolve(tag, class)
	}
	if styleAttr, ok := findAttr(attrs, "style"); ok && styleAttr != "" {
		base = cssprop.CascadeInline(base, cssprop.ParseInline([]byte(styleAttr)))
	}
	return base
}

func cssBitsFromProps(p cssprop.Props) StyleFlags {
	var f StyleFlags
	if p.IsBold() {
		f |= Bold
	}
	if p.IsItalic() {
		f |= Italic
	}
	if p.HasDecoration(cssprop.DecorationUnderline) {
		f |= Underline
	}
	if p.HasDecoration(cssprop.DecorationLineThrough) {
		f |= Strike
	}
	return f
}

func (s *Stripper) openTag(tag string, attrs []byte, onImage ImageFunc) {
	props := s.resolveProps(tag, attrs)
	if skipTag[tag] || props.IsHidden() {
		s.ph = phaseSkipContent
		s.skipTarget = tag
		s.skipDepth = 1
		return
	}

	addStyle := inlineStyle[tag] | cssBitsFromProps(props)
	s.pushElem(addStyle, props.IsPreformatted())

	if tag == "br" {
		s.raiseBreak(BreakHard)
		return
	}
	if tag == "img" {
		if src, ok := findAttr(attrs, "src"); ok && onImage != nil {
			_ = onImage(ImageRef{Src: src})
		}
		return
	}
	if sectionTag[tag] {
		s.raiseBreak(BreakSection)
	} else if blockTag[tag] {
		s.raiseBreak(BreakParagraph)
	}
}

func (s *Stripper) closeTag(tag string) {
	s.popElem()
	if sectionTag[tag] {
		s.raiseBreak(BreakSection)
	} else if blockTag[tag] {
		s.raiseBreak(BreakParagraph)
	}
}

func (s *Stripper) pushElem(add StyleFlags, pre bool) {
	if s.elemDepth < maxElemDepth {
		s.elemStack[s.elemDepth] = elemFrame{style: s.curStyle, pre: s.curPre}
	}
	s.elemDepth++
	s.curStyle |= add
	if pre {
		s.curPre = true
	}
	// Overflow: style/pre keep accumulating (already updated above) but the
	// stack can't record this frame, so the matching close won't be able to
	// restore the prior value exactly. This trades perfect nesting fidelity
	// for a hard bound on memory.
}

func (s *Stripper) popElem() {
	if s.elemDepth == 0 {
		return
	}
	s.elemDepth--
	if s.elemDepth < maxElemDepth {
		frame := s.elemStack[s.elemDepth]
		s.curStyle = frame.style
		s.curPre = frame.pre
	}
}

func (s *Stripper) raiseBreak(b BreakKind) {
	if b > s.pendingBreak {
		s.pendingBreak = b
	}
}

func (s *Stripper) appendText(decoded []byte) {
	if s.curPre {
		s.textBuf = append(s.textBuf, decoded...)
		if len(decoded) > 0 {
			s.hasOutput = true
			s.lastWasSpace = isHTMLSpace(decoded[len(decoded)-1])
		}
		return
	}
	for _, c := range decoded {
		if isHTMLSpace(c) {
			if s.lastWasSpace {
				continue
			}
			s.lastWasSpace = true
			if s.hasOutput {
				s.textBuf = append(s.textBuf, ' ')
			}
			continue
		}
		s.lastWasSpace = false
		s.hasOutput = true
		s.textBuf = append(s.textBuf, c)
	}
}

// flushText emits the accumulated text buffer (if non-empty after trimming
// a trailing collapsed space) as one StyledRun, carrying whatever break
// preceded it.
func (s *Stripper) flushText(onRun RunFunc) error {
	text := s.textBuf
	if len(text) > 0 && text[len(text)-1] == ' ' {
		text = text[:len(text)-1]
	}
	if len(text) == 0 {
		s.textBuf = s.textBuf[:0]
		return nil
	}
	run := StyledRun{Text: string(text), Style: s.curStyle, Break: s.pendingBreak}
	s.pendingBreak = BreakNone
	s.textBuf = s.textBuf[:0]
	s.lastWasSpace = true
	if onRun == nil {
		return nil
	}
	return onRun(run)
}

var voidElement = map[string]bool{
	"br": true, "img": true, "hr": true, "meta": true, "link": true,
	"input": true, "area": true, "base": true, "col": true, "embed": true,
	"source": true, "track": true, "wbr": true,
}
