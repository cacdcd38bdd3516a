// Package cssprop parses the EPUB-flavoured subset of CSS this pipeline
// needs: a small typed property set (display, font-weight, font-style,
// text-decoration, text-align, margin-before/after), type and class
// selectors ANDed together, and last-wins cascade ordering. A selector
// with combinators is reduced to its rightmost simple selector, and a
// pseudo-class or id suffix on it is dropped before matching; attribute
// selectors never match. Unrecognised properties and @-rules are parsed
// just enough to be skipped, never applied.
package cssprop

// Display mirrors the "display" values this pipeline observes.
type Display uint8

const (
	DisplayUnset Display = iota
	DisplayInline
	DisplayBlock
	DisplayListItem
	DisplayNone
)

// FontWeight is normal or bold; CSS numeric weights collapse to one of the two.
type FontWeight uint8

const (
	WeightNormal FontWeight = iota
	WeightBold
)

// FontStyle is normal or italic ("oblique" counts as italic).
type FontStyle uint8

const (
	StyleNormal FontStyle = iota
	StyleItalic
)

// TextAlign mirrors CSS logical alignment keywords.
type TextAlign uint8

const (
	AlignStart TextAlign = iota
	AlignCenter
	AlignEnd
	AlignJustify
)

// TextDecoration is a bit set; a rule may set both underline and strike.
type TextDecoration uint8

const (
	DecorationNone        TextDecoration = 0
	DecorationUnderline   TextDecoration = 1 << 0
	DecorationLineThrough TextDecoration = 1 << 1
)

// WhiteSpace mirrors the "white-space" values that affect whether runs of
// space are collapsed; every "pre*" keyword (pre, pre-wrap, pre-line)
// collapses to the same preformatted treatment this pipeline cares about.
type WhiteSpace uint8

const (
	WhiteSpaceNormal WhiteSpace = iota
	WhiteSpacePre
)

// setBit indexes which fields of Props have been explicitly assigned, so
// cascade merging can tell "explicitly normal" from "never mentioned".
type setBit uint16

const (
	setDisplay setBit = 1 << iota
	setFontWeight
	setFontStyle
	setTextAlign
	setTextDecoration
	setMarginBefore
	setMarginAfter
	setWhiteSpace
)

const numProps = 8

// Props is a resolved CSS property set.
type Props struct {
	set setBit

	Display        Display
	FontWeight     FontWeight
	FontStyle      FontStyle
	TextAlign      TextAlign
	TextDecoration TextDecoration
	// MarginBefore/After are whole-em units, kept as a small integer.
	MarginBefore int8
	MarginAfter  int8
	WhiteSpace   WhiteSpace
}

// IsBold reports whether font-weight was explicitly resolved to bold.
func (p Props) IsBold() bool { return p.set&setFontWeight != 0 && p.FontWeight == WeightBold }

// IsItalic reports whether font-style was explicitly resolved to italic.
func (p Props) IsItalic() bool { return p.set&setFontStyle != 0 && p.FontStyle == StyleItalic }

// IsHidden reports whether display was explicitly resolved to none.
func (p Props) IsHidden() bool { return p.set&setDisplay != 0 && p.Display == DisplayNone }

// HasDecoration reports whether d is set in TextDecoration.
func (p Props) HasDecoration(d TextDecoration) bool {
	return p.set&setTextDecoration != 0 && p.TextDecoration&d != 0
}

// IsPreformatted reports whether white-space was explicitly resolved to a
// "pre"-family value.
func (p Props) IsPreformatted() bool {
	return p.set&setWhiteSpace != 0 && p.WhiteSpace == WhiteSpacePre
}

// merge overlays other onto p, field by field, where other's specificity is
// >= the best specificity p has already recorded for that field — ties go
// to the later rule (last-wins).
func (p *Props) merge(other Props, specificity uint8, best *[numProps]uint8) {
	apply := func(bit setBit, idx int, fn func()) {
		if other.set&bit != 0 && specificity >= best[idx] {
			fn()
			p.set |= bit
			best[idx] = specificity
		}
	}
	apply(setDisplay, 0, func() { p.Display = other.Display })
	apply(setFontWeight, 1, func() { p.FontWeight = other.FontWeight })
	apply(setFontStyle, 2, func() { p.FontStyle = other.FontStyle })
	apply(setTextAlign, 3, func() { p.TextAlign = other.TextAlign })
	apply(setTextDecoration, 4, func() { p.TextDecoration = other.TextDecoration })
	apply(setMarginBefore, 5, func() { p.MarginBefore = other.MarginBefore })
	apply(setMarginAfter, 6, func() { p.MarginAfter = other.MarginAfter })
	apply(setWhiteSpace, 7, func() { p.WhiteSpace = other.WhiteSpace })
}

// CascadeInline overlays an element's inline style="..." declarations onto
// its already-resolved stylesheet cascade. Inline declarations always win,
// per CSS's cascade-origin ordering, regardless of any selector specificity
// the stylesheet rules matched with.
func CascadeInline(base, inline Props) Props {
	result := base
	var best [numProps]uint8
	result.merge(inline, 255, &best)
	return result
}
