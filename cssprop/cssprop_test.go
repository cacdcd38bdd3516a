package cssprop

import "testing"

func TestResolveTagAndClassCascade(t *testing.T) {
	var rules Rules
	rules.Parse([]byte(`
		p { font-style: italic; margin-top: 1em; }
		.note { font-weight: bold; }
		p.note { text-align: center; }
	`))

	p := rules.Resolve("p", "note")
	if !p.IsItalic() {
		t.Errorf("expected italic from tag rule")
	}
	if !p.IsBold() {
		t.Errorf("expected bold from class rule")
	}
	if p.TextAlign != AlignCenter {
		t.Errorf("expected center from compound rule, got %v", p.TextAlign)
	}
	if p.MarginBefore != 1 {
		t.Errorf("expected margin-before 1em, got %d", p.MarginBefore)
	}
}

func TestResolveLastWinsOnTie(t *testing.T) {
	var rules Rules
	rules.Parse([]byte(`p { font-weight: normal; } p { font-weight: bold; }`))
	p := rules.Resolve("p", "")
	if !p.IsBold() {
		t.Errorf("expected later same-specificity rule to win")
	}
}

func TestUnknownPropertySkipped(t *testing.T) {
	var rules Rules
	rules.Parse([]byte(`p { color: red; font-weight: bold }`))
	p := rules.Resolve("p", "")
	if !p.IsBold() {
		t.Errorf("expected bold to survive alongside unknown color")
	}
}

func TestParseInlineReadsBoldAndAlign(t *testing.T) {
	inline := ParseInline([]byte("font-weight: bold; text-align: right"))
	if !inline.IsBold() || inline.TextAlign != AlignEnd {
		t.Fatalf("unexpected inline parse: %+v", inline)
	}
}

func TestFontWeightNumeric(t *testing.T) {
	p := ParseDeclarations([]byte("font-weight: 700"))
	if !p.IsBold() {
		t.Fatalf("expected 700 to resolve to bold")
	}
	p = ParseDeclarations([]byte("font-weight: 300"))
	if p.IsBold() {
		t.Fatalf("expected 300 to resolve to normal")
	}
}

func TestSelectorDescendantReducesToRightmost(t *testing.T) {
	var rules Rules
	rules.Parse([]byte(`div p { font-style: italic; }`))
	if !rules.Resolve("p", "").IsItalic() {
		t.Fatalf("expected descendant selector to match on rightmost simple selector")
	}
}

func TestMissingTrailingSemicolon(t *testing.T) {
	p := ParseDeclarations([]byte("font-weight: bold"))
	if !p.IsBold() {
		t.Fatalf("expected trailing semicolon to be optional")
	}
}

func TestWhiteSpacePreVariants(t *testing.T) {
	for _, value := range []string{"pre", "pre-wrap", "pre-line"} {
		p := ParseDeclarations([]byte("white-space: " + value))
		if !p.IsPreformatted() {
			t.Errorf("white-space: %s: expected IsPreformatted", value)
		}
	}
	p := ParseDeclarations([]byte("white-space: normal"))
	if p.IsPreformatted() {
		t.Errorf("white-space: normal: expected not preformatted")
	}
}

func TestDisplayNoneHidden(t *testing.T) {
	p := ParseDeclarations([]byte("display: none"))
	if !p.IsHidden() {
		t.Fatalf("expected display:none to resolve hidden")
	}
}

func TestCascadeInlineOverridesRule(t *testing.T) {
	var rules Rules
	rules.Parse([]byte(`p { font-weight: bold; text-align: center; }`))
	base := rules.Resolve("p", "")
	inline := ParseInline([]byte("font-weight: normal"))
	result := CascadeInline(base, inline)
	if result.IsBold() {
		t.Errorf("expected inline font-weight:normal to override the stylesheet rule")
	}
	if result.TextAlign != AlignCenter {
		t.Errorf("expected non-overridden fields to survive the cascade, got %v", result.TextAlign)
	}
}
