package htmlstrip

import (
	"testing"

	"github.com/foliopress/leafcore/cssprop"
)

func collect(t *testing.T, html string) ([]StyledRun, []ImageRef) {
	t.Helper()
	return collectWithRules(t, nil, html)
}

func collectWithRules(t *testing.T, rules *cssprop.Rules, html string) ([]StyledRun, []ImageRef) {
	t.Helper()
	s := Stripper{Rules: rules}
	var runs []StyledRun
	var images []ImageRef
	onRun := func(r StyledRun) error {
		runs = append(runs, r)
		return nil
	}
	onImage := func(img ImageRef) error {
		images = append(images, img)
		return nil
	}
	if err := s.Feed([]byte(html), onRun, onImage); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := s.Finish(onRun); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return runs, images
}

func TestPlainParagraphs(t *testing.T) {
	runs, _ := collect(t, "<p>Hello world.</p><p>Second paragraph.</p>")
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Text != "Hello world." {
		t.Errorf("got %q", runs[0].Text)
	}
	if runs[1].Text != "Second paragraph." || runs[1].Break != BreakParagraph {
		t.Errorf("got %+v", runs[1])
	}
}

func TestInlineStyleNesting(t *testing.T) {
	runs, _ := collect(t, "<p>plain <b>bold <i>bolditalic</i></b> after</p>")
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Style != 0 || runs[0].Text != "plain" {
		t.Errorf("run0: %+v", runs[0])
	}
	if runs[1].Style != Bold || runs[1].Text != "bold" {
		t.Errorf("run1: %+v", runs[1])
	}
	if runs[2].Style != Bold|Italic || runs[2].Text != "bolditalic" {
		t.Errorf("run2: %+v", runs[2])
	}
	if runs[3].Style != 0 || runs[3].Text != "after" {
		t.Errorf("run3: %+v", runs[3])
	}
}

func TestWhitespaceCollapse(t *testing.T) {
	runs, _ := collect(t, "<p>  too   much\n\t  space   </p>")
	if len(runs) != 1 || runs[0].Text != "too much space" {
		t.Fatalf("got %+v", runs)
	}
}

func TestEntitiesDecoded(t *testing.T) {
	runs, _ := collect(t, "<p>Tom &amp; Jerry &mdash; a &lt;classic&gt;</p>")
	if len(runs) != 1 || runs[0].Text != "Tom & Jerry — a <classic>" {
		t.Fatalf("got %+v", runs)
	}
}

func TestScriptAndStyleSkipped(t *testing.T) {
	runs, _ := collect(t, "<p>before</p><script>var x = 1 < 2;</script><style>p{color:red}</style><p>after</p>")
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Text != "before" || runs[1].Text != "after" {
		t.Fatalf("got %+v", runs)
	}
}

func TestImageRefEmitted(t *testing.T) {
	runs, images := collect(t, `<p>see <img src="../images/fig1.png" alt="x"/> below</p>`)
	if len(images) != 1 || images[0].Src != "../images/fig1.png" {
		t.Fatalf("got images %+v", images)
	}
	if len(runs) != 2 || runs[0].Text != "see" || runs[1].Text != "below" {
		t.Fatalf("got runs %+v", runs)
	}
}

func TestBrIsHardBreak(t *testing.T) {
	runs, _ := collect(t, "<p>line one<br/>line two</p>")
	if len(runs) != 2 || runs[1].Break != BreakHard {
		t.Fatalf("got %+v", runs)
	}
}

func TestHeadingIsSectionBreakAndStyled(t *testing.T) {
	runs, _ := collect(t, "<h1>Chapter One</h1><p>Body text.</p>")
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", runs)
	}
	if runs[0].Style != Heading1 {
		t.Errorf("expected Heading1 style, got %v", runs[0].Style)
	}
	if runs[1].Break != BreakSection {
		t.Errorf("expected section break before body, got %v", runs[1].Break)
	}
}

func TestFeedAcrossChunkBoundaries(t *testing.T) {
	html := "<p>plain <b>bold text</b> and <i>italic</i></p>"
	for split := 1; split < len(html); split++ {
		var s Stripper
		var runs []StyledRun
		onRun := func(r StyledRun) error {
			runs = append(runs, r)
			return nil
		}
		if err := s.Feed([]byte(html[:split]), onRun, nil); err != nil {
			t.Fatalf("split %d: feed1: %v", split, err)
		}
		if err := s.Feed([]byte(html[split:]), onRun, nil); err != nil {
			t.Fatalf("split %d: feed2: %v", split, err)
		}
		if err := s.Finish(onRun); err != nil {
			t.Fatalf("split %d: finish: %v", split, err)
		}
		want := []string{"plain", "bold text", "and", "italic"}
		if len(runs) != len(want) {
			t.Fatalf("split %d: expected %d runs, got %d: %+v", split, len(want), len(runs), runs)
		}
		for i, w := range want {
			if runs[i].Text != w {
				t.Fatalf("split %d: run %d = %q, want %q", split, i, runs[i].Text, w)
			}
		}
	}
}

func TestInlineStyleAppliesBold(t *testing.T) {
	runs, _ := collect(t, `<p>plain <span style="font-weight: bold">strong span</span></p>`)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", runs)
	}
	if runs[0].Style != 0 || runs[0].Text != "plain" {
		t.Errorf("run0: %+v", runs[0])
	}
	if runs[1].Style != Bold || runs[1].Text != "strong span" {
		t.Errorf("run1: %+v", runs[1])
	}
}

func TestClassMatchedRuleApplies(t *testing.T) {
	var rules cssprop.Rules
	rules.Parse([]byte(`.emphasis { font-style: italic; }`))
	runs, _ := collectWithRules(t, &rules, `<p>plain <span class="emphasis">tagged</span></p>`)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", runs)
	}
	if runs[1].Style != Italic || runs[1].Text != "tagged" {
		t.Errorf("run1: %+v", runs[1])
	}
}

func TestInlineStyleOverridesStylesheetRule(t *testing.T) {
	var rules cssprop.Rules
	rules.Parse([]byte(`p { font-weight: bold; }`))
	runs, _ := collectWithRules(t, &rules, `<p style="font-weight: normal">not bold</p>`)
	if len(runs) != 1 || runs[0].Style&Bold != 0 {
		t.Fatalf("expected inline style to override the stylesheet rule, got %+v", runs)
	}
}

func TestDisplayNoneOmitsContent(t *testing.T) {
	runs, _ := collect(t, `<p>before</p><div style="display: none">hidden <b>text</b></div><p>after</p>`)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, hidden content should be dropped: %+v", runs)
	}
	if runs[0].Text != "before" || runs[1].Text != "after" {
		t.Fatalf("got %+v", runs)
	}
}

func TestDisplayNoneNestedTagsDontEscapeEarly(t *testing.T) {
	runs, _ := collect(t, `<div style="display: none"><div>nested</div>still hidden</div><p>after</p>`)
	if len(runs) != 1 || runs[0].Text != "after" {
		t.Fatalf("expected only trailing paragraph to survive nested hidden content: %+v", runs)
	}
}

func TestWhiteSpacePrePreservesFormatting(t *testing.T) {
	var rules cssprop.Rules
	rules.Parse([]byte(`pre { white-space: pre; }`))
	runs, _ := collectWithRules(t, &rules, "<pre>line one\n  line   two</pre>")
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %+v", runs)
	}
	if runs[0].Text != "line one\n  line   two" {
		t.Errorf("expected preformatted whitespace to survive verbatim, got %q", runs[0].Text)
	}
}

func TestHrStyleStackStaysBalanced(t *testing.T) {
	runs, _ := collect(t, "<p>before<hr/></p><p><b>after</b></p>")
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", runs)
	}
	if runs[0].Style != 0 {
		t.Errorf("run0 should carry no style, got %v", runs[0].Style)
	}
	if runs[1].Style != Bold {
		t.Errorf("run1 should carry only its own bold style, not a leaked frame from hr: %+v", runs[1])
	}
}
