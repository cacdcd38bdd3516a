package epub

import "testing"

func TestParseOPFManifestAndSpine(t *testing.T) {
	doc, err := parseOPF([]byte(testOPF))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if doc.Version != "3.0" {
		t.Errorf("Version = %q", doc.Version)
	}
	if len(doc.Manifest) != 3 {
		t.Fatalf("Manifest = %+v", doc.Manifest)
	}
	if doc.Manifest[0].ID != "nav" || doc.Manifest[0].Properties[0] != "nav" {
		t.Errorf("Manifest[0] = %+v", doc.Manifest[0])
	}
	if len(doc.Spine) != 2 || doc.Spine[0].IDRef != "ch1" || !doc.Spine[0].Linear {
		t.Fatalf("Spine = %+v", doc.Spine)
	}
	if len(doc.DC["title"]) != 1 || doc.DC["title"][0].Value != "Example Book" {
		t.Errorf("DC title = %+v", doc.DC["title"])
	}
	if len(doc.Metas) != 2 {
		t.Fatalf("Metas = %+v", doc.Metas)
	}
}

func TestParseOPFHonorsLinearNo(t *testing.T) {
	data := []byte(`<package version="2.0">
  <metadata><dc:title xmlns:dc="http://purl.org/dc/elements/1.1/">T</dc:title></metadata>
  <manifest><item id="a" href="a.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="a" linear="no"/></spine>
</package>`)
	doc, err := parseOPF(data)
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if len(doc.Spine) != 1 || doc.Spine[0].Linear {
		t.Fatalf("Spine = %+v", doc.Spine)
	}
}

func TestParseOPFRejectsMissingManifest(t *testing.T) {
	_, err := parseOPF([]byte(`<package version="3.0"><metadata></metadata></package>`))
	if err == nil {
		t.Fatal("expected an error for a manifest-less package document")
	}
}
