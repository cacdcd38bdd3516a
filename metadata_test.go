package epub

import "testing"

func TestExtractMetadataBasicFields(t *testing.T) {
	doc, err := parseOPF([]byte(testOPF))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	md := extractMetadata(doc)
	if md.Title != "Example Book" {
		t.Errorf("Title = %q", md.Title)
	}
	if md.Publisher != "Acme Press" {
		t.Errorf("Publisher = %q", md.Publisher)
	}
	if len(md.Authors) != 1 || md.Authors[0].Role != "aut" || md.Authors[0].FileAs != "Author, Jane" {
		t.Errorf("Authors = %+v", md.Authors)
	}
	if len(md.Identifiers) != 1 || md.Identifiers[0].Value != "urn:uuid:1234" {
		t.Errorf("Identifiers = %+v", md.Identifiers)
	}
}

func TestFirstTitlePrefersDisplaySeq(t *testing.T) {
	doc := &opfDoc{
		DC: map[string][]dcElement{
			"title": {
				{Value: "Subtitle Version", ID: "t2"},
				{Value: "Main Title", ID: "t1"},
			},
		},
		Metas: []opfMetaTag{
			{Refines: "#t1", Property: "display-seq", Value: "1"},
			{Refines: "#t2", Property: "display-seq", Value: "2"},
		},
	}
	md := extractMetadata(doc)
	if md.Title != "Main Title" {
		t.Fatalf("Title = %q", md.Title)
	}
}

func TestFirstTitleFallsBackToDocumentOrder(t *testing.T) {
	doc := &opfDoc{
		DC: map[string][]dcElement{
			"title": {{Value: "First"}, {Value: "Second"}},
		},
	}
	md := extractMetadata(doc)
	if md.Title != "First" {
		t.Fatalf("Title = %q", md.Title)
	}
}

func TestIdentifierSchemeFromRefines(t *testing.T) {
	doc := &opfDoc{
		DC: map[string][]dcElement{
			"identifier": {{Value: "9780000000000", ID: "isbn"}},
		},
		Metas: []opfMetaTag{
			{Refines: "#isbn", Property: "identifier-type", Value: "ISBN"},
		},
	}
	md := extractMetadata(doc)
	if len(md.Identifiers) != 1 || md.Identifiers[0].Scheme != "ISBN" {
		t.Fatalf("Identifiers = %+v", md.Identifiers)
	}
}

func TestExtractMetadataTruncatesOverlongTitleAndAuthor(t *testing.T) {
	longTitle := ""
	for len(longTitle) < titleCap+20 {
		longTitle += "x"
	}
	longAuthor := ""
	for len(longAuthor) < authorCap+20 {
		longAuthor += "y"
	}
	doc := &opfDoc{
		DC: map[string][]dcElement{
			"title":   {{Value: longTitle}},
			"creator": {{Value: longAuthor}},
		},
	}
	md := extractMetadata(doc)
	if len(md.Title) != titleCap {
		t.Errorf("Title length = %d, want %d", len(md.Title), titleCap)
	}
	if len(md.Authors) != 1 || len(md.Authors[0].Name) != authorCap {
		t.Errorf("Authors = %+v", md.Authors)
	}
}
