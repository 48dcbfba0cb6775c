package bookpdf

// Notes:
// - ValidateNoBlankParasites: tests empty and digit-only pages, and the
//   editorial break exemption
// - DetectTextRivers: tests the length/word-count/mean-length heuristic
// - ValidateTOCSync: tests mismatch reporting
// - DetectOrphanTitles: tests the bottom-zone rule and following content
// - Run: tests the four-check conjunction

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestQualityValidator_ValidateNoBlankParasites - Blank Page Detection
// ---------------------------------------------------------------------------

func TestQualityValidator_ValidateNoBlankParasites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		doc            *RenderedDocument
		wantValid      bool
		wantParasites  []int
		wantEditorials []int
	}{
		{
			name: "all pages carry text",
			doc: &RenderedDocument{Pages: []Page{
				{Number: 1, FullText: "Chapter One"},
				{Number: 2, FullText: "More prose."},
			}},
			wantValid: true,
		},
		{
			name: "empty page is a parasite",
			doc: &RenderedDocument{Pages: []Page{
				{Number: 1, FullText: "text"},
				{Number: 2, FullText: "   "},
			}},
			wantParasites: []int{2},
		},
		{
			name: "page number only is a parasite",
			doc: &RenderedDocument{Pages: []Page{
				{Number: 1, FullText: "text"},
				{Number: 2, FullText: "42"},
			}},
			wantParasites: []int{2},
		},
		{
			name: "blank after editorial break is intentional",
			doc: &RenderedDocument{Pages: []Page{
				{Number: 1, FullText: "end of part", Elements: []PageElement{
					{Tag: "div", Class: "editorial-break"},
				}},
				{Number: 2, FullText: ""},
			}},
			wantValid:      true,
			wantEditorials: []int{2},
		},
		{
			name: "blank first page has no exemption",
			doc: &RenderedDocument{Pages: []Page{
				{Number: 1, FullText: ""},
			}},
			wantParasites: []int{1},
		},
	}

	v := NewQualityValidator()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := v.ValidateNoBlankParasites(tt.doc)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", result.Valid, tt.wantValid)
			}
			if !equalInts(result.Parasites, tt.wantParasites) {
				t.Errorf("Parasites = %v, want %v", result.Parasites, tt.wantParasites)
			}
			if !equalInts(result.EditorialPages, tt.wantEditorials) {
				t.Errorf("EditorialPages = %v, want %v", result.EditorialPages, tt.wantEditorials)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestQualityValidator_DetectTextRivers - River Heuristic
// ---------------------------------------------------------------------------

func TestQualityValidator_DetectTextRivers(t *testing.T) {
	t.Parallel()

	// Long paragraph of short words: mean word length well under threshold.
	risky := strings.Repeat("a be out to it in on at we he ", 6)
	// Long paragraph of normal prose words.
	healthy := strings.Repeat("typography considerations deserve attention ", 5)

	tests := []struct {
		name      string
		elements  []PageElement
		wantCount int
	}{
		{
			name:      "short paragraph ignored",
			elements:  []PageElement{{Tag: "p", Text: "brief"}},
			wantCount: 0,
		},
		{
			name:      "long short-word paragraph flagged",
			elements:  []PageElement{{Tag: "p", Text: risky}},
			wantCount: 1,
		},
		{
			name:      "long normal paragraph passes",
			elements:  []PageElement{{Tag: "p", Text: healthy}},
			wantCount: 0,
		},
		{
			name:      "headings never counted",
			elements:  []PageElement{{Tag: "h1", Text: risky}},
			wantCount: 0,
		},
		{
			name: "multiple risky paragraphs accumulate",
			elements: []PageElement{
				{Tag: "p", Text: risky},
				{Tag: "p", Text: risky},
			},
			wantCount: 2,
		},
	}

	v := NewQualityValidator()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := &RenderedDocument{Pages: []Page{{Number: 1, Elements: tt.elements}}}
			result := v.DetectTextRivers(doc)
			if result.RiverCount != tt.wantCount {
				t.Errorf("RiverCount = %d, want %d", result.RiverCount, tt.wantCount)
			}
			if result.Valid != (tt.wantCount == 0) {
				t.Errorf("Valid = %v, want %v", result.Valid, tt.wantCount == 0)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestQualityValidator_ValidateTOCSync - TOC Synchronization
// ---------------------------------------------------------------------------

func TestQualityValidator_ValidateTOCSync(t *testing.T) {
	t.Parallel()

	v := NewQualityValidator()
	pageMap := map[string]int{"intro": 3, "body": 9}

	synced := v.ValidateTOCSync(pageMap, []TOCEntry{
		{ID: "intro", Title: "Intro", Page: 3},
		{ID: "body", Title: "Body", Page: 9},
	})
	if !synced.Valid || len(synced.Mismatches) != 0 {
		t.Errorf("ValidateTOCSync(synced) = %+v, want valid", synced)
	}

	drifted := v.ValidateTOCSync(pageMap, []TOCEntry{
		{ID: "intro", Title: "Intro", Page: 3},
		{ID: "body", Title: "Body", Page: 8},
	})
	if drifted.Valid {
		t.Error("drifted TOC reported valid")
	}
	if len(drifted.Mismatches) != 1 {
		t.Fatalf("Mismatches = %+v, want one", drifted.Mismatches)
	}
	m := drifted.Mismatches[0]
	if m.Entry != "Body" || m.Expected != 9 || m.Actual != 8 {
		t.Errorf("mismatch = %+v, want {Body 9 8}", m)
	}
}

// ---------------------------------------------------------------------------
// TestQualityValidator_DetectOrphanTitles - Orphaned Heading Detection
// ---------------------------------------------------------------------------

func TestQualityValidator_DetectOrphanTitles(t *testing.T) {
	t.Parallel()

	const pageHeight = 800.0

	tests := []struct {
		name     string
		elements []PageElement
		want     int
	}{
		{
			name: "heading high on page is safe",
			elements: []PageElement{
				{Tag: "h2", Y: 100, Text: "Safe Title"},
			},
			want: 0,
		},
		{
			name: "heading in bottom zone with nothing after",
			elements: []PageElement{
				{Tag: "h2", Y: 790, Text: "Stranded"},
			},
			want: 1,
		},
		{
			name: "heading in bottom zone with following prose",
			elements: []PageElement{
				{Tag: "h2", Y: 700, Text: "Tight but fine"},
				{Tag: "p", Y: 760, Text: "Content follows on the same page."},
			},
			want: 0,
		},
		{
			name: "following element with empty text does not rescue",
			elements: []PageElement{
				{Tag: "h3", Y: 750, Text: "Stranded"},
				{Tag: "div", Y: 780, Text: "  "},
			},
			want: 1,
		},
		{
			name: "paragraph in bottom zone is not a title",
			elements: []PageElement{
				{Tag: "p", Y: 790, Text: "last line of the page"},
			},
			want: 0,
		},
	}

	v := NewQualityValidator()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := &RenderedDocument{Pages: []Page{
				{Number: 1, Elements: tt.elements, Height: pageHeight},
			}}
			result := v.DetectOrphanTitles(doc)
			if len(result.Orphans) != tt.want {
				t.Errorf("Orphans = %+v, want %d", result.Orphans, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestQualityValidator_Run - Check Conjunction
// ---------------------------------------------------------------------------

func TestQualityValidator_Run(t *testing.T) {
	t.Parallel()

	v := NewQualityValidator()
	doc := &RenderedDocument{Pages: []Page{
		{Number: 1, FullText: "Chapter One prose.", Height: 800, Elements: []PageElement{
			{Tag: "h1", AnchorID: "one", Y: 60, Text: "Chapter One"},
			{Tag: "p", Y: 120, Text: "prose."},
		}},
	}}
	pageMap := map[string]int{"one": 1}
	entries := []TOCEntry{{ID: "one", Title: "Chapter One", Page: 1}}

	report := v.Run(doc, pageMap, entries)
	if !report.AllValid {
		t.Errorf("Run() AllValid = false for a clean document: %+v", report)
	}
	if report.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", report.PageCount)
	}

	// One failing check flips the conjunction.
	doc.Pages = append(doc.Pages, Page{Number: 2, FullText: ""})
	report = v.Run(doc, pageMap, entries)
	if report.AllValid {
		t.Error("Run() AllValid = true with a parasitic blank page")
	}
	if report.TOCSync.Valid != true {
		t.Error("unrelated checks must stay independent")
	}
}

// equalInts compares two int slices, treating nil and empty as equal.
func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
