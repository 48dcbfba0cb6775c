package bookpdf

// Notes:
// - ExtractPageMap: tests first-wins anchor mapping, heading filtering, and
//   render error propagation, using a scripted fake renderer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRenderer returns scripted documents in sequence and records the HTML
// it was given. Close is tracked for ownership tests.
type fakeRenderer struct {
	docs     []*RenderedDocument
	err      error
	calls    int
	seenHTML []string
	seenCSS  []string
	closed   bool
}

func (f *fakeRenderer) Render(ctx context.Context, htmlContent, cssContent string) (*RenderedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.seenHTML = append(f.seenHTML, htmlContent)
	f.seenCSS = append(f.seenCSS, cssContent)
	if f.err != nil {
		return nil, f.err
	}
	doc := f.docs[f.calls%len(f.docs)]
	f.calls++
	return doc, nil
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

var _ Renderer = (*fakeRenderer)(nil)

// ---------------------------------------------------------------------------
// TestPageAnchorExtractor_ExtractPageMap - Anchor to Page Mapping
// ---------------------------------------------------------------------------

func TestPageAnchorExtractor_ExtractPageMap(t *testing.T) {
	t.Parallel()

	doc := &RenderedDocument{Pages: []Page{
		{Number: 1, Elements: []PageElement{
			{Tag: "h1", AnchorID: "intro", Y: 50, Text: "Intro"},
			{Tag: "p", AnchorID: "", Y: 120, Text: "prose"},
		}},
		{Number: 2, Elements: []PageElement{
			{Tag: "h2", AnchorID: "details", Y: 40, Text: "Details"},
			// TOC row spans carry data-anchor too; only headings count.
			{Tag: "span", AnchorID: "intro", Y: 200, Text: "3"},
		}},
		{Number: 3, Elements: []PageElement{
			// Same anchor seen again: the first page must win.
			{Tag: "h2", AnchorID: "details", Y: 10, Text: "Details (continued)"},
		}},
	}}

	fake := &fakeRenderer{docs: []*RenderedDocument{doc}}
	extractor := NewPageAnchorExtractor(fake, nil)

	pageMap, got, err := extractor.ExtractPageMap(context.Background(), "<h1>Intro</h1>", "body{}")
	if err != nil {
		t.Fatalf("ExtractPageMap() error = %v", err)
	}
	if got != doc {
		t.Error("rendered document not returned")
	}

	want := map[string]int{"intro": 1, "details": 2}
	if len(pageMap) != len(want) {
		t.Fatalf("pageMap = %v, want %v", pageMap, want)
	}
	for anchor, page := range want {
		if pageMap[anchor] != page {
			t.Errorf("pageMap[%q] = %d, want %d", anchor, pageMap[anchor], page)
		}
	}
}

func TestPageAnchorExtractor_PreprocessesBeforeRender(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{docs: []*RenderedDocument{{Pages: []Page{{Number: 1}}}}}
	extractor := NewPageAnchorExtractor(fake, nil)

	_, _, err := extractor.ExtractPageMap(context.Background(), "<h1>Title</h1><hr>", "")
	if err != nil {
		t.Fatalf("ExtractPageMap() error = %v", err)
	}
	if len(fake.seenHTML) != 1 {
		t.Fatalf("renderer called %d times, want exactly 1", len(fake.seenHTML))
	}
	sent := fake.seenHTML[0]
	if !containsAll(sent, `data-anchor="title"`, `class="chapter-separator"`) {
		t.Errorf("renderer received unprocessed HTML: %q", sent)
	}
}

func TestPageAnchorExtractor_RenderFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{err: errors.New("browser crashed")}
	extractor := NewPageAnchorExtractor(fake, nil)

	_, _, err := extractor.ExtractPageMap(context.Background(), "<h1>T</h1>", "")
	if !errors.Is(err, ErrRender) {
		t.Errorf("ExtractPageMap() error = %v, want ErrRender", err)
	}
}

func TestPageAnchorExtractor_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeRenderer{docs: []*RenderedDocument{{Pages: []Page{{Number: 1}}}}}
	extractor := NewPageAnchorExtractor(fake, nil)

	_, _, err := extractor.ExtractPageMap(ctx, "<h1>T</h1>", "")
	if err == nil {
		t.Fatal("ExtractPageMap() succeeded with cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

// containsAll reports whether s contains every substring.
func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
