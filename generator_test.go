package bookpdf

// Notes:
// - Generate: tests the two-pass flow with a scripted renderer, injection of
//   resolved page numbers between passes, HTML-only mode, fail-fast on
//   invalid input, render failure propagation, and cancellation
// - stylesheet: tests cache reuse across exports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// twoPassDoc builds a rendered document whose single chapter heading lands
// on the given page.
func twoPassDoc(page int) *RenderedDocument {
	pages := make([]Page, page)
	for i := range pages {
		pages[i] = Page{
			Number:   i + 1,
			FullText: "filler prose for this page",
			Height:   800,
			Elements: []PageElement{{Tag: "p", Y: 100, Text: "filler prose for this page"}},
		}
	}
	pages[page-1].Elements = append([]PageElement{
		{Tag: "h1", AnchorID: "introduction", Y: 60, Text: "Introduction"},
	}, pages[page-1].Elements...)
	pages[page-1].FullText = "Introduction filler prose for this page"
	return &RenderedDocument{Pages: pages, PDF: []byte("%PDF-stub")}
}

func testChapters() []Chapter {
	return []Chapter{
		{ID: "introduction", Title: "Introduction", Position: 1, Content: "<p>Opening text.</p>"},
	}
}

func mustResolve(t *testing.T) *ResolvedStyleConfig {
	t.Helper()
	cfg, err := Resolve(TemplateRoman, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return cfg
}

// ---------------------------------------------------------------------------
// TestGenerator_Generate - Two-Pass Pipeline
// ---------------------------------------------------------------------------

func TestGenerator_Generate_TwoPasses(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(2)}}
	gen := NewGenerator(WithRenderer(fake))

	result, err := gen.Generate(context.Background(), testChapters(), mustResolve(t))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if fake.calls != 2 {
		t.Errorf("renderer called %d times, want 2 (two passes)", fake.calls)
	}

	// Pass 1 renders unresolved placeholders.
	if !strings.Contains(fake.seenHTML[0], `data-anchor="introduction">?</span>`) {
		t.Errorf("first pass HTML missing unresolved TOC slot:\n%s", fake.seenHTML[0])
	}

	// Pass 2 renders the real page number, with the marker attribute gone.
	second := fake.seenHTML[1]
	if !strings.Contains(second, `<span class="toc-page">2</span>`) {
		t.Errorf("second pass HTML missing injected page number:\n%s", second)
	}
	if strings.Contains(second, `class="toc-page" data-anchor=`) {
		t.Error("second pass HTML still carries unresolved TOC slots")
	}

	if !bytes.Equal(result.PDF, []byte("%PDF-stub")) {
		t.Error("result PDF is not the second pass output")
	}
	if result.Report == nil {
		t.Fatal("result carries no quality report")
	}
	if result.Report.ExportID == "" {
		t.Error("report missing export ID")
	}
	if result.Report.PageCount != 2 {
		t.Errorf("report PageCount = %d, want 2", result.Report.PageCount)
	}
	if !result.Report.TOCSync.Valid {
		t.Errorf("TOC sync invalid for stable layout: %+v", result.Report.TOCSync)
	}
	if got := result.Report.PageMap["introduction"]; got != 2 {
		t.Errorf("PageMap[introduction] = %d, want 2", got)
	}
}

func TestGenerator_Generate_TOCDriftReported(t *testing.T) {
	t.Parallel()

	// The heading moves from page 2 to page 3 between passes. The report
	// must flag the divergence without failing the export.
	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(2), twoPassDoc(3)}}
	gen := NewGenerator(WithRenderer(fake))

	result, err := gen.Generate(context.Background(), testChapters(), mustResolve(t))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Report.TOCSync.Valid {
		t.Error("TOC drift between passes not reported")
	}
	if result.Report.AllValid {
		t.Error("AllValid = true despite TOC drift")
	}
	if len(result.PDF) == 0 {
		t.Error("a failed quality check must never block the export")
	}
}

func TestGenerator_Generate_TOCDisabled(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(1)}}
	gen := NewGenerator(WithRenderer(fake))

	cfg, err := Resolve(TemplateRoman, map[string]any{
		"features": map[string]any{"table_of_contents": false},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	result, genErr := gen.Generate(context.Background(), testChapters(), cfg)
	if genErr != nil {
		t.Fatalf("Generate() error = %v", genErr)
	}

	// No TOC means nothing to synchronize: a single render suffices.
	if fake.calls != 1 {
		t.Errorf("renderer called %d times without a TOC, want 1", fake.calls)
	}
	if strings.Contains(fake.seenHTML[0], "table-of-contents") {
		t.Error("TOC block rendered despite disabled feature")
	}
	if len(result.PDF) == 0 {
		t.Error("PDF missing from single-pass export")
	}
	if !result.Report.TOCSync.Valid {
		t.Error("empty TOC must trivially pass the sync check")
	}
}

func TestGenerator_Generate_HTMLOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(2)}}
	gen := NewGenerator(WithRenderer(fake), WithHTMLOnly())

	result, err := gen.Generate(context.Background(), testChapters(), mustResolve(t))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("renderer called %d times, want 1 in HTML-only mode", fake.calls)
	}
	if len(result.PDF) != 0 {
		t.Error("HTML-only mode must not produce a PDF")
	}
	if !strings.Contains(string(result.HTML), `<span class="toc-page">2</span>`) {
		t.Error("HTML output missing synchronized page numbers")
	}
}

func TestGenerator_Generate_FailFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		chapters []Chapter
		mutate   func(*ResolvedStyleConfig)
		wantErr  error
	}{
		{
			name:     "invalid configuration",
			chapters: testChapters(),
			mutate:   func(c *ResolvedStyleConfig) { c.Layout.PageSize = "nope" },
			wantErr:  ErrInvalidConfig,
		},
		{
			name:     "no chapters",
			chapters: nil,
			mutate:   func(*ResolvedStyleConfig) {},
			wantErr:  ErrEmptyDocument,
		},
		{
			name: "broken positions",
			chapters: []Chapter{
				{Title: "A", Position: 1, Content: "<p>a</p>"},
				{Title: "B", Position: 5, Content: "<p>b</p>"},
			},
			mutate:  func(*ResolvedStyleConfig) {},
			wantErr: ErrChapterPositions,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(1)}}
			gen := NewGenerator(WithRenderer(fake))

			cfg := mustResolve(t)
			tt.mutate(cfg)

			_, err := gen.Generate(context.Background(), tt.chapters, cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if fake.calls != 0 {
				t.Errorf("renderer called %d times before validation, want 0", fake.calls)
			}
		})
	}
}

func TestGenerator_Generate_RenderFailureFatal(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{err: errors.New("chrome went away")}
	gen := NewGenerator(WithRenderer(fake))

	_, err := gen.Generate(context.Background(), testChapters(), mustResolve(t))
	if !errors.Is(err, ErrRender) {
		t.Errorf("Generate() error = %v, want ErrRender", err)
	}
}

func TestGenerator_Generate_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(1)}}
	gen := NewGenerator(WithRenderer(fake))

	_, err := gen.Generate(ctx, testChapters(), mustResolve(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestGenerator_Close(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(1)}}
	gen := NewGenerator(WithRenderer(fake))

	if err := gen.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("Close() did not close the renderer")
	}
}

// ---------------------------------------------------------------------------
// TestGenerator_StylesheetCache - CSS Reuse Across Exports
// ---------------------------------------------------------------------------

// countingCache wraps the in-memory cache and counts insertions.
type countingCache struct {
	inner Cache
	puts  atomic.Int64
}

func (c *countingCache) Get(key string) (string, bool) { return c.inner.Get(key) }
func (c *countingCache) Put(key, value string) {
	c.puts.Add(1)
	c.inner.Put(key, value)
}

func TestGenerator_StylesheetCache(t *testing.T) {
	t.Parallel()

	cache := &countingCache{inner: NewMemoryCache()}
	fake := &fakeRenderer{docs: []*RenderedDocument{twoPassDoc(1)}}
	gen := NewGenerator(WithRenderer(fake), WithCache(cache))

	cfg := mustResolve(t)
	for i := 0; i < 3; i++ {
		if _, err := gen.Generate(context.Background(), testChapters(), cfg); err != nil {
			t.Fatalf("Generate() #%d error = %v", i, err)
		}
	}

	if got := cache.puts.Load(); got != 1 {
		t.Errorf("stylesheet generated %d times for identical config, want 1", got)
	}

	// A structurally different configuration gets its own entry.
	other, err := Resolve(TemplateRoman, map[string]any{
		"typography": map[string]any{"font_size": "14pt"},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := gen.Generate(context.Background(), testChapters(), other); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := cache.puts.Load(); got != 2 {
		t.Errorf("cache insertions = %d after config change, want 2", got)
	}
}
