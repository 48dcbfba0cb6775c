package bookpdf

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// defaultTOCTitle labels the table of contents block.
const defaultTOCTitle = "Table des matières"

// BuildChaptersHTML assembles ordered chapters into one document body.
// Positions must be 1-based, unique, and contiguous; a gap or duplicate
// would silently reorder the table of contents, so assembly fails fast.
func BuildChaptersHTML(chapters []Chapter) (string, error) {
	if len(chapters) == 0 {
		return "", ErrEmptyDocument
	}

	ordered := make([]Chapter, len(chapters))
	copy(ordered, chapters)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	for i, ch := range ordered {
		if ch.Position != i+1 {
			return "", fmt.Errorf("%w: chapter %q has position %d, want %d",
				ErrChapterPositions, ch.Title, ch.Position, i+1)
		}
	}

	var b strings.Builder
	for _, ch := range ordered {
		b.WriteString(`<div class="chapter">` + "\n")
		b.WriteString("<h1>" + html.EscapeString(ch.Title) + "</h1>\n")
		b.WriteString(ch.Content)
		b.WriteString("\n</div>\n")
	}
	return b.String(), nil
}

// BuildTOCHTML renders the table-of-contents block with unresolved page
// placeholders. Each row carries a data-anchor attribute that the
// synchronizer later resolves against the page map; until then the page
// slot shows the literal unresolved marker.
func BuildTOCHTML(entries []TOCEntry, title string) string {
	if len(entries) == 0 {
		return ""
	}
	if title == "" {
		title = defaultTOCTitle
	}

	var b strings.Builder
	b.WriteString(`<div class="table-of-contents">` + "\n")
	b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, `<div class="toc-entry toc-level-%d">`+"\n", e.Level)
		fmt.Fprintf(&b, `<span class="toc-title">%s</span>`+"\n", html.EscapeString(e.Title))
		b.WriteString(`<span class="toc-dots"></span>` + "\n")
		fmt.Fprintf(&b, `<span class="toc-page" data-anchor="%s">?</span>`+"\n", e.ID)
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n")
	return b.String()
}
