package bookpdf

import (
	"regexp"
	"strconv"
)

// tocPlaceholderPattern matches unresolved TOC page slots. The data-anchor
// attribute marks a slot as unresolved; synchronized slots no longer match.
var tocPlaceholderPattern = regexp.MustCompile(`<span class="toc-page"[^>]*\bdata-anchor="([^"]+)"[^>]*>[^<]*</span>`)

// InjectPageNumbers rewrites every TOC placeholder carrying a data-anchor
// attribute with the page number from pageMap, or the literal "?" marker
// when the anchor is absent. The attribute is stripped from the emitted
// element, so applying InjectPageNumbers to its own output is a no-op.
func InjectPageNumbers(html string, pageMap map[string]int) string {
	return tocPlaceholderPattern.ReplaceAllStringFunc(html, func(match string) string {
		anchor := tocPlaceholderPattern.FindStringSubmatch(match)[1]
		display := "?"
		if page, ok := pageMap[anchor]; ok {
			display = strconv.Itoa(page)
		}
		return `<span class="toc-page">` + display + `</span>`
	})
}

// ResolveTOCEntries returns a copy of entries with pages filled in from
// pageMap; anchors missing from the map keep page 0 (unresolved).
func ResolveTOCEntries(entries []TOCEntry, pageMap map[string]int) []TOCEntry {
	resolved := make([]TOCEntry, len(entries))
	copy(resolved, entries)
	for i := range resolved {
		resolved[i].Page = pageMap[resolved[i].ID]
	}
	return resolved
}
