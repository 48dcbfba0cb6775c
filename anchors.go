package bookpdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Precompiled patterns for document preprocessing.
//
// Rewriting markup with regexes is fragile against pathological nesting, but
// heading and TOC elements in assembled chapter HTML are flat, and the
// rendered output must stay byte-comparable with what these exact rewrites
// produce.
var (
	// Headings h1-h4, capturing level, attributes, and inner HTML.
	anchorHeadingPattern = regexp.MustCompile(`(?is)<h([1-4])([^>]*)>(.*?)</h[1-4]>`)

	// Headings h1-h3 that already carry an id, for TOC entry extraction.
	tocHeadingPattern = regexp.MustCompile(`(?is)<h([1-3])[^>]*\bid="([^"]*)"[^>]*>(.*?)</h[1-3]>`)

	// Existing id/data-anchor attributes, stripped before reassignment.
	anchorAttrPattern = regexp.MustCompile(`\s+(?:id|data-anchor)="[^"]*"`)

	// Literal horizontal rule markers in any of their serializations.
	horizontalRulePattern = regexp.MustCompile(`(?i)<hr\b[^>]*>`)

	// First paragraph directly following a chapter heading.
	firstParagraphPattern = regexp.MustCompile(`(?is)(<h1[^>]*>.*?</h1>\s*)<p>`)

	// HTML tags, for reducing heading inner HTML to plain text.
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// PreprocessDocument prepares assembled document HTML for rendering:
// every h1-h4 gets a stable anchor id, literal horizontal rules become
// semantic chapter separators (untreated they render as stray bars), and
// the paragraph opening each chapter loses its text indent.
func PreprocessDocument(html string) string {
	html = AssignHeadingAnchors(html)
	html = replaceHorizontalRules(html)
	html = markFirstParagraphs(html)
	return html
}

// AssignHeadingAnchors tags every h1-h4 with an id and data-anchor derived
// from a slug of its text. When two headings share a slug, later occurrences
// get an occurrence suffix ("intro", "intro-2", "intro-3"), so anchor ids
// are unique within one document. Pre-existing ids are replaced.
func AssignHeadingAnchors(html string) string {
	seen := make(map[string]int)

	return anchorHeadingPattern.ReplaceAllStringFunc(html, func(match string) string {
		m := anchorHeadingPattern.FindStringSubmatch(match)
		level, attrs, inner := m[1], m[2], m[3]

		slug := Slugify(stripHTMLTags(inner))
		if slug == "" {
			slug = "section"
		}
		seen[slug]++
		anchor := slug
		if n := seen[slug]; n > 1 {
			anchor = slug + "-" + strconv.Itoa(n)
		}

		attrs = anchorAttrPattern.ReplaceAllString(attrs, "")
		return fmt.Sprintf(`<h%s%s id="%s" data-anchor="%s">%s</h%s>`,
			level, attrs, anchor, anchor, inner, level)
	})
}

// ExtractTOCEntries returns one entry per anchored heading at levels 1-3,
// in document order, with pages unresolved.
func ExtractTOCEntries(html string) []TOCEntry {
	matches := tocHeadingPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return nil
	}

	entries := make([]TOCEntry, 0, len(matches))
	for _, m := range matches {
		level, _ := strconv.Atoi(m[1])
		entries = append(entries, TOCEntry{
			ID:    m[2],
			Title: stripHTMLTags(m[3]),
			Level: level,
		})
	}
	return entries
}

// Slugify reduces text to a lowercase hyphen-separated identifier. Unicode
// letters and digits are kept (accented French titles stay readable), runs
// of anything else collapse to a single hyphen.
func Slugify(text string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// replaceHorizontalRules rewrites <hr> markers to the semantic separator
// styled by the quality CSS module.
func replaceHorizontalRules(html string) string {
	return horizontalRulePattern.ReplaceAllString(html, `<div class="chapter-separator"></div>`)
}

// markFirstParagraphs removes the text indent from the paragraph directly
// following each chapter heading.
func markFirstParagraphs(html string) string {
	return firstParagraphPattern.ReplaceAllString(html, `$1<p class="first-paragraph">`)
}

// stripHTMLTags removes HTML tags from a string and trims whitespace.
func stripHTMLTags(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}
