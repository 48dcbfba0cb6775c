package bookpdf

import (
	"regexp"
	"strings"
)

// Precompiled minification patterns.
var (
	// CSS comments, including multi-line.
	cssCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// Runs of whitespace (spaces, tabs, newlines).
	cssWhitespacePattern = regexp.MustCompile(`\s+`)

	// Whitespace around structural punctuation.
	cssPunctSpacePattern = regexp.MustCompile(`\s*([{}:;,>+~])\s*`)

	// Redundant semicolon before a closing brace.
	cssTrailingSemicolonPattern = regexp.MustCompile(`;}`)
)

// MinifyCSS strips comments and collapses redundant whitespace and
// punctuation-adjacent spacing. It never removes selectors or declarations,
// and it is idempotent: MinifyCSS(MinifyCSS(css)) == MinifyCSS(css).
func MinifyCSS(css string) string {
	css = cssCommentPattern.ReplaceAllString(css, "")
	css = cssWhitespacePattern.ReplaceAllString(css, " ")
	css = cssPunctSpacePattern.ReplaceAllString(css, "$1")
	css = cssTrailingSemicolonPattern.ReplaceAllString(css, "}")
	return strings.TrimSpace(css)
}
