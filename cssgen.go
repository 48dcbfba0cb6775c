package bookpdf

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// CSSGenerator renders a ResolvedStyleConfig into print stylesheet text,
// module by module. A failing module is logged and skipped so a partially
// styled document still renders; only a missing required section aborts.
type CSSGenerator struct {
	logger *slog.Logger
}

// NewCSSGenerator creates a generator. A nil logger falls back to slog.Default.
func NewCSSGenerator(logger *slog.Logger) *CSSGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSSGenerator{logger: logger}
}

// cssModule pairs a module name with its renderer. Order is fixed: later
// modules may override earlier declarations.
type cssModule struct {
	name   string
	render func(*ResolvedStyleConfig) string
}

// Generate produces the full stylesheet for cfg. If variables is non-empty
// a :root block is emitted first so later modules may reference them. If
// minify is set the output goes through an idempotent minification pass.
// Fails with ErrInvalidConfig before producing any CSS when required
// sections are missing or malformed.
func (g *CSSGenerator) Generate(cfg *ResolvedStyleConfig, variables map[string]string, minify bool) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	modules := []cssModule{
		{"base", renderBaseCSS},
		{"typography", renderTypographyCSS},
		{"layout", renderLayoutCSS},
		{"quality", renderQualityCSS},
		{"headings", renderHeadingsCSS},
		{"colors", renderColorsCSS},
		{"features", renderFeaturesCSS},
	}

	var parts []string
	if len(variables) > 0 {
		parts = append(parts, renderCSSVariables(variables))
	}

	for _, m := range modules {
		css, err := renderModule(m, cfg)
		if err != nil {
			g.logger.Warn("CSS module render failed, skipping",
				"module", m.name, "error", err)
			continue
		}
		if css != "" {
			parts = append(parts, "/* "+titleCase(m.name)+" */", css)
		}
	}

	if cfg.CustomCSS != "" {
		parts = append(parts, "/* Custom */", cfg.CustomCSS)
	}

	full := strings.Join(parts, "\n\n")
	if minify {
		full = MinifyCSS(full)
	}
	return full, nil
}

// renderModule runs one module renderer, converting panics (the analog of a
// missing sub-key blowing up mid-template) into errors.
func renderModule(m cssModule, cfg *ResolvedStyleConfig) (css string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %s: %v", m.name, r)
		}
	}()
	return m.render(cfg), nil
}

// renderCSSVariables emits a :root block of custom properties.
// Underscores in names become hyphens: "code_bg" -> "--code-bg".
func renderCSSVariables(variables map[string]string) string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	// Deterministic output regardless of map order.
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		cssName := strings.ReplaceAll(name, "_", "-")
		fmt.Fprintf(&b, "    --%s: %s;\n", cssName, variables[name])
	}
	b.WriteString("}\n")
	return b.String()
}

// renderBaseCSS emits font imports, the @page block, and the reset.
func renderBaseCSS(cfg *ResolvedStyleConfig) string {
	m := cfg.Layout.Margins
	marginStr := fmt.Sprintf("%s %s %s %s",
		orDefault(m.Top, "20mm"),
		orDefault(m.Right, "15mm"),
		orDefault(m.Bottom, "20mm"),
		orDefault(m.Left, "15mm"))

	pageNumberBlock := ""
	if cfg.Features["page_numbers"] {
		pageNumberBlock = `
    @bottom-center {
        content: counter(page);
        font-size: 10pt;
        color: #666;
    }
`
	}

	return fmt.Sprintf(`@import url('https://fonts.googleapis.com/css2?family=Crimson+Text:ital,wght@0,400;0,600;1,400&display=swap');
@import url('https://fonts.googleapis.com/css2?family=Source+Sans+Pro:wght@400;600;700&display=swap');

@page {
    size: %s;
    margin: %s;
%s
    orphans: %d;
    widows: %d;
}

* {
    box-sizing: border-box;
}

html, body {
    margin: 0;
    padding: 0;
}
`, cfg.Layout.PageSize, marginStr, pageNumberBlock, cfg.QualityRules.Orphans, cfg.QualityRules.Widows)
}

// renderTypographyCSS emits body and paragraph rules including hyphenation.
func renderTypographyCSS(cfg *ResolvedStyleConfig) string {
	typo := cfg.Typography
	hyph := cfg.QualityRules.Hyphenation

	hyphenationRules := ""
	if hyph.Enabled {
		hyphenationRules = fmt.Sprintf(`    hyphens: auto;
    hyphenate-language: "%s";
    hyphenate-limit-chars: %d %d %d;
`, orDefault(hyph.Language, "fr"), orDefaultInt(hyph.MinChars, 6), orDefaultInt(hyph.MinLeft, 3), orDefaultInt(hyph.MinRight, 3))
	}

	return fmt.Sprintf(`body {
    font-family: %s;
    font-size: %s;
    line-height: %s;
    text-align: %s;
    color: %s;

%s    hyphenate-limit-lines: 2;
    hyphenate-limit-zone: 3em;

    word-spacing: 0.16em;
    letter-spacing: 0.01em;
}

p {
    text-indent: %s;
    margin: 0 0 %s 0;
    text-align: %s;
    text-justify: inter-word;

    orphans: %d;
    widows: %d;
}

.first-paragraph {
    text-indent: 0;
}
`,
		orDefault(typo.FontFamily, "serif"),
		orDefault(typo.FontSize, "12pt"),
		orDefault(typo.LineHeight, "1.6"),
		orDefault(typo.TextAlign, "left"),
		orDefault(cfg.Colors["text"], "#2c3e50"),
		hyphenationRules,
		orDefault(typo.TextIndent, "0"),
		orDefault(typo.ParagraphSpacing, "1em"),
		orDefault(typo.TextAlign, "left"),
		cfg.QualityRules.Orphans,
		cfg.QualityRules.Widows)
}

// renderLayoutCSS emits content-element rules and editorial break classes.
func renderLayoutCSS(cfg *ResolvedStyleConfig) string {
	css := `img, table, pre, blockquote {
    page-break-inside: avoid;
    max-width: 100%;
}

blockquote {
    margin: 1.5em 2em;
    font-style: italic;
    color: #555;
    border-left: 3px solid #ddd;
    padding-left: 1em;
}

.keep-together {
    page-break-inside: avoid;
}

.new-page {
    page-break-before: always;
}

.chapter-end {
    page-break-after: right;
}

.part-separator {
    page-break-before: right;
    page-break-after: always;
}

.editorial-break {
    page-break-after: right;
}
`

	if cfg.Layout.CodeBlocks {
		css += `
pre, code {
    font-family: 'Fira Code', 'Courier New', monospace;
    background-color: var(--code-bg, #f8f9fa);
    border: 1px solid var(--code-border, #dee2e6);
}

pre {
    padding: 1em;
    margin: 1em 0;
    page-break-inside: avoid;
    overflow-x: auto;
}

code {
    padding: 0.2em 0.4em;
    font-size: 0.9em;
}
`
	}

	return css
}

// renderQualityCSS emits the pagination-defect prevention rules: orphan
// title protection, horizontal rule elimination, and TOC row layout.
func renderQualityCSS(cfg *ResolvedStyleConfig) string {
	avoid := cfg.QualityRules.AvoidPageBreaks
	if len(avoid) == 0 {
		avoid = []string{"h1", "h2", "h3"}
	}

	return fmt.Sprintf(`%s {
    page-break-after: avoid;
    page-break-inside: avoid;
    orphans: %d;
    widows: %d;
    min-height: 2.5em;
}

hr {
    display: none;
}

.chapter-separator {
    border: none;
    margin: 3em 0;
    text-align: center;
}

.chapter-separator::after {
    content: "* * *";
    font-size: 18pt;
    color: #666;
    display: block;
}

.table-of-contents {
    page-break-before: always;
    page-break-after: always;
}

.toc-entry {
    display: flex;
    justify-content: space-between;
    align-items: baseline;
    margin-bottom: 0.6em;
    page-break-inside: avoid;
}

.toc-title {
    flex: 1;
    padding-right: 1em;
    overflow: hidden;
}

.toc-dots {
    flex: 0 1 auto;
    border-bottom: 1px dotted #999;
    margin: 0 0.3em;
    min-width: 2em;
    height: 1px;
    margin-top: 0.7em;
}

.toc-page {
    flex: 0 0 auto;
    font-weight: bold;
    min-width: 2em;
    text-align: right;
}

@media screen {
    body {
        max-width: 800px;
        margin: 0 auto;
        padding: 2em;
        background: white;
    }
}

@media print {
    body {
        background: white;
    }

    hr {
        display: none;
    }
}
`, strings.Join(avoid, ", "), cfg.QualityRules.Orphans, cfg.QualityRules.Widows)
}

// headingLevels is the fixed emit order for per-level overrides.
var headingLevels = []string{"h1", "h2", "h3", "h4"}

// renderHeadingsCSS emits hierarchical counters plus per-level overrides.
func renderHeadingsCSS(cfg *ResolvedStyleConfig) string {
	var b strings.Builder
	b.WriteString(`body {
    counter-reset: chapter section subsection;
}

h1 {
    counter-increment: chapter;
    counter-reset: section subsection;
}

h2 {
    counter-increment: section;
    counter-reset: subsection;
}

h3 {
    counter-increment: subsection;
}
`)

	for _, level := range headingLevels {
		styles, ok := cfg.Headings[level]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `
%s {
    font-size: %s;
    font-weight: %s;
    color: %s;
    text-align: %s;
    margin: %s 0 %s 0;
`,
			level,
			orDefault(styles.FontSize, "1.2em"),
			orDefault(styles.FontWeight, "bold"),
			orDefault(styles.Color, orDefault(cfg.Colors["headings"], "#2c3e50")),
			orDefault(styles.TextAlign, "left"),
			orDefault(styles.MarginTop, "1em"),
			orDefault(styles.MarginBottom, "0.5em"))

		if styles.TextTransform != "" {
			fmt.Fprintf(&b, "    text-transform: %s;\n", styles.TextTransform)
		}
		if styles.LetterSpacing != "" {
			fmt.Fprintf(&b, "    letter-spacing: %s;\n", styles.LetterSpacing)
		}
		if styles.BorderBottom != "" {
			fmt.Fprintf(&b, "    border-bottom: %s;\n", styles.BorderBottom)
		}
		b.WriteString("}\n")
	}

	return b.String()
}

// renderColorsCSS emits link and accent color rules.
func renderColorsCSS(cfg *ResolvedStyleConfig) string {
	if len(cfg.Colors) == 0 {
		return ""
	}

	return fmt.Sprintf(`a {
    color: %s;
    text-decoration: none;
}

a:hover {
    text-decoration: underline;
}

.muted {
    color: %s;
}

.accent {
    color: %s;
}
`,
		orDefault(cfg.Colors["accent"], "#3498db"),
		orDefault(cfg.Colors["muted"], "#7f8c8d"),
		orDefault(cfg.Colors["accent"], "#3498db"))
}

// renderFeaturesCSS emits optional modules gated by feature toggles.
func renderFeaturesCSS(cfg *ResolvedStyleConfig) string {
	var b strings.Builder

	if cfg.Features["footnotes"] || cfg.Layout.Footnotes {
		b.WriteString(`.footnote {
    font-size: 0.85em;
    margin-top: 2em;
    border-top: 1px solid #ccc;
    padding-top: 0.5em;
}

.footnote-ref {
    vertical-align: super;
    font-size: 0.7em;
}
`)
	}

	if cfg.Features["syntax_highlighting"] {
		b.WriteString(`
.highlight {
    background-color: #f8f9fa;
    padding: 1em;
    border-radius: 4px;
    page-break-inside: avoid;
}

.keyword { color: #d73a49; font-weight: bold; }
.string { color: #032f62; }
.comment { color: #6a737d; font-style: italic; }
.number { color: #005cc5; }
`)
	}

	if cfg.Features["bibliography"] {
		b.WriteString(`
.bibliography {
    margin-top: 2em;
}

.bibliography-entry {
    padding-left: 2em;
    text-indent: -2em;
    margin-bottom: 0.5em;
}
`)
	}

	return b.String()
}

// orDefault returns v, or def when v is empty.
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// orDefaultInt returns v, or def when v is zero.
func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// titleCase capitalizes the first letter of an ASCII module name.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
