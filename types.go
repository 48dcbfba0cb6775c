package bookpdf

import (
	"log/slog"
	"strings"
	"time"
)

// Chapter is one ordered unit of the manuscript. Content is a pre-rendered
// HTML fragment produced by the markdown step (see internal/mdconv).
type Chapter struct {
	ID       string
	Title    string
	Position int // 1-based, unique and contiguous within a document
	Content  string
}

// TOCEntry is one table-of-contents row, generated per heading at levels 1-3
// in document order. Page is 0 until resolved against a rendered document.
type TOCEntry struct {
	ID    string
	Title string
	Level int
	Page  int
}

// PageElement is one laid-out element reported by the Renderer.
type PageElement struct {
	Tag      string  // "h1".."h4", "p", "div", ...
	AnchorID string  // anchor id if the element carries one
	Class    string  // space-separated class list
	Y        float64 // vertical position on the page, same unit as Page.Height
	Text     string
}

// Page is one physical page of a rendered document, read-only to this core.
type Page struct {
	Number   int // 1-based
	FullText string
	Elements []PageElement
	Height   float64
}

// RenderedDocument is the Renderer's output: ordered pages plus PDF bytes.
type RenderedDocument struct {
	Pages []Page
	PDF   []byte
}

// trimmedText returns the element text with surrounding whitespace removed.
func (e PageElement) trimmedText() string {
	return strings.TrimSpace(e.Text)
}

// isHeading reports whether the element is a tracked heading (h1..h4).
func (e PageElement) isHeading() bool {
	switch e.Tag {
	case "h1", "h2", "h3", "h4":
		return true
	}
	return false
}

// GenerateResult packages one export's output.
type GenerateResult struct {
	PDF    []byte
	HTML   []byte // final synchronized HTML, for debugging
	Report *QualityReport
}

// Option configures a Generator.
type Option func(*Generator)

// generatorConfig holds internal configuration for Generator.
type generatorConfig struct {
	timeout  time.Duration
	htmlOnly bool
}

// defaultTimeout bounds a single render pass when the caller's context
// carries no deadline.
const defaultTimeout = 60 * time.Second

// WithTimeout sets the per-render-pass timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("bookpdf: WithTimeout duration must be positive")
	}
	return func(g *Generator) {
		g.cfg.timeout = d
	}
}

// WithRenderer injects a Renderer, replacing the default ChromeRenderer.
// The Generator takes ownership and closes it on Close.
func WithRenderer(r Renderer) Option {
	return func(g *Generator) {
		g.renderer = r
	}
}

// WithCache injects a stylesheet cache shared across generators.
func WithCache(c Cache) Option {
	return func(g *Generator) {
		g.cache = c
	}
}

// WithLogger sets the logger used for pass and validation logging.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithHTMLOnly skips PDF rendering and quality validation; Generate returns
// the synchronized HTML with page numbers from the first pass. For debugging.
func WithHTMLOnly() Option {
	return func(g *Generator) {
		g.cfg.htmlOnly = true
	}
}
