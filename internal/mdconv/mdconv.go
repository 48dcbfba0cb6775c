// Package mdconv converts chapter Markdown to HTML fragments.
package mdconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrConversion indicates Markdown conversion failed.
var ErrConversion = errors.New("markdown conversion failed")

// Converter converts Markdown to HTML fragments using goldmark (pure Go).
// Output is a body fragment, not a full document: the pagination pipeline
// assembles chapters into its own document shell.
type Converter struct {
	md goldmark.Markdown
}

// New creates a Converter with GFM extensions and syntax highlighting.
// Auto heading IDs are intentionally off: the pagination pipeline assigns
// its own anchor ids so TOC entries and headings always agree.
func New() *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes for smaller HTML and external stylesheet control
				),
			),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(), // Self-closing tags
		),
	)
	return &Converter{md: md}
}

// ToHTML converts Markdown content to an HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *Converter) ToHTML(ctx context.Context, content string) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}
