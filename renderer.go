package bookpdf

import "context"

// Renderer is the external layout engine contract: it turns document HTML
// plus a stylesheet into paginated output and PDF bytes. This core never
// inspects renderer internals beyond the Page contract.
//
// Renderers keep mutable per-document state; a handle must never be shared
// across concurrently executing exports. Use RendererPool to hand each
// export its own instance.
type Renderer interface {
	Render(ctx context.Context, htmlContent, cssContent string) (*RenderedDocument, error)
	Close() error
}

// Compile-time interface checks.
var _ Renderer = (*ChromeRenderer)(nil)
