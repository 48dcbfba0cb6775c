package bookpdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PageAnchorExtractor discovers which physical page each heading anchor
// lands on by rendering the document once and walking the page geometry.
type PageAnchorExtractor struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewPageAnchorExtractor creates an extractor using the given renderer.
func NewPageAnchorExtractor(r Renderer, logger *slog.Logger) *PageAnchorExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageAnchorExtractor{renderer: r, logger: logger}
}

// ExtractPageMap preprocesses the document (anchor assignment, separator
// rewriting), invokes the renderer exactly once, and derives the
// anchor-to-page map from the result. For each heading element carrying an
// anchor id, the first page it appears on wins: an element split across a
// page boundary is recorded at its opening page only.
//
// The rendered document is returned alongside the map so single-pass
// deployments can validate against it directly.
func (e *PageAnchorExtractor) ExtractPageMap(ctx context.Context, htmlContent, cssContent string) (map[string]int, *RenderedDocument, error) {
	processed := PreprocessDocument(htmlContent)

	doc, err := e.renderer.Render(ctx, processed, cssContent)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	pageMap := make(map[string]int)
	for _, page := range doc.Pages {
		for _, el := range page.Elements {
			if el.AnchorID == "" || !el.isHeading() {
				continue
			}
			if _, seen := pageMap[el.AnchorID]; seen {
				continue
			}
			pageMap[el.AnchorID] = page.Number
		}
	}

	e.logger.Debug("page map extracted",
		"pages", len(doc.Pages), "anchors", len(pageMap))
	return pageMap, doc, nil
}
