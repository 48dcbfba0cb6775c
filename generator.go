package bookpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Generator orchestrates one export: resolve styles, assemble chapters,
// run the two-pass pagination pipeline, and validate the result. A Generator
// owns its renderer and must not run concurrent exports; use RendererPool
// plus one Generator per worker for parallelism.
type Generator struct {
	cfg       generatorConfig
	renderer  Renderer
	cache     Cache
	logger    *slog.Logger
	cssgen    *CSSGenerator
	validator *QualityValidator
}

// NewGenerator creates a generator with the given options. Without
// WithRenderer a ChromeRenderer is created lazily with the configured
// timeout.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		cfg:       generatorConfig{timeout: defaultTimeout},
		cache:     NewMemoryCache(),
		logger:    slog.Default(),
		validator: NewQualityValidator(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.renderer == nil {
		g.renderer = NewChromeRenderer(g.cfg.timeout)
	}
	g.cssgen = NewCSSGenerator(g.logger)
	return g
}

// Close releases the renderer's resources.
func (g *Generator) Close() error {
	return g.renderer.Close()
}

// Generate runs the full two-pass pipeline for the given chapters and style
// configuration and returns the PDF, the synchronized HTML, and the quality
// report. The report never blocks the export: a failed quality check is
// recorded, not raised. Only render failures and invalid input abort.
//
// The first pass renders with unresolved TOC placeholders to learn which
// page each heading lands on; the second pass renders with real page numbers
// injected. Fixed-width page slots in the TOC keep the injection from
// shifting layout between passes.
func (g *Generator) Generate(ctx context.Context, chapters []Chapter, cfg *ResolvedStyleConfig) (result *GenerateResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during generation: %v", ErrRender, r)
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	logger := g.logger.With("export_id", exportID)
	start := time.Now()

	css, err := g.stylesheet(cfg)
	if err != nil {
		return nil, err
	}

	body, err := BuildChaptersHTML(chapters)
	if err != nil {
		return nil, err
	}

	// Anchor assignment must happen before TOC extraction so entry ids and
	// heading ids agree. The full document is preprocessed again after the
	// TOC block is prepended; preprocessing is idempotent, so the body
	// anchors stay put and only the TOC heading picks up one. Both passes
	// then render the same DOM apart from the TOC page slots.
	body = PreprocessDocument(body)

	var entries []TOCEntry
	docHTML := body
	if cfg.Features["table_of_contents"] {
		entries = ExtractTOCEntries(body)
		docHTML = PreprocessDocument(BuildTOCHTML(entries, "") + body)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pass 1: learn where each heading lands.
	extractor := NewPageAnchorExtractor(g.renderer, logger)
	pageMap, firstPass, err := extractor.ExtractPageMap(ctx, docHTML, css)
	if err != nil {
		return nil, err
	}
	logger.Debug("first pass complete",
		"pages", len(firstPass.Pages), "anchors", len(pageMap))

	syncedHTML := InjectPageNumbers(docHTML, pageMap)
	resolved := ResolveTOCEntries(entries, pageMap)

	if g.cfg.htmlOnly {
		logger.Info("export complete (HTML only)",
			"chapters", len(chapters), "duration", time.Since(start))
		return &GenerateResult{
			HTML: []byte(syncedHTML),
			Report: &QualityReport{
				ExportID:  exportID,
				PageCount: len(firstPass.Pages),
				PageMap:   pageMap,
			},
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pass 2: render with real page numbers in the TOC. Without a TOC the
	// synchronized document is byte-identical to the first pass, so that
	// render is reused instead of repeated.
	finalDoc := firstPass
	if cfg.Features["table_of_contents"] {
		finalDoc, err = g.renderer.Render(ctx, syncedHTML, css)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrRender, err)
		}
	}

	finalMap := headingPageMap(finalDoc)
	report := g.validator.Run(finalDoc, finalMap, resolved)
	report.ExportID = exportID
	report.PDFIntegrity = checkPDFIntegrity(finalDoc)

	logger.Info("export complete",
		"chapters", len(chapters),
		"pages", report.PageCount,
		"valid", report.AllValid,
		"duration", time.Since(start))
	if !report.AllValid {
		logger.Warn("quality checks failed",
			"blank_parasites", len(report.BlankPages.Parasites),
			"rivers", report.TextRivers.RiverCount,
			"toc_mismatches", len(report.TOCSync.Mismatches),
			"orphan_titles", len(report.OrphanTitles.Orphans))
	}

	return &GenerateResult{
		PDF:    finalDoc.PDF,
		HTML:   []byte(syncedHTML),
		Report: report,
	}, nil
}

// stylesheet returns the CSS for cfg, generating and caching on miss.
// The cache key is the structural hash of the resolved configuration, so
// equivalent configurations share one entry regardless of template name.
func (g *Generator) stylesheet(cfg *ResolvedStyleConfig) (string, error) {
	key := cfg.Hash()
	if css, ok := g.cache.Get(key); ok {
		g.logger.Debug("stylesheet cache hit", "key", key[:12])
		return css, nil
	}

	css, err := g.cssgen.Generate(cfg, nil, cfg.Minify)
	if err != nil {
		return "", err
	}
	g.cache.Put(key, css)
	return css, nil
}

// headingPageMap derives the anchor-to-page map from an already rendered
// document: first page wins for each anchored heading.
func headingPageMap(doc *RenderedDocument) map[string]int {
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
	return pageMap
}

// checkPDFIntegrity parses the emitted PDF bytes and compares the embedded
// page count with the rendered page count. A divergence usually means the
// geometry bucketing drifted from Chrome's real pagination.
func checkPDFIntegrity(doc *RenderedDocument) PDFIntegrityResult {
	if len(doc.PDF) == 0 {
		return PDFIntegrityResult{Detail: "no PDF bytes"}
	}

	count, err := api.PageCount(bytes.NewReader(doc.PDF), nil)
	if err != nil {
		return PDFIntegrityResult{Detail: fmt.Sprintf("unreadable PDF: %v", err)}
	}

	result := PDFIntegrityResult{PageCount: count}
	if count == len(doc.Pages) {
		result.Valid = true
	} else {
		result.Detail = fmt.Sprintf("PDF has %d pages, geometry reported %d", count, len(doc.Pages))
	}
	return result
}
