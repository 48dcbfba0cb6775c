// Package bookpdf paginates book manuscripts into print-ready PDFs with a
// verified table of contents.
//
// # Quick Start
//
// Resolve a style template, create a generator, and run an export:
//
//	cfg, err := bookpdf.Resolve("roman", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gen := bookpdf.NewGenerator()
//	defer gen.Close()
//
//	result, err := gen.Generate(ctx, chapters, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("book.pdf", result.PDF, 0644)
//	fmt.Println(result.Report.AllValid)
//
// The result contains the PDF bytes, the final HTML (for debugging), and a
// QualityReport describing pagination defects found in the rendered output.
//
// # Two-Pass Pipeline
//
// An export runs through strictly sequential stages:
//
//  1. Assembly: ordered chapters become one document, headings get stable
//     anchor ids, horizontal rules become semantic chapter separators, and a
//     table of contents with unresolved page placeholders is prepended.
//  2. First render pass: the document is rendered once to discover the real
//     page each anchor lands on.
//  3. TOC synchronization: placeholders are rewritten with real page numbers.
//  4. Second render pass: the synchronized document is rendered to PDF.
//  5. Quality validation: the final rendering is checked for blank parasite
//     pages, justification rivers, TOC mismatches, and orphan titles.
//
// Validation never blocks output: a usable PDF with a defect report is
// preferable to no PDF.
//
// # Styles
//
// Stylesheets are generated from a layered configuration: shared base
// defaults, a named template variant ("roman", "technical", "academic"),
// and optional per-request overrides, merged recursively with override-wins
// semantics. Generated CSS is cached by a structural hash of the resolved
// configuration.
//
// # Rendering
//
// Layout and page breaking are delegated to a Renderer. The built-in
// ChromeRenderer drives headless Chrome via go-rod; rod downloads a managed
// Chromium on first run (~/.cache/rod/browser/). Set ROD_BROWSER_BIN to use
// a pre-installed browser; with CI=true or ROD_BROWSER_BIN set the sandbox
// is disabled for containerized environments.
//
// For concurrent exports use RendererPool so each running export holds its
// own browser instance:
//
//	pool := bookpdf.NewRendererPool(4, func() bookpdf.Renderer {
//	    return bookpdf.NewChromeRenderer(time.Minute)
//	})
//	defer pool.Close()
package bookpdf
