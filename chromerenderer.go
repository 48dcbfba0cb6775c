package bookpdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-bookpdf/internal/fileutil"
)

// Default page geometry in millimeters (standard trade book format),
// used when the stylesheet carries no @page block.
const (
	defaultPageWidthMM  = 156
	defaultPageHeightMM = 234
	defaultMarginMM     = 20

	mmPerInch = 25.4
	pxPerInch = 96
)

// documentShell wraps body HTML and CSS in a complete HTML5 document.
const documentShell = `<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<title>Book</title>
<style>%s</style>
</head>
<body>
%s
</body>
</html>`

// Patterns for reading page geometry back out of the generated stylesheet.
var (
	cssPageSizePattern   = regexp.MustCompile(`size:\s*([\d.]+)mm\s+([\d.]+)mm`)
	cssPageMarginPattern = regexp.MustCompile(`@page\s*{[^}]*?margin:\s*([\d.]+)mm`)
)

// ChromeRenderer renders documents with headless Chrome via go-rod and
// reports page geometry by evaluating layout positions in the page.
// Rod automatically downloads Chromium on first run if not found.
//
// A ChromeRenderer must not be shared across concurrent exports.
type ChromeRenderer struct {
	browser *rod.Browser
	timeout time.Duration
}

// NewChromeRenderer creates a renderer with the given per-render timeout.
func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChromeRenderer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (r *ChromeRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *ChromeRenderer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Render loads the composed document in headless Chrome, extracts page
// geometry, and prints to PDF. Returns explicit errors instead of panicking
// when browser operations fail.
func (r *ChromeRenderer) Render(ctx context.Context, htmlContent, cssContent string) (*RenderedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	fullHTML := fmt.Sprintf(documentShell, sanitizeCSS(cssContent), htmlContent)
	tmpPath, cleanup, err := fileutil.WriteTempFile(fullHTML, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Print media so @page-adjacent rules, not the screen preview rules,
	// drive measured positions.
	_ = proto.EmulationSetEmulatedMedia{Media: "print"}.Call(page)

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	geom := pageGeometryFromCSS(cssContent)
	pages, err := r.extractPages(page, geom)
	if err != nil {
		return nil, err
	}

	pdf, err := r.printPDF(page, geom, cssContent)
	if err != nil {
		return nil, err
	}

	return &RenderedDocument{Pages: pages, PDF: pdf}, nil
}

// cssGeometry is the page box read back from the stylesheet, in millimeters.
type cssGeometry struct {
	widthMM  float64
	heightMM float64
	marginMM float64
}

// contentHeightPx returns the printable height of one page in CSS pixels.
func (g cssGeometry) contentHeightPx() float64 {
	return (g.heightMM - 2*g.marginMM) * pxPerInch / mmPerInch
}

// pageGeometryFromCSS parses the @page size and margin out of the generated
// stylesheet, falling back to the standard book format.
func pageGeometryFromCSS(css string) cssGeometry {
	geom := cssGeometry{
		widthMM:  defaultPageWidthMM,
		heightMM: defaultPageHeightMM,
		marginMM: defaultMarginMM,
	}
	if m := cssPageSizePattern.FindStringSubmatch(css); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			geom.widthMM = w
		}
		if h, err := strconv.ParseFloat(m[2], 64); err == nil {
			geom.heightMM = h
		}
	}
	if m := cssPageMarginPattern.FindStringSubmatch(css); m != nil {
		if top, err := strconv.ParseFloat(m[1], 64); err == nil {
			geom.marginMM = top
		}
	}
	return geom
}

// geometryJS walks the laid-out DOM and buckets block elements into pages
// by their vertical offset. The page height is substituted before eval.
const geometryJS = `() => {
	const pageHeight = %f;
	const byPage = new Map();
	const els = document.querySelectorAll('h1, h2, h3, h4, p, div, blockquote, pre');
	for (const el of els) {
		const rect = el.getBoundingClientRect();
		const top = rect.top + window.scrollY;
		const num = Math.max(1, Math.floor(top / pageHeight) + 1);
		const tag = el.tagName.toLowerCase();
		const text = tag === 'div' ? '' : (el.textContent || '');
		if (!byPage.has(num)) {
			byPage.set(num, []);
		}
		byPage.get(num).push({
			tag: tag,
			anchor: el.getAttribute('data-anchor') || el.id || '',
			class: el.className || '',
			y: top - (num - 1) * pageHeight,
			text: text,
		});
	}
	const total = Math.max(1, Math.ceil(document.body.scrollHeight / pageHeight));
	const pages = [];
	for (let n = 1; n <= total; n++) {
		pages.push({number: n, elements: byPage.get(n) || []});
	}
	return JSON.stringify({height: pageHeight, pages: pages});
}`

// geometryResult mirrors the JSON produced by geometryJS.
type geometryResult struct {
	Height float64 `json:"height"`
	Pages  []struct {
		Number   int `json:"number"`
		Elements []struct {
			Tag    string  `json:"tag"`
			Anchor string  `json:"anchor"`
			Class  string  `json:"class"`
			Y      float64 `json:"y"`
			Text   string  `json:"text"`
		} `json:"elements"`
	} `json:"pages"`
}

// extractPages evaluates the geometry script and converts its output to the
// Page contract.
func (r *ChromeRenderer) extractPages(page *rod.Page, geom cssGeometry) ([]Page, error) {
	js := fmt.Sprintf(geometryJS, geom.contentHeightPx())
	obj, err := page.Eval(js)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting page geometry: %v", ErrRender, err)
	}

	var result geometryResult
	if err := json.Unmarshal([]byte(obj.Value.Str()), &result); err != nil {
		return nil, fmt.Errorf("%w: decoding page geometry: %v", ErrRender, err)
	}

	pages := make([]Page, 0, len(result.Pages))
	for _, p := range result.Pages {
		elements := make([]PageElement, 0, len(p.Elements))
		var texts []string
		for _, el := range p.Elements {
			elements = append(elements, PageElement{
				Tag:      el.Tag,
				AnchorID: el.Anchor,
				Class:    el.Class,
				Y:        el.Y,
				Text:     el.Text,
			})
			if t := strings.TrimSpace(el.Text); t != "" && el.Tag != "div" {
				texts = append(texts, t)
			}
		}
		pages = append(pages, Page{
			Number:   p.Number,
			FullText: strings.Join(texts, " "),
			Elements: elements,
			Height:   result.Height,
		})
	}
	return pages, nil
}

// printPDF prints the loaded page to PDF using the stylesheet's page box.
// Chrome does not honor @page margin-box counters, so when the stylesheet
// asks for page numbers they are emitted through the native footer instead.
func (r *ChromeRenderer) printPDF(page *rod.Page, geom cssGeometry, css string) ([]byte, error) {
	marginInches := geom.marginMM / mmPerInch
	opts := &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(geom.widthMM / mmPerInch),
		PaperHeight:     floatPtr(geom.heightMM / mmPerInch),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	}

	if strings.Contains(css, "counter(page)") {
		opts.DisplayHeaderFooter = true
		opts.HeaderTemplate = "<span></span>"
		opts.FooterTemplate = `<div style="font-size: 10px; color: #666; width: 100%; text-align: center;"><span class="pageNumber"></span></div>`
	}

	reader, err := page.PDF(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
