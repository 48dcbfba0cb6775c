package bookpdf

import "strings"

// Fixed detection thresholds. These are independent of the orphans/widows
// values in quality_rules, which only shape the generated CSS.
const (
	// riverMinChars is the paragraph length below which the river heuristic
	// does not apply.
	riverMinChars = 100

	// riverMinWords is the word count below which the heuristic does not apply.
	riverMinWords = 8

	// riverMeanWordLength flags paragraphs whose mean word length falls
	// below it: short words in long justified paragraphs spread into rivers.
	riverMeanWordLength = 4.0

	// orphanZoneRatio is the fraction of page height below which a heading
	// with no following content counts as orphaned.
	orphanZoneRatio = 0.8
)

// QualityReport is the per-export record of all pagination checks. It is
// created fresh per export, returned alongside the PDF, and never persisted.
type QualityReport struct {
	ExportID     string
	PageCount    int
	PageMap      map[string]int
	BlankPages   BlankPageResult
	TextRivers   TextRiverResult
	TOCSync      TOCSyncResult
	OrphanTitles OrphanTitleResult
	PDFIntegrity PDFIntegrityResult
	AllValid     bool
}

// BlankPageResult reports empty pages. Editorial pages (intentional blanks
// after an editorial break) are recorded but never counted as defects.
type BlankPageResult struct {
	Valid          bool
	Parasites      []int
	EditorialPages []int
}

// TextRiverResult reports the heuristic river count. This approximates the
// visual defect, it does not prove its absence.
type TextRiverResult struct {
	Valid      bool
	RiverCount int
}

// TOCSyncResult reports divergences between the final page map and the
// resolved TOC entries.
type TOCSyncResult struct {
	Valid      bool
	Mismatches []TOCMismatch
}

// TOCMismatch records one diverging entry. A zero page means unresolved.
type TOCMismatch struct {
	Entry    string
	Expected int
	Actual   int
}

// OrphanTitleResult reports headings stranded at page bottoms.
type OrphanTitleResult struct {
	Valid   bool
	Orphans []OrphanTitle
}

// OrphanTitle is one stranded heading.
type OrphanTitle struct {
	Page  int
	Title string
}

// PDFIntegrityResult reports whether the emitted PDF bytes parse and carry
// the same page count as the rendered document. Supplementary: not part of
// the four-check conjunction.
type PDFIntegrityResult struct {
	Valid     bool
	PageCount int
	Detail    string
}

// QualityValidator inspects a rendered document for pagination defects.
// All checks are read-only and independent; none ever blocks an export.
type QualityValidator struct{}

// NewQualityValidator creates a validator.
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{}
}

// ValidateNoBlankParasites flags pages whose text is empty or a bare page
// number digit string, unless the immediately preceding page carries an
// editorial break marker.
func (v *QualityValidator) ValidateNoBlankParasites(doc *RenderedDocument) BlankPageResult {
	var result BlankPageResult
	for i, page := range doc.Pages {
		content := strings.TrimSpace(page.FullText)
		if content != "" && !isDigits(content) {
			continue
		}
		if i > 0 && hasEditorialBreak(doc.Pages[i-1]) {
			result.EditorialPages = append(result.EditorialPages, page.Number)
			continue
		}
		result.Parasites = append(result.Parasites, page.Number)
	}
	result.Valid = len(result.Parasites) == 0
	return result
}

// DetectTextRivers counts paragraphs at risk of justification rivers: long
// paragraphs of many short words. Heuristic only.
func (v *QualityValidator) DetectTextRivers(doc *RenderedDocument) TextRiverResult {
	count := 0
	for _, page := range doc.Pages {
		for _, el := range page.Elements {
			if el.Tag != "p" {
				continue
			}
			text := el.trimmedText()
			if len(text) <= riverMinChars {
				continue
			}
			words := strings.Fields(text)
			if len(words) <= riverMinWords {
				continue
			}
			total := 0
			for _, w := range words {
				total += len(w)
			}
			if float64(total)/float64(len(words)) < riverMeanWordLength {
				count++
			}
		}
	}
	return TextRiverResult{Valid: count == 0, RiverCount: count}
}

// ValidateTOCSync compares the page map extracted from the final render
// against each TOC entry's resolved page.
func (v *QualityValidator) ValidateTOCSync(pageMap map[string]int, entries []TOCEntry) TOCSyncResult {
	var result TOCSyncResult
	for _, e := range entries {
		expected := pageMap[e.ID]
		if expected != e.Page {
			result.Mismatches = append(result.Mismatches, TOCMismatch{
				Entry:    e.Title,
				Expected: expected,
				Actual:   e.Page,
			})
		}
	}
	result.Valid = len(result.Mismatches) == 0
	return result
}

// DetectOrphanTitles flags headings whose vertical position falls in the
// bottom 20% of the page with no non-empty sibling content following them
// on that same page.
func (v *QualityValidator) DetectOrphanTitles(doc *RenderedDocument) OrphanTitleResult {
	var result OrphanTitleResult
	for _, page := range doc.Pages {
		for i, el := range page.Elements {
			if !el.isHeading() {
				continue
			}
			if page.Height <= 0 || el.Y <= page.Height*orphanZoneRatio {
				continue
			}
			if hasFollowingContent(page.Elements[i+1:]) {
				continue
			}
			result.Orphans = append(result.Orphans, OrphanTitle{
				Page:  page.Number,
				Title: el.trimmedText(),
			})
		}
	}
	result.Valid = len(result.Orphans) == 0
	return result
}

// Run executes all four checks against the final rendered document.
// Overall validity is their conjunction; PDF integrity is filled in
// separately by the orchestrator.
func (v *QualityValidator) Run(doc *RenderedDocument, pageMap map[string]int, entries []TOCEntry) *QualityReport {
	report := &QualityReport{
		PageCount:    len(doc.Pages),
		PageMap:      pageMap,
		BlankPages:   v.ValidateNoBlankParasites(doc),
		TextRivers:   v.DetectTextRivers(doc),
		TOCSync:      v.ValidateTOCSync(pageMap, entries),
		OrphanTitles: v.DetectOrphanTitles(doc),
	}
	report.AllValid = report.BlankPages.Valid &&
		report.TextRivers.Valid &&
		report.TOCSync.Valid &&
		report.OrphanTitles.Valid
	return report
}

// hasEditorialBreak reports whether any element on the page carries the
// editorial break class marking the following blank as intentional.
func hasEditorialBreak(page Page) bool {
	for _, el := range page.Elements {
		if strings.Contains(el.Class, "editorial-break") {
			return true
		}
	}
	return false
}

// hasFollowingContent reports whether any element carries non-empty text.
func hasFollowingContent(elements []PageElement) bool {
	for _, el := range elements {
		if el.trimmedText() != "" {
			return true
		}
	}
	return false
}

// isDigits reports whether s consists solely of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
