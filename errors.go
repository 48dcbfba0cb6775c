package bookpdf

import "errors"

// Sentinel errors for library operations.
var (
	// Style resolution and CSS generation errors.
	ErrUnknownTemplate = errors.New("unknown style template")
	ErrInvalidConfig   = errors.New("invalid style configuration")

	// Document assembly errors.
	ErrEmptyDocument    = errors.New("document has no chapters")
	ErrChapterPositions = errors.New("chapter positions must be unique and contiguous from 1")

	// Rendering errors.
	ErrRender         = errors.New("render failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)
