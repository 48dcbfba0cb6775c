package bookpdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alnah/go-bookpdf/internal/yamlutil"
)

// Template name constants.
const (
	TemplateRoman     = "roman"
	TemplateTechnical = "technical"
	TemplateAcademic  = "academic"
)

// ResolvedStyleConfig is the fully merged style configuration consumed by
// CSS generation. It is produced by Resolve and must not be mutated after
// Hash has been taken.
type ResolvedStyleConfig struct {
	Name         string                  `yaml:"name"`
	Description  string                  `yaml:"description"`
	Layout       LayoutConfig            `yaml:"layout"`
	Typography   TypographyConfig        `yaml:"typography"`
	QualityRules QualityRulesConfig      `yaml:"quality_rules"`
	Colors       map[string]string       `yaml:"colors"`
	Headings     map[string]HeadingStyle `yaml:"headings"`
	Features     map[string]bool         `yaml:"features"`
	CustomCSS    string                  `yaml:"custom_css"`
	Minify       bool                    `yaml:"minify"`
}

// LayoutConfig holds physical page geometry.
type LayoutConfig struct {
	PageSize   string       `yaml:"page_size"` // e.g. "156mm 234mm"
	Margins    MarginConfig `yaml:"margins"`
	Footnotes  bool         `yaml:"footnotes"`
	CodeBlocks bool         `yaml:"code_blocks"`
}

// MarginConfig holds per-side page margins with CSS length units.
type MarginConfig struct {
	Top    string `yaml:"top"`
	Bottom string `yaml:"bottom"`
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
}

// TypographyConfig holds body text settings.
type TypographyConfig struct {
	FontFamily       string `yaml:"font_family"`
	FontSize         string `yaml:"font_size"`
	LineHeight       string `yaml:"line_height"`
	TextAlign        string `yaml:"text_align"`
	TextIndent       string `yaml:"text_indent"`
	ParagraphSpacing string `yaml:"paragraph_spacing"`
}

// QualityRulesConfig holds pagination-defect prevention settings. These feed
// the generated CSS only; the QualityValidator uses its own fixed thresholds.
type QualityRulesConfig struct {
	Orphans         int               `yaml:"orphans"`
	Widows          int               `yaml:"widows"`
	AvoidPageBreaks []string          `yaml:"avoid_page_breaks"`
	Hyphenation     HyphenationConfig `yaml:"hyphenation"`
}

// HyphenationConfig controls automatic hyphenation in justified text.
type HyphenationConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
	MinChars int    `yaml:"min_chars"`
	MinLeft  int    `yaml:"min_left"`
	MinRight int    `yaml:"min_right"`
}

// HeadingStyle holds per-level heading overrides.
type HeadingStyle struct {
	FontSize      string `yaml:"font_size"`
	FontWeight    string `yaml:"font_weight"`
	Color         string `yaml:"color"`
	TextAlign     string `yaml:"text_align"`
	TextTransform string `yaml:"text_transform"`
	MarginTop     string `yaml:"margin_top"`
	MarginBottom  string `yaml:"margin_bottom"`
	LetterSpacing string `yaml:"letter_spacing"`
	BorderBottom  string `yaml:"border_bottom"`
}

// pageSizePattern validates "WIDTHunit HEIGHTunit" page formats.
var pageSizePattern = regexp.MustCompile(`^\d+(?:\.\d+)?(?:mm|cm|in|pt)\s+\d+(?:\.\d+)?(?:mm|cm|in|pt)$`)

// Resolve merges the shared base configuration with the named template
// variant and optional user overrides, in that order. Each step is a
// recursive key-wise deep merge: nested mappings merge, everything else
// (including arrays) is replaced wholly by the override value.
//
// Resolve is pure and deterministic: identical inputs yield structurally
// identical configurations, so results can be cached by Hash.
func Resolve(templateName string, overrides map[string]any) (*ResolvedStyleConfig, error) {
	variant, ok := templateVariants()[templateName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateName)
	}

	merged := deepMerge(baseConfig(), variant)
	if len(overrides) > 0 {
		merged = deepMerge(merged, overrides)
	}

	data, err := yamlutil.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Strict decode rejects unknown keys instead of passing them through.
	var cfg ResolvedStyleConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// Templates returns the registered template names, sorted.
func Templates() []string {
	variants := templateVariants()
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the invariants CSS generation depends on: the layout and
// quality_rules sections must be present, the page format well-formed, and
// margins non-negative. Returns ErrInvalidConfig-wrapped errors.
func (c *ResolvedStyleConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil configuration", ErrInvalidConfig)
	}
	if c.Layout.PageSize == "" {
		return fmt.Errorf("%w: missing required section: layout", ErrInvalidConfig)
	}
	if c.QualityRules.Orphans == 0 && c.QualityRules.Widows == 0 && len(c.QualityRules.AvoidPageBreaks) == 0 {
		return fmt.Errorf("%w: missing required section: quality_rules", ErrInvalidConfig)
	}
	if !pageSizePattern.MatchString(c.Layout.PageSize) {
		return fmt.Errorf("%w: malformed page format %q", ErrInvalidConfig, c.Layout.PageSize)
	}
	for side, v := range map[string]string{
		"top":    c.Layout.Margins.Top,
		"bottom": c.Layout.Margins.Bottom,
		"left":   c.Layout.Margins.Left,
		"right":  c.Layout.Margins.Right,
	} {
		if strings.HasPrefix(strings.TrimSpace(v), "-") {
			return fmt.Errorf("%w: negative %s margin %q", ErrInvalidConfig, side, v)
		}
	}
	return nil
}

// Hash returns a deterministic structural digest of the configuration,
// suitable as a cache key. It serializes the typed struct (fixed field
// order) rather than iterating maps of unknown order; the two map-typed
// sections are canonicalized by yamlutil.MarshalCanonical.
func (c *ResolvedStyleConfig) Hash() string {
	data, err := yamlutil.MarshalCanonical(c)
	if err != nil {
		// Marshal of a plain struct only fails on exotic values; fall back
		// to a name-based key so caching degrades instead of breaking.
		data = []byte(c.Name)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// deepMerge recursively merges override into base and returns a new map.
// Nested maps merge key-wise; any other value (scalars, arrays) replaces
// the base value wholly.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		overrideMap, overrideIsMap := asStringMap(v)
		baseMap, baseIsMap := asStringMap(result[k])
		if overrideIsMap && baseIsMap {
			result[k] = deepMerge(baseMap, overrideMap)
			continue
		}
		result[k] = v
	}
	return result
}

// asStringMap normalizes the two map shapes YAML decoding can produce.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}

// baseConfig is the shared default layer under every template variant.
func baseConfig() map[string]any {
	return map[string]any{
		"name":        "Base Template",
		"description": "Shared defaults for all templates",
		"layout": map[string]any{
			"page_size": "156mm 234mm",
			"margins": map[string]any{
				"top":    "20mm",
				"bottom": "20mm",
				"left":   "15mm",
				"right":  "15mm",
			},
			"footnotes":   false,
			"code_blocks": false,
		},
		"quality_rules": map[string]any{
			"orphans":           4,
			"widows":            4,
			"avoid_page_breaks": []any{"h1", "h2", "h3", "h4"},
			"hyphenation": map[string]any{
				"enabled":   true,
				"language":  "fr",
				"min_chars": 6,
				"min_left":  3,
				"min_right": 3,
			},
		},
		"typography": map[string]any{
			"font_family": "serif",
			"font_size":   "12pt",
			"line_height": "1.6",
			"text_align":  "left",
		},
		"colors": map[string]any{
			"text":     "#2c3e50",
			"headings": "#34495e",
			"accent":   "#3498db",
			"muted":    "#7f8c8d",
		},
		"features": map[string]any{
			"table_of_contents":   true,
			"page_numbers":        true,
			"headers_footers":     true,
			"syntax_highlighting": false,
			"bibliography":        false,
		},
	}
}

// templateVariants returns the registered named variants. Fresh maps are
// returned on every call so merges never alias registry state.
func templateVariants() map[string]map[string]any {
	return map[string]map[string]any{
		TemplateRoman: {
			"name":        "Roman Template",
			"description": "Elegant layout for novels and literary prose",
			"typography": map[string]any{
				"font_family":       "Crimson Text, Georgia, serif",
				"font_size":         "11pt",
				"line_height":       "1.7",
				"text_align":        "justify",
				"text_indent":       "1.2em",
				"paragraph_spacing": "0.8em",
			},
			"headings": map[string]any{
				"h1": map[string]any{
					"font_size":      "24pt",
					"font_weight":    "600",
					"text_transform": "uppercase",
					"text_align":     "center",
					"margin_top":     "60mm",
					"margin_bottom":  "30mm",
					"letter_spacing": "2px",
				},
				"h2": map[string]any{
					"font_size":     "18pt",
					"font_weight":   "600",
					"margin_top":    "25mm",
					"margin_bottom": "15mm",
				},
			},
			"colors": map[string]any{
				"text":     "#2c3e50",
				"headings": "#2c3e50",
				"accent":   "#8e44ad",
			},
		},
		TemplateTechnical: {
			"name":        "Technical Template",
			"description": "Modern layout for technical documentation",
			"typography": map[string]any{
				"font_family":       "Source Sans Pro, Arial, sans-serif",
				"font_size":         "10.5pt",
				"line_height":       "1.4",
				"text_align":        "left",
				"text_indent":       "0",
				"paragraph_spacing": "0.6em",
			},
			"headings": map[string]any{
				"h1": map[string]any{
					"font_size":      "20pt",
					"font_weight":    "700",
					"text_transform": "none",
					"text_align":     "left",
					"margin_top":     "40mm",
					"margin_bottom":  "20mm",
					"border_bottom":  "2px solid #3498db",
				},
				"h2": map[string]any{
					"font_size":     "16pt",
					"font_weight":   "600",
					"margin_top":    "20mm",
					"margin_bottom": "10mm",
					"color":         "#2980b9",
				},
			},
			"layout": map[string]any{
				"code_blocks": true,
				"margins": map[string]any{
					"top":    "18mm",
					"bottom": "18mm",
					"left":   "12mm",
					"right":  "12mm",
				},
			},
			"colors": map[string]any{
				"text":        "#2c3e50",
				"headings":    "#2980b9",
				"accent":      "#3498db",
				"code_bg":     "#f8f9fa",
				"code_border": "#dee2e6",
			},
			"features": map[string]any{
				"syntax_highlighting": true,
			},
		},
		TemplateAcademic: {
			"name":        "Academic Template",
			"description": "Formal layout for academic publications",
			"typography": map[string]any{
				"font_family":       "Times New Roman, serif",
				"font_size":         "12pt",
				"line_height":       "2.0",
				"text_align":        "justify",
				"text_indent":       "0.5in",
				"paragraph_spacing": "0",
			},
			"headings": map[string]any{
				"h1": map[string]any{
					"font_size":      "16pt",
					"font_weight":    "bold",
					"text_transform": "none",
					"text_align":     "center",
					"margin_top":     "24pt",
					"margin_bottom":  "12pt",
				},
				"h2": map[string]any{
					"font_size":     "14pt",
					"font_weight":   "bold",
					"margin_top":    "18pt",
					"margin_bottom": "6pt",
				},
			},
			"layout": map[string]any{
				"footnotes": true,
				"margins": map[string]any{
					"top":    "25mm",
					"bottom": "25mm",
					"left":   "25mm",
					"right":  "25mm",
				},
			},
			"colors": map[string]any{
				"text":     "#000000",
				"headings": "#000000",
				"accent":   "#000000",
			},
			"features": map[string]any{
				"bibliography": true,
				"footnotes":    true,
			},
		},
	}
}
