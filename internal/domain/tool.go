package domain

import (
	"fmt"
	"strings"
)

// Tool identifies one of the conversion actions. The set is closed: every
// dispatcher switches over all values below.
type Tool int

const (
	ToolMerge Tool = iota + 1
	ToolSplit
	ToolCompress
	ToolImagesToPDF
	ToolWordToPDF
	ToolPDFToWord
	ToolUnlock
	ToolProtect
	ToolPPTToPDF
	ToolPDFToPPT
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// ToolSpec describes the request and response shape of a tool.
type ToolSpec struct {
	Tool            Tool     `json:"-"`
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	Multiple        bool     `json:"multiple"`
	InputExtensions []string `json:"inputs"`
	Params          []string `json:"params,omitempty"`
	Extension       string   `json:"extension"`
	MIMEType        string   `json:"mime_type"`
	DefaultFilename string   `json:"default_filename"`
}

var pdfInput = []string{".pdf"}

var toolSpecs = []ToolSpec{
	{Tool: ToolMerge, Slug: "merge", Title: "Merge PDF", Multiple: true, InputExtensions: pdfInput,
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "merged.pdf"},
	{Tool: ToolSplit, Slug: "split", Title: "Split PDF", InputExtensions: pdfInput, Params: []string{"start", "end"},
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "split.pdf"},
	{Tool: ToolCompress, Slug: "compress", Title: "Compress PDF", InputExtensions: pdfInput,
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "compressed.pdf"},
	{Tool: ToolImagesToPDF, Slug: "images-to-pdf", Title: "Image to PDF", Multiple: true,
		InputExtensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff"},
		Extension:       ".pdf", MIMEType: MIMEPDF, DefaultFilename: "converted.pdf"},
	{Tool: ToolWordToPDF, Slug: "word-to-pdf", Title: "Word to PDF", InputExtensions: []string{".docx"},
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "converted.pdf"},
	{Tool: ToolPDFToWord, Slug: "pdf-to-word", Title: "PDF to Word", InputExtensions: pdfInput,
		Extension: ".docx", MIMEType: MIMEDocx, DefaultFilename: "converted.docx"},
	{Tool: ToolUnlock, Slug: "unlock", Title: "Unlock PDF", InputExtensions: pdfInput, Params: []string{"password"},
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "unlocked.pdf"},
	{Tool: ToolProtect, Slug: "protect", Title: "Protect PDF", InputExtensions: pdfInput, Params: []string{"password"},
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "protected.pdf"},
	{Tool: ToolPPTToPDF, Slug: "ppt-to-pdf", Title: "PowerPoint to PDF", InputExtensions: []string{".pptx"},
		Extension: ".pdf", MIMEType: MIMEPDF, DefaultFilename: "converted.pdf"},
	{Tool: ToolPDFToPPT, Slug: "pdf-to-ppt", Title: "PDF to PowerPoint", InputExtensions: pdfInput,
		Extension: ".pptx", MIMEType: MIMEPptx, DefaultFilename: "converted.pptx"},
}

// Tools returns the catalog in display order.
func Tools() []ToolSpec {
	out := make([]ToolSpec, len(toolSpecs))
	copy(out, toolSpecs)
	return out
}

// Spec returns the descriptor of t. ok is false for values outside the closed set.
func (t Tool) Spec() (ToolSpec, bool) {
	for _, s := range toolSpecs {
		if s.Tool == t {
			return s, true
		}
	}
	return ToolSpec{}, false
}

// Valid reports whether t is one of the declared tools.
func (t Tool) Valid() bool {
	_, ok := t.Spec()
	return ok
}

func (t Tool) String() string {
	if s, ok := t.Spec(); ok {
		return s.Slug
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// RequiresPassword reports whether the tool takes a password parameter.
func (t Tool) RequiresPassword() bool {
	return t == ToolUnlock || t == ToolProtect
}

// ParseTool resolves a slug (case-insensitive, "_" accepted for "-").
func ParseTool(slug string) (Tool, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(slug)), "_", "-")
	for _, s := range toolSpecs {
		if s.Slug == norm {
			return s.Tool, nil
		}
	}
	return 0, &ConversionError{Op: "domain.parse_tool", Kind: KindInvalidRequest, Err: fmt.Errorf("unknown tool %q", slug)}
}
