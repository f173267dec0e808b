package convert

import (
	"context"
	"strings"

	"github.com/go-pdf/fpdf"

	"docconv/internal/domain"
	"docconv/internal/ooxml"
)

const (
	bodyFont       = "Helvetica"
	bodyFontSizePt = 12
	lineHeightMM   = 10
	bottomMarginMM = 15
)

func newTextDocument() *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, bottomMarginMM)
	doc.SetFont(bodyFont, "", bodyFontSizePt)
	return doc
}

func writeBlock(doc *fpdf.Fpdf, text string) {
	doc.MultiCell(0, lineHeightMM, toCP1252(text), "", "", false)
}

// WordToPDF renders the body paragraphs of a .docx as plain text blocks on A4
// pages. Tables, images and formatting are not carried over.
func WordToPDF(ctx context.Context, data []byte) ([]byte, error) {
	const op = "convert.word_to_pdf"
	Init()

	paras, err := ooxml.ReadDocxParagraphs(data)
	if err != nil {
		return nil, err
	}

	doc := newTextDocument()
	doc.AddPage()
	for _, p := range paras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		writeBlock(doc, p)
	}
	if err := doc.Error(); err != nil {
		return nil, domain.Wrap(op, domain.KindUnsupportedContent, err)
	}
	return outputPDF(op, doc)
}

// PPTToPDF renders one page per slide. Each paragraph of a text-bearing shape
// is written as its runs, one run per line.
func PPTToPDF(ctx context.Context, data []byte) ([]byte, error) {
	const op = "convert.ppt_to_pdf"
	Init()

	slides, err := ooxml.ReadPptxSlides(data)
	if err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		return nil, domain.Errorf(op, domain.KindUnsupportedContent, "presentation has no slides")
	}

	doc := newTextDocument()
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.AddPage()
		for _, sh := range s.Shapes {
			for _, p := range sh.Paragraphs {
				var b strings.Builder
				for _, r := range p.Runs {
					b.WriteString(r)
					b.WriteByte('\n')
				}
				writeBlock(doc, b.String())
			}
		}
	}
	if err := doc.Error(); err != nil {
		return nil, domain.Wrap(op, domain.KindUnsupportedContent, err)
	}
	return outputPDF(op, doc)
}
