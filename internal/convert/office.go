package convert

import (
	"bytes"
	"context"

	"docconv/internal/domain"
	"docconv/internal/ooxml"
)

// PDFToWord writes one paragraph per page holding that page's text.
func PDFToWord(ctx context.Context, data []byte) ([]byte, error) {
	const op = "convert.pdf_to_word"

	texts, err := ExtractPageTexts(ctx, data)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := ooxml.WriteDocx(&out, texts); err != nil {
		return nil, domain.Wrap(op, domain.KindInternal, err)
	}
	return out.Bytes(), nil
}

// PDFToPPT writes one slide per page with the page text in a single text box.
func PDFToPPT(ctx context.Context, data []byte) ([]byte, error) {
	const op = "convert.pdf_to_ppt"

	texts, err := ExtractPageTexts(ctx, data)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := ooxml.WritePptx(&out, texts); err != nil {
		return nil, domain.Wrap(op, domain.KindInternal, err)
	}
	return out.Bytes(), nil
}
