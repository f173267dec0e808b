package convert

import (
	"bytes"
	"context"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"docconv/internal/domain"
)

// ExtractPageTexts returns the plain text of each page, in page order. Line
// ends are normalized to "\n" and control characters other than tab and
// newline are dropped.
func ExtractPageTexts(ctx context.Context, data []byte) (texts []string, err error) {
	const op = "convert.extract_text"

	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = domain.Errorf(op, domain.KindInvalidFormat, "read pdf: %v", r)
		}
	}()

	if err := checkHeader(op, data); err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.Errorf(op, domain.KindInvalidFormat, "open pdf: %w", err)
	}

	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, domain.Errorf(op, domain.KindUnsupportedContent, "page %d: %w", i, err)
		}
		texts = append(texts, cleanText(text))
	}
	return texts, nil
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == 0xFFFE || r == 0xFFFF {
			return -1
		}
		return r
	}, s)
}
