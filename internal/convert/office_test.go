package convert

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/domain"
	"docconv/internal/ooxml"
)

func TestPDFToWord_ParagraphPerPage(t *testing.T) {
	src := makePDF(t, "first page", "second page", "third page")

	want, err := ExtractPageTexts(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, want, 3)

	out, err := PDFToWord(context.Background(), src)
	require.NoError(t, err)

	got, err := ooxml.ReadDocxParagraphs(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPDFToPPT_SlidePerPage(t *testing.T) {
	src := makePDF(t, "slide one", "slide two")

	want, err := ExtractPageTexts(context.Background(), src)
	require.NoError(t, err)

	out, err := PDFToPPT(context.Background(), src)
	require.NoError(t, err)

	slides, err := ooxml.ReadPptxSlides(out)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	for i, s := range slides {
		require.Len(t, s.Shapes, 1)
		assert.Equal(t, want[i], s.Text())
	}
	assert.Contains(t, slides[1].Text(), "slide two")
}

func TestPDFToWord_InvalidPDF(t *testing.T) {
	_, err := PDFToWord(context.Background(), []byte("not a pdf at all"))
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	var docx bytes.Buffer
	require.NoError(t, ooxml.WriteDocx(&docx, []string{"x"}))
	_, err = PDFToPPT(context.Background(), docx.Bytes())
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}
