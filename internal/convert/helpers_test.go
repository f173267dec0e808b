package convert

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"docconv/internal/domain"
)

// makePDF builds an A4 document with one page per label.
func makePDF(t *testing.T, labels ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for _, l := range labels {
		doc.AddPage()
		doc.Cell(60, 10, l)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func makeTransparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func pdfInput(name string, data []byte) domain.Input {
	return domain.Input{Name: name, Data: data}
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	n, err := PageCount(data)
	require.NoError(t, err)
	return n
}
