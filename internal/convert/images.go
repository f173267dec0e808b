package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"docconv/internal/domain"
	"docconv/internal/scratch"
)

// A4 page size in millimetres.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
)

// Placement is the position and size of an image on a page, in page units.
type Placement struct {
	X, Y, W, H float64
}

// FitToPage scales an image of imgW x imgH to the largest size that fits the
// page with its aspect ratio kept, and centres it. The limiting dimension
// fills the page exactly; for images whose aspect is close to the page's
// that is not necessarily the image's longer side.
func FitToPage(imgW, imgH, pageW, pageH float64) Placement {
	if imgW <= 0 || imgH <= 0 {
		return Placement{}
	}
	if pageW/imgW <= pageH/imgH {
		h := imgH * pageW / imgW
		return Placement{X: 0, Y: max(0, (pageH-h)/2), W: pageW, H: h}
	}
	w := imgW * pageH / imgH
	return Placement{X: max(0, (pageW-w)/2), Y: 0, W: w, H: pageH}
}

// ImagesToPDF places each image on its own A4 page, in input order. Images
// are decoded with their EXIF orientation applied and normalized to JPEG in
// a scratch directory before placement.
func ImagesToPDF(ctx context.Context, scratchDir string, images []domain.Input) ([]byte, error) {
	const op = "convert.images_to_pdf"
	if len(images) == 0 {
		return nil, domain.Errorf(op, domain.KindInvalidRequest, "no input images")
	}
	Init()

	arena, err := scratch.New(scratchDir)
	if err != nil {
		return nil, domain.Wrap(op, domain.KindInternal, err)
	}
	defer arena.Close()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for i, in := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := imaging.Decode(bytes.NewReader(in.Data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, domain.Errorf(op, domain.KindUnsupportedContent, "image %d (%s): %w", i+1, in.Name, err)
		}
		b := img.Bounds()
		if b.Dx() == 0 || b.Dy() == 0 {
			return nil, domain.Errorf(op, domain.KindUnsupportedContent, "image %d (%s) is empty", i+1, in.Name)
		}

		// JPEG has no alpha channel; flatten onto white.
		flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)
		var jpg bytes.Buffer
		if err := imaging.Encode(&jpg, flat, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return nil, domain.Wrap(op, domain.KindInternal, err)
		}
		path, err := arena.WriteFile(fmt.Sprintf("image-%03d-*.jpg", i+1), jpg.Bytes())
		if err != nil {
			return nil, domain.Wrap(op, domain.KindInternal, err)
		}

		pl := FitToPage(float64(b.Dx()), float64(b.Dy()), pageWidthMM, pageHeightMM)
		doc.AddPage()
		doc.ImageOptions(path, pl.X, pl.Y, pl.W, pl.H, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		if err := doc.Error(); err != nil {
			return nil, domain.Errorf(op, domain.KindUnsupportedContent, "image %d (%s): %w", i+1, in.Name, err)
		}
	}

	return outputPDF(op, doc)
}

func outputPDF(op string, doc *fpdf.Fpdf) ([]byte, error) {
	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, domain.Wrap(op, domain.KindInternal, err)
	}
	return out.Bytes(), nil
}
