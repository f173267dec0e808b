package convert

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/domain"
)

func TestFitToPage(t *testing.T) {
	tests := []struct {
		name       string
		imgW, imgH float64
		want       Placement
	}{
		{"landscape", 400, 100, Placement{X: 0, Y: (297 - 52.5) / 2, W: 210, H: 52.5}},
		{"portrait", 100, 400, Placement{X: (210 - 74.25) / 2, Y: 0, W: 74.25, H: 297}},
		{"page ratio", 210, 297, Placement{X: 0, Y: 0, W: 210, H: 297}},
		{"near square", 200, 210, Placement{X: 0, Y: (297 - 220.5) / 2, W: 210, H: 220.5}},
		{"empty", 0, 10, Placement{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitToPage(tt.imgW, tt.imgH, 210, 297)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
			assert.InDelta(t, tt.want.H, got.H, 1e-9)
		})
	}
}

func TestFitToPage_StaysOnPage(t *testing.T) {
	for _, dims := range [][2]float64{{1, 1}, {3000, 2000}, {10, 5000}, {5000, 10}, {999, 1000}, {7, 3001}} {
		p := FitToPage(dims[0], dims[1], 210, 297)
		assert.True(t, p.X == 0 || p.Y == 0, "no axis flush with the page for %v: %+v", dims, p)
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.X+p.W, 210+1e-9)
		assert.LessOrEqual(t, p.Y+p.H, 297+1e-9)
		assert.InDelta(t, dims[0]/dims[1], p.W/p.H, 1e-9)
	}
}

func TestImagesToPDF_OnePagePerImage(t *testing.T) {
	dir := t.TempDir()
	images := []domain.Input{
		{Name: "wide.png", Data: makePNG(t, 80, 20)},
		{Name: "tall.png", Data: makePNG(t, 20, 80)},
		{Name: "alpha.png", Data: makeTransparentPNG(t, 16, 16)},
	}

	out, err := ImagesToPDF(context.Background(), dir, images)
	require.NoError(t, err)
	assert.Equal(t, 3, pageCount(t, out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed")
}

func TestImagesToPDF_Undecodable(t *testing.T) {
	dir := t.TempDir()
	_, err := ImagesToPDF(context.Background(), dir, []domain.Input{
		{Name: "ok.png", Data: makePNG(t, 10, 10)},
		{Name: "broken.png", Data: []byte("nope")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedContent)
	assert.Contains(t, err.Error(), "broken.png")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImagesToPDF_NoImages(t *testing.T) {
	_, err := ImagesToPDF(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
