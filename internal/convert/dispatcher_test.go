package convert

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/domain"
)

func TestDispatcher_Convert(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	src := makePDF(t, "one", "two", "three")

	tests := []struct {
		name     string
		tool     domain.Tool
		inputs   []domain.Input
		params   domain.Params
		filename string
		mime     string
	}{
		{"merge", domain.ToolMerge, []domain.Input{pdfInput("a.pdf", src), pdfInput("b.pdf", src)}, domain.Params{}, "merged.pdf", domain.MIMEPDF},
		{"split", domain.ToolSplit, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{StartPage: 1, EndPage: 2}, "split.pdf", domain.MIMEPDF},
		{"compress", domain.ToolCompress, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{}, "compressed.pdf", domain.MIMEPDF},
		{"images", domain.ToolImagesToPDF, []domain.Input{{Name: "a.png", Data: makePNG(t, 4, 4)}}, domain.Params{}, "converted.pdf", domain.MIMEPDF},
		{"protect", domain.ToolProtect, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{Password: "pw"}, "protected.pdf", domain.MIMEPDF},
		{"unlock", domain.ToolUnlock, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{Password: "pw"}, "unlocked.pdf", domain.MIMEPDF},
		{"pdf to word", domain.ToolPDFToWord, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{}, "converted.docx", domain.MIMEDocx},
		{"pdf to ppt", domain.ToolPDFToPPT, []domain.Input{pdfInput("a.pdf", src)}, domain.Params{}, "converted.pptx", domain.MIMEPptx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Convert(context.Background(), domain.NewRequest(tt.tool, tt.inputs, tt.params))
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.NotEmpty(t, res.Data)
			assert.Equal(t, tt.filename, res.Filename)
			assert.Equal(t, tt.mime, res.MIMEType)
		})
	}
}

func TestDispatcher_Arity(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	src := makePDF(t, "x")

	_, err := d.Convert(context.Background(), domain.NewRequest(domain.ToolCompress, nil, domain.Params{}))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = d.Convert(context.Background(), domain.NewRequest(domain.ToolSplit,
		[]domain.Input{pdfInput("a.pdf", src), pdfInput("b.pdf", src)}, domain.Params{StartPage: 1, EndPage: 1}))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = d.Convert(context.Background(), domain.NewRequest(domain.ToolMerge, nil, domain.Params{}))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := NewDispatcher("")
	_, err := d.Convert(context.Background(), domain.NewRequest(domain.Tool(99),
		[]domain.Input{pdfInput("a.pdf", []byte("x"))}, domain.Params{}))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestDispatcher_CanceledBeforeStart(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Convert(ctx, domain.NewRequest(domain.ToolCompress,
		[]domain.Input{pdfInput("a.pdf", makePDF(t, "x"))}, domain.Params{}))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, domain.IsCanceled(err))
}

func TestDispatcher_ConcurrentRequests(t *testing.T) {
	d := NewDispatcher(t.TempDir())
	src := makePDF(t, "a", "b", "c", "d")

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			res, err := d.Convert(context.Background(), domain.NewRequest(domain.ToolSplit,
				[]domain.Input{pdfInput("a.pdf", src)}, domain.Params{StartPage: page, EndPage: page}))
			if assert.NoError(t, err) {
				n, err := PageCount(res.Data)
				assert.NoError(t, err)
				assert.Equal(t, 1, n)
			}
		}(i)
	}
	wg.Wait()
}
